package api

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/service"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService      service.PlanService
	batchConcurrency int
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService, batchConcurrency int) *PlanHandler {
	return &PlanHandler{planService: planService, batchConcurrency: batchConcurrency}
}

// --- DTOs ---

// SessionResponse is the DTO for returning a training session.
type SessionResponse struct {
	ID               string   `json:"id"`
	WeekNumber       int      `json:"weekNumber"`
	DayOfWeek        int      `json:"dayOfWeek"`
	Date             string   `json:"date"`
	SessionType      string   `json:"sessionType"`
	Distance         *float64 `json:"distance,omitempty"`
	Time             *int     `json:"time,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	PostSessionNotes string   `json:"postSessionNotes,omitempty"`
	Status           string   `json:"status"`
	Phase            string   `json:"phase,omitempty"`
	Modified         bool     `json:"modified"`
}

// WeekResponse groups the sessions of one Monday-Sunday window.
type WeekResponse struct {
	WeekStart string            `json:"weekStart"`
	Sessions  []SessionResponse `json:"sessions"`
}

// UpdateSessionRequest defines the expected JSON for a completion action.
type UpdateSessionRequest struct {
	Status           string `json:"status"`
	PostSessionNotes string `json:"postSessionNotes"`
}

// RefreshWeekRequest optionally names the week to regenerate.
type RefreshWeekRequest struct {
	WeekStart string `json:"weekStart" binding:"omitempty"` // YYYY-MM-DD, any day in the week
}

// MapSessionToResponse converts a domain.TrainingSession to its DTO.
func MapSessionToResponse(s *domain.TrainingSession) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		WeekNumber:       s.WeekNumber,
		DayOfWeek:        s.DayOfWeek,
		Date:             s.Date,
		SessionType:      s.SessionType,
		Distance:         s.Distance,
		Time:             s.Time,
		Notes:            s.Notes,
		PostSessionNotes: s.PostSessionNotes,
		Status:           string(s.Status),
		Phase:            string(s.Phase),
		Modified:         s.Modified,
	}
}

// --- Handler Methods ---

// GetWeek handles GET /plan/week?date=YYYY-MM-DD (date defaults to today).
func (h *PlanHandler) GetWeek(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	sessions, err := h.planService.WeekSessions(c.Request.Context(), userID, day)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to load plan.")
		return
	}

	resp := WeekResponse{
		WeekStart: domain.MondayOf(day).Format(domain.DateLayout),
		Sessions:  make([]SessionResponse, 0, len(sessions)),
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, MapSessionToResponse(&sessions[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshWeek handles POST /plan/refresh.
func (h *PlanHandler) RefreshWeek(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req RefreshWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	target := time.Now().UTC()
	if req.WeekStart != "" {
		parsed, err := time.Parse(domain.DateLayout, req.WeekStart)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "weekStart must be YYYY-MM-DD")
			return
		}
		target = parsed
	}

	err := h.planService.RefreshWeek(c.Request.Context(), userID, target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotOnboarded):
			abortWithError(c, http.StatusConflict, "Complete your training profile before generating a plan.")
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to refresh plan.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Week refreshed.",
		"weekStart": domain.MondayOf(target).Format(domain.DateLayout),
	})
}

// UpdateSession handles PATCH /sessions/:id.
func (h *PlanHandler) UpdateSession(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")

	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Status == "" && req.PostSessionNotes == "" {
		abortWithError(c, http.StatusBadRequest, "Provide a status and/or postSessionNotes.")
		return
	}

	session, err := h.planService.UpdateSession(c.Request.Context(), userID, sessionID,
		domain.SessionStatus(req.Status), req.PostSessionNotes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSessionNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update session.")
		}
		return
	}

	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// RefreshAll handles POST /admin/plan/refresh-all (admin only).
func (h *PlanHandler) RefreshAll(c *gin.Context) {
	var req RefreshWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	target := time.Now().UTC()
	if req.WeekStart != "" {
		parsed, err := time.Parse(domain.DateLayout, req.WeekStart)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "weekStart must be YYYY-MM-DD")
			return
		}
		target = parsed
	}

	summary := h.planService.RefreshAll(c.Request.Context(), domain.MondayOf(target), h.batchConcurrency)
	c.JSON(http.StatusOK, summary)
}

// currentUserID resolves the authenticated user's ObjectID or aborts.
func (h *PlanHandler) currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user ID in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}
