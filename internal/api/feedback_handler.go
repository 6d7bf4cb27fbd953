package api

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedbackHandler holds the feedback service dependency.
type FeedbackHandler struct {
	feedbackService service.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedbackService service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// --- DTOs ---

// FeedbackResponse is the DTO for returning a week's feedback record.
type FeedbackResponse struct {
	WeekStartDate   string   `json:"weekStartDate"`
	Prefers         []string `json:"prefers,omitempty"`
	StrugglingWith  []string `json:"strugglingWith,omitempty"`
	FeedbackSummary string   `json:"feedbackSummary,omitempty"`
	RawDownloadURL  string   `json:"rawDownloadUrl,omitempty"`
}

// SetFeedbackRequest defines explicitly stated preferences for a week.
type SetFeedbackRequest struct {
	WeekStart      string   `json:"weekStart" binding:"required"` // YYYY-MM-DD
	Prefers        []string `json:"prefers"`
	StrugglingWith []string `json:"strugglingWith"`
}

func mapFeedbackToResponse(f *domain.TrainingFeedback, url string) FeedbackResponse {
	return FeedbackResponse{
		WeekStartDate:   f.WeekStartDate,
		Prefers:         f.Prefers,
		StrugglingWith:  f.StrugglingWith,
		FeedbackSummary: f.FeedbackSummary,
		RawDownloadURL:  url,
	}
}

// --- Handler Methods ---

// GetWeek handles GET /feedback/:weekStart.
func (h *FeedbackHandler) GetWeek(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	weekStart := c.Param("weekStart")
	if _, err := time.Parse(domain.DateLayout, weekStart); err != nil {
		abortWithError(c, http.StatusBadRequest, "weekStart must be YYYY-MM-DD")
		return
	}

	feedback, url, err := h.feedbackService.Export(c.Request.Context(), userID, weekStart)
	if err != nil {
		if errors.Is(err, service.ErrFeedbackNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load feedback.")
		}
		return
	}

	c.JSON(http.StatusOK, mapFeedbackToResponse(feedback, url))
}

// SetPreferences handles PUT /feedback.
func (h *FeedbackHandler) SetPreferences(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req SetFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	weekStart, err := time.Parse(domain.DateLayout, req.WeekStart)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "weekStart must be YYYY-MM-DD")
		return
	}

	feedback, err := h.feedbackService.SetManual(c.Request.Context(), userID, weekStart, req.Prefers, req.StrugglingWith)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to save feedback.")
		return
	}

	c.JSON(http.StatusOK, mapFeedbackToResponse(feedback, ""))
}

func (h *FeedbackHandler) currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
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
