package api

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the auth service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- DTOs ---

// OnboardingRequest carries the coaching profile collected at signup or
// updated later.
type OnboardingRequest struct {
	Goal           string  `json:"goal"`
	Experience     string  `json:"experience"`
	WeeklyVolumeKm float64 `json:"weeklyVolumeKm" binding:"omitempty,gte=0"`
	RunsPerWeek    int     `json:"runsPerWeek" binding:"omitempty,gte=0,lte=7"`
	Units          string  `json:"units"`
	InjuryHistory  string  `json:"injuryHistory"`
	RaceDate       string  `json:"raceDate" binding:"omitempty"` // YYYY-MM-DD
}

// RegisterRequest defines the expected JSON for registration.
type RegisterRequest struct {
	Name     string            `json:"name" binding:"required"`
	Email    string            `json:"email" binding:"required,email"`
	Password string            `json:"password" binding:"required,min=8"`
	Profile  OnboardingRequest `json:"profile"`
}

// LoginRequest defines the expected JSON for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the DTO for returning user details.
type UserResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Goal           string     `json:"goal,omitempty"`
	Experience     string     `json:"experience,omitempty"`
	WeeklyVolumeKm float64    `json:"weeklyVolumeKm"`
	RunsPerWeek    int        `json:"runsPerWeek"`
	Units          string     `json:"units,omitempty"`
	InjuryHistory  string     `json:"injuryHistory,omitempty"`
	RaceDate       *time.Time `json:"raceDate,omitempty"`
	PlanStartDate  time.Time  `json:"planStartDate"`
}

// LoginResponse wraps the token and user details.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// MapUserToResponse converts a domain.User to UserResponse DTO.
func MapUserToResponse(u *domain.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Email:          u.Email,
		Goal:           u.Goal,
		Experience:     u.Experience,
		WeeklyVolumeKm: u.WeeklyVolumeKm,
		RunsPerWeek:    u.RunsPerWeek,
		Units:          u.Units,
		InjuryHistory:  u.InjuryHistory,
		RaceDate:       u.RaceDate,
		PlanStartDate:  u.PlanStartDate,
	}
}

func (r OnboardingRequest) toProfile() (service.OnboardingProfile, error) {
	profile := service.OnboardingProfile{
		Goal:           r.Goal,
		Experience:     r.Experience,
		WeeklyVolumeKm: r.WeeklyVolumeKm,
		RunsPerWeek:    r.RunsPerWeek,
		Units:          r.Units,
		InjuryHistory:  r.InjuryHistory,
	}
	if r.RaceDate != "" {
		d, err := time.Parse(domain.DateLayout, r.RaceDate)
		if err != nil {
			return profile, errors.New("raceDate must be YYYY-MM-DD")
		}
		profile.RaceDate = &d
	}
	return profile, nil
}

// --- Handler Methods ---

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	profile, err := req.Profile.toProfile()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password, profile)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to register user.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapUserToResponse(user))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Login failed.")
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, User: MapUserToResponse(user)})
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *gin.Context) {
	userIDStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userIDStr)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load profile.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdateProfile handles PUT /me/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userIDStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	profile, err := req.toProfile()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userIDStr, profile)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to update profile.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(user))
}
