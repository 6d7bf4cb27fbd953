package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus tracks what the runner did with a planned session.
type SessionStatus string

const (
	StatusNotCompleted       SessionStatus = "not_completed"
	StatusCompleted          SessionStatus = "completed"
	StatusSkipped            SessionStatus = "skipped"
	StatusMissed             SessionStatus = "missed"
	StatusPartiallyCompleted SessionStatus = "partially_completed"
	StatusPlanned            SessionStatus = "planned"
)

// ValidStatus reports whether s is one of the known session statuses.
func ValidStatus(s SessionStatus) bool {
	switch s {
	case StatusNotCompleted, StatusCompleted, StatusSkipped,
		StatusMissed, StatusPartiallyCompleted, StatusPlanned:
		return true
	}
	return false
}

// TrainingSession is one planned or completed workout in a weekly plan.
type TrainingSession struct {
	ID               string             `bson:"_id" json:"id"` // UUID assigned at creation
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	WeekNumber       int                `bson:"weekNumber" json:"weekNumber"` // >= 1, relative to plan start
	DayOfWeek        int                `bson:"dayOfWeek" json:"dayOfWeek"`   // 1 (Mon) - 7 (Sun)
	Date             string             `bson:"date" json:"date"`             // YYYY-MM-DD
	SessionType      string             `bson:"sessionType" json:"sessionType"`
	Distance         *float64           `bson:"distance,omitempty" json:"distance,omitempty"` // km, nil for rest/cross-training
	Time             *int               `bson:"time,omitempty" json:"time,omitempty"`         // minutes, nil for rest
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PostSessionNotes string             `bson:"postSessionNotes,omitempty" json:"postSessionNotes,omitempty"`
	Status           SessionStatus      `bson:"status" json:"status"`
	Phase            Phase              `bson:"phase" json:"phase"` // phase valid at creation time, never recomputed
	Modified         bool               `bson:"modified" json:"modified"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Interacted reports whether the runner has touched this session in any way.
// Interacted sessions must never be silently deleted by plan regeneration.
func (s *TrainingSession) Interacted() bool {
	return s.Status != StatusNotCompleted || s.PostSessionNotes != ""
}

// IsRest reports whether the session is a rest day (does not count toward
// the weekly run frequency).
func (s *TrainingSession) IsRest() bool {
	return strings.Contains(strings.ToLower(s.SessionType), "rest")
}

// DateValue parses the session's calendar date. Sessions are created with
// validated dates, so a zero time is only returned for corrupt records.
func (s *TrainingSession) DateValue() time.Time {
	t, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}
