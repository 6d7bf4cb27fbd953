package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleRunner Role = "runner"
	RoleAdmin  Role = "admin"
)

// User represents a runner (or an operator account) in the system.
// The onboarding fields drive weekly plan generation.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Onboarding / coaching profile ---
	Goal           string     `bson:"goal,omitempty" json:"goal,omitempty"`             // e.g. "first half marathon"
	Experience     string     `bson:"experience,omitempty" json:"experience,omitempty"` // e.g. "beginner", "intermediate"
	WeeklyVolumeKm float64    `bson:"weeklyVolumeKm" json:"weeklyVolumeKm"`             // target weekly distance
	RunsPerWeek    int        `bson:"runsPerWeek" json:"runsPerWeek"`                   // target run frequency
	Units          string     `bson:"units,omitempty" json:"units,omitempty"`           // "km" or "mi"
	InjuryHistory  string     `bson:"injuryHistory,omitempty" json:"injuryHistory,omitempty"`
	RaceDate       *time.Time `bson:"raceDate,omitempty" json:"raceDate,omitempty"`
	PlanStartDate  time.Time  `bson:"planStartDate" json:"planStartDate"` // signup date; anchors week numbering
}

// PlanStartMonday returns the Monday on/before the user's signup date. All
// week numbers are counted from this anchor.
func (u *User) PlanStartMonday() time.Time {
	return MondayOf(u.PlanStartDate)
}

// WeekNumberFor returns the 1-based week number of the week containing t,
// relative to the plan-start Monday.
func (u *User) WeekNumberFor(t time.Time) int {
	weeks := DaysBetween(u.PlanStartMonday(), MondayOf(t)) / 7
	if weeks < 0 {
		weeks = 0
	}
	return weeks + 1
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
