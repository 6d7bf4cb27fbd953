package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingAdjustment is a single-workout change proposed in chat and awaiting
// the runner's confirmation. It identifies the target session by week, date
// and type; Date may carry a stale year when the conversation has lived
// across a year boundary, which the apply path compensates for.
type PendingAdjustment struct {
	Week        int      `bson:"week" json:"week"`
	Date        string   `bson:"date" json:"date"` // YYYY-MM-DD
	SessionType string   `bson:"sessionType" json:"sessionType"`
	NewNotes    string   `bson:"newNotes,omitempty" json:"newNotes,omitempty"`
	NewDistance *float64 `bson:"newDistance,omitempty" json:"newDistance,omitempty"`
	NewTime     *int     `bson:"newTime,omitempty" json:"newTime,omitempty"`
	NewDate     string   `bson:"newDate,omitempty" json:"newDate,omitempty"` // optional move
}

// Conversation holds the per-user chat state. There is exactly one pending
// adjustment at a time; a new adjustment request replaces an unresolved one.
// The state must survive arbitrary delay between the proposal and the
// runner's next message, so it is persisted rather than held in memory.
type Conversation struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	PendingAdjustment *PendingAdjustment `bson:"pendingAdjustment,omitempty" json:"pendingAdjustment,omitempty"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Awaiting reports whether the conversation is waiting on a confirm/reject.
func (c *Conversation) Awaiting() bool {
	return c.PendingAdjustment != nil
}
