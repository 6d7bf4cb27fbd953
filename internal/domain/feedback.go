package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainingFeedback is the aggregated weekly signal fed into plan generation.
// At most one record exists per (userId, weekStartDate); weekly extraction
// appends to the summary and unions the lists so that manually entered
// preferences survive automated overwrites.
type TrainingFeedback struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	WeekStartDate   string             `bson:"weekStartDate" json:"weekStartDate"` // Monday, YYYY-MM-DD
	Prefers         []string           `bson:"prefers,omitempty" json:"prefers,omitempty"`
	StrugglingWith  []string           `bson:"strugglingWith,omitempty" json:"strugglingWith,omitempty"`
	FeedbackSummary string             `bson:"feedbackSummary,omitempty" json:"feedbackSummary,omitempty"`
	RawDataKey      string             `bson:"rawDataKey,omitempty" json:"rawDataKey,omitempty"` // object-store key of the source blob
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MergeAutomated folds an automated extraction result into the existing
// record: the new summary is appended, never replacing prior text, and the
// string lists are unioned so earlier (possibly manual) entries are kept.
func (f *TrainingFeedback) MergeAutomated(summary string, prefers, strugglingWith []string) {
	if summary != "" {
		if f.FeedbackSummary == "" {
			f.FeedbackSummary = summary
		} else {
			f.FeedbackSummary = f.FeedbackSummary + "\n\n" + summary
		}
	}
	f.Prefers = unionStrings(f.Prefers, prefers)
	f.StrugglingWith = unionStrings(f.StrugglingWith, strugglingWith)
}

func unionStrings(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(extra))
	for _, s := range existing {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range extra {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
