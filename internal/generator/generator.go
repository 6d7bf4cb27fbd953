package generator

import (
	"alcyxob/run-coach/internal/domain"
	"context"
	"errors"
	"time"
)

// ErrGenerationFailed is returned for every upstream failure mode: timeout,
// transport error, malformed output, missing credentials. Callers treat all
// of them the same way and fall back to the template plan.
var ErrGenerationFailed = errors.New("session generation failed")

// SessionProposal is a candidate training session returned by the external
// generator. It is untrusted until validated.
type SessionProposal struct {
	Date              string       `json:"date"` // YYYY-MM-DD
	DayOfWeek         int          `json:"dayOfWeek"`
	SessionType       string       `json:"sessionType"`
	Distance          *float64     `json:"distance,omitempty"`
	Time              *int         `json:"time,omitempty"`
	Notes             string       `json:"notes,omitempty"`
	WeekNumber        int          `json:"weekNumber"`
	Phase             domain.Phase `json:"phase"`
	SuggestedLocation string       `json:"suggestedLocation,omitempty"`
}

// CompletionStats summarizes the runner's recent history for the prompt.
type CompletionStats struct {
	WindowDays       int
	CompletionRate   float64 // completed / planned, 0..1
	AvgCompletedKm   float64
	MostSkippedTypes []string
}

// WeekContext carries everything the generator needs to propose one week.
type WeekContext struct {
	Goal            string
	Experience      string
	WeeklyVolumeKm  float64
	RunsPerWeek     int
	Units           string
	InjuryHistory   string
	Phase           domain.Phase
	WeekNumber      int
	WeekMonday      time.Time
	FeedbackSummary string
	Prefers         []string
	StrugglingWith  []string
	Stats           CompletionStats
	LocationHint    string
}

// AdjustmentContext asks the generator for one structured change to a single
// session, derived from a chat message.
type AdjustmentContext struct {
	Message    string
	WeekNumber int
	Sessions   []domain.TrainingSession // the week the runner is talking about
}

// FeedbackInput is one week's worth of raw signal for feedback extraction.
type FeedbackInput struct {
	Transcript   []string
	WorkoutNotes []string
	SkippedTypes []string
}

// FeedbackResult is the extracted weekly feedback.
type FeedbackResult struct {
	Summary        string   `json:"summary"`
	Prefers        []string `json:"prefers,omitempty"`
	StrugglingWith []string `json:"strugglingWith,omitempty"`
}

// SessionGenerator is the LLM boundary. Implementations must bound every
// call with the context deadline and return ErrGenerationFailed (wrapped)
// for anything that prevents producing a usable result.
type SessionGenerator interface {
	ProposeWeek(ctx context.Context, wc WeekContext) ([]SessionProposal, error)
	ProposeAdjustment(ctx context.Context, ac AdjustmentContext) (*domain.PendingAdjustment, error)
	ExtractFeedback(ctx context.Context, in FeedbackInput) (*FeedbackResult, error)
}

// CleanProposals drops proposals that cannot be placed on the calendar
// (missing or unparseable dates) and normalizes day-of-week and week fields
// from the date. Negative distances or times on non-rest sessions are a
// validation concern for the caller to log, not a reason to drop.
func CleanProposals(proposals []SessionProposal, weekMonday time.Time, weekNumber int, phase domain.Phase) []SessionProposal {
	cleaned := make([]SessionProposal, 0, len(proposals))
	for _, p := range proposals {
		if p.Date == "" {
			continue
		}
		d, err := time.Parse(domain.DateLayout, p.Date)
		if err != nil {
			continue
		}
		p.DayOfWeek = domain.DaysBetween(domain.MondayOf(d), d) + 1
		p.WeekNumber = weekNumber
		p.Phase = phase
		cleaned = append(cleaned, p)
	}
	return cleaned
}
