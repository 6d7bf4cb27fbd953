package service

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/generator"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReconciliationPlan is the fully-decided outcome of reconciling a week:
// one inclusive date range to clear and the sessions to insert afterwards.
// Deciding everything before mutating anything means a crash between delete
// and insert can only leave a gap for the target week, never duplicates or
// deletions outside it.
type ReconciliationPlan struct {
	DeleteFrom time.Time
	DeleteTo   time.Time
	Insert     []domain.TrainingSession
}

// BuildReconciliation decides what to delete and what to insert for one
// target week, preserving sessions the runner has interacted with.
//
// If no existing session in the week is interacted, the whole week is
// cleared. If any is, only [today, Sunday] is cleared; days already lived
// are untouched regardless of interaction. Proposals dated before the week's
// Monday are discarded (generator date drift), and a proposal for an
// already-lived day loses to an interacted session occupying that date.
// Every inserted session gets a fresh ID and a not_completed status.
func BuildReconciliation(
	userID primitive.ObjectID,
	existing []domain.TrainingSession,
	proposed []generator.SessionProposal,
	weekMonday, weekSunday, today time.Time,
) ReconciliationPlan {
	weekMonday = domain.MondayOf(weekMonday)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	hasInteracted := false
	interactedDates := make(map[string]bool)
	for i := range existing {
		if existing[i].Interacted() {
			hasInteracted = true
			interactedDates[existing[i].Date] = true
		}
	}

	deleteFrom := weekMonday
	if hasInteracted && today.After(weekMonday) {
		// Clear only from today forward; the boundary never moves before
		// the week's Monday so nothing outside the target range is touched.
		deleteFrom = today
	}

	todayStr := today.Format(domain.DateLayout)
	mondayStr := weekMonday.Format(domain.DateLayout)

	insert := make([]domain.TrainingSession, 0, len(proposed))
	for _, p := range proposed {
		if p.Date == "" || p.Date < mondayStr {
			// Defensive guard against generator date drift.
			continue
		}
		if p.Date < todayStr && hasInteracted && interactedDates[p.Date] {
			// Existing interacted data wins over a regenerated past day.
			continue
		}
		insert = append(insert, domain.TrainingSession{
			ID:          uuid.NewString(),
			UserID:      userID,
			WeekNumber:  p.WeekNumber,
			DayOfWeek:   p.DayOfWeek,
			Date:        p.Date,
			SessionType: p.SessionType,
			Distance:    p.Distance,
			Time:        p.Time,
			Notes:       p.Notes,
			Status:      domain.StatusNotCompleted,
			Phase:       p.Phase,
		})
	}

	return ReconciliationPlan{
		DeleteFrom: deleteFrom,
		DeleteTo:   weekSunday,
		Insert:     insert,
	}
}
