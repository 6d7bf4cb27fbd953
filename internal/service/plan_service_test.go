package service

import (
	"context"
	"testing"
	"time"

	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type planFixture struct {
	svc      *planService
	user     *domain.User
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	feedback *fakeFeedbackRepo
	gen      *fakeGenerator
}

func newPlanFixture(t *testing.T, user *domain.User, sessions ...domain.TrainingSession) *planFixture {
	t.Helper()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	for i := range sessions {
		sessions[i].UserID = user.ID
	}
	users := newFakeUserRepo(user)
	sessionRepo := newFakeSessionRepo(sessions...)
	feedbackRepo := newFakeFeedbackRepo()
	gen := &fakeGenerator{}

	svc := NewPlanService(users, sessionRepo, feedbackRepo, gen, logger.NewNop()).(*planService)
	svc.now = func() time.Time { return time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC) }

	return &planFixture{svc: svc, user: user, users: users, sessions: sessionRepo, feedback: feedbackRepo, gen: gen}
}

func onboardedRunner() *domain.User {
	return &domain.User{
		Role:           domain.RoleRunner,
		RunsPerWeek:    3,
		WeeklyVolumeKm: 30,
		PlanStartDate:  monday,
	}
}

func TestRefreshWeekReplacesUntouchedWeek(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner(),
		existingSession("2024-06-10", domain.StatusNotCompleted, ""),
		existingSession("2024-06-13", domain.StatusNotCompleted, ""),
	)
	fx.gen.weekProposals = weekOfProposals()

	err := fx.svc.RefreshWeek(context.Background(), fx.user.ID, monday)

	require.NoError(t, err)
	require.Len(t, fx.sessions.deleteCalls, 1)
	assert.Equal(t, monday, fx.sessions.deleteCalls[0].from)
	assert.Equal(t, sunday, fx.sessions.deleteCalls[0].to)
	require.Len(t, fx.sessions.inserted, 1)
	assert.Len(t, fx.sessions.inserted[0], 7)

	// Week one of a fresh plan is a Base week.
	for _, s := range fx.sessions.inserted[0] {
		assert.Equal(t, domain.PhaseBase, s.Phase)
		assert.Equal(t, domain.StatusNotCompleted, s.Status)
	}
}

func TestRefreshWeekPreservesInteractedSessions(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner(),
		existingSession("2024-06-10", domain.StatusCompleted, ""),
		existingSession("2024-06-13", domain.StatusNotCompleted, ""),
	)
	fx.gen.weekProposals = weekOfProposals()

	err := fx.svc.RefreshWeek(context.Background(), fx.user.ID, monday)

	require.NoError(t, err)
	// today is Wednesday 2024-06-12; the completed Monday is outside the
	// cleared range and survives in the store.
	require.Len(t, fx.sessions.deleteCalls, 1)
	assert.Equal(t, "2024-06-12", fx.sessions.deleteCalls[0].from.Format(domain.DateLayout))
	_, err = fx.sessions.GetByID(context.Background(), fx.user.ID, "old-2024-06-10")
	assert.NoError(t, err)
}

func TestRefreshWeekFallsBackToTemplate(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner())
	fx.gen.weekErr = assert.AnError

	err := fx.svc.RefreshWeek(context.Background(), fx.user.ID, monday)

	require.NoError(t, err)
	require.Len(t, fx.sessions.inserted, 1)
	require.Len(t, fx.sessions.inserted[0], 7)

	types := make(map[string]bool)
	for _, s := range fx.sessions.inserted[0] {
		types[s.SessionType] = true
	}
	assert.True(t, types["Long Run"])
	assert.True(t, types["Rest"])
}

func TestRefreshWeekRequiresOnboarding(t *testing.T) {
	fx := newPlanFixture(t, &domain.User{Role: domain.RoleRunner, PlanStartDate: monday})

	err := fx.svc.RefreshWeek(context.Background(), fx.user.ID, monday)

	assert.ErrorIs(t, err, ErrNotOnboarded)
	assert.Empty(t, fx.sessions.deleteCalls)
	assert.Equal(t, 0, fx.gen.weekCalls)
}

func TestRefreshWeekUnknownUser(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner())

	err := fx.svc.RefreshWeek(context.Background(), primitive.NewObjectID(), monday)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshWeekAbortsWhenClearFails(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner())
	fx.gen.weekProposals = weekOfProposals()
	fx.sessions.deleteErr = assert.AnError

	err := fx.svc.RefreshWeek(context.Background(), fx.user.ID, monday)

	assert.ErrorIs(t, err, ErrWeekClearFailed)
	assert.Empty(t, fx.sessions.inserted, "nothing is inserted after a failed clear")
}

func TestRefreshWeekReportsInsertFailure(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner())
	fx.gen.weekProposals = weekOfProposals()
	fx.sessions.insertErr = assert.AnError

	err := fx.svc.RefreshWeek(context.Background(), fx.user.ID, monday)

	assert.ErrorIs(t, err, ErrWeekInsertFailed)
}

func TestRefreshAllIsolatesPerUserFailures(t *testing.T) {
	ok := onboardedRunner()
	ok.ID = primitive.NewObjectID()
	notOnboarded := &domain.User{ID: primitive.NewObjectID(), Role: domain.RoleRunner, PlanStartDate: monday}

	fx := newPlanFixture(t, ok)
	fx.users.users[notOnboarded.ID] = notOnboarded
	fx.users.runners = append(fx.users.runners, *notOnboarded)
	// A runner in the listing whose record has vanished fails its refresh.
	fx.users.runners = append(fx.users.runners, domain.User{ID: primitive.NewObjectID(), Role: domain.RoleRunner})
	fx.gen.weekProposals = weekOfProposals()

	summary := fx.svc.RefreshAll(context.Background(), monday, 2)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
}

func TestUpdateSessionRecordsCompletion(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner(),
		existingSession("2024-06-10", domain.StatusNotCompleted, ""),
	)

	updated, err := fx.svc.UpdateSession(context.Background(), fx.user.ID, "old-2024-06-10",
		domain.StatusCompleted, "negative split, felt strong")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "negative split, felt strong", updated.PostSessionNotes)
	assert.True(t, updated.Interacted())
}

func TestUpdateSessionRejectsUnknownStatus(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner(),
		existingSession("2024-06-10", domain.StatusNotCompleted, ""),
	)

	_, err := fx.svc.UpdateSession(context.Background(), fx.user.ID, "old-2024-06-10",
		domain.SessionStatus("done-ish"), "")

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, fx.sessions.updated)
}

func TestUpdateSessionNotFound(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner())

	_, err := fx.svc.UpdateSession(context.Background(), fx.user.ID, "missing",
		domain.StatusCompleted, "")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWeekSessionsReturnsMondayToSunday(t *testing.T) {
	fx := newPlanFixture(t, onboardedRunner(),
		existingSession("2024-06-09", domain.StatusNotCompleted, ""), // previous week
		existingSession("2024-06-10", domain.StatusNotCompleted, ""),
		existingSession("2024-06-16", domain.StatusNotCompleted, ""),
		existingSession("2024-06-17", domain.StatusNotCompleted, ""), // next week
	)

	got, err := fx.svc.WeekSessions(context.Background(), fx.user.ID, day("2024-06-12"))

	require.NoError(t, err)
	dates := make([]string, 0, len(got))
	for _, s := range got {
		dates = append(dates, s.Date)
	}
	assert.ElementsMatch(t, []string{"2024-06-10", "2024-06-16"}, dates)
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
