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

type chatFixture struct {
	svc      *chatService
	user     *domain.User
	sessions *fakeSessionRepo
	conv     *fakeConvRepo
	gen      *fakeGenerator
}

func newChatFixture(t *testing.T, sessions ...domain.TrainingSession) *chatFixture {
	t.Helper()
	user := &domain.User{
		ID:            primitive.NewObjectID(),
		Role:          domain.RoleRunner,
		PlanStartDate: monday,
	}
	for i := range sessions {
		sessions[i].UserID = user.ID
	}
	sessionRepo := newFakeSessionRepo(sessions...)
	convRepo := &fakeConvRepo{}
	gen := &fakeGenerator{}

	svc := NewChatService(newFakeUserRepo(user), sessionRepo, convRepo, gen, logger.NewNop()).(*chatService)
	svc.now = func() time.Time { return time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC) }

	return &chatFixture{svc: svc, user: user, sessions: sessionRepo, conv: convRepo, gen: gen}
}

func tempoOnWednesday() domain.TrainingSession {
	return domain.TrainingSession{
		ID:          "sess-tempo",
		WeekNumber:  1,
		DayOfWeek:   3,
		Date:        "2024-06-12",
		SessionType: "Tempo Run",
		Status:      domain.StatusNotCompleted,
	}
}

func TestHandleMessageAdjustRequestParksPending(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	fx.gen.adjustment = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-12", SessionType: "Tempo Run", NewDate: "2024-06-14",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "can you move my tempo run to friday?")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Contains(t, reply.Message, "Shall I go ahead?")
	assert.Equal(t, 1, fx.conv.setCalls)
	require.NotNil(t, fx.conv.pending)
	assert.Equal(t, "2024-06-14", fx.conv.pending.NewDate)
	assert.Empty(t, fx.sessions.updated, "nothing is applied before confirmation")
}

func TestHandleMessageConfirmAppliesExactlyOnce(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	fx.conv.pending = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-12", SessionType: "Tempo Run", NewDate: "2024-06-14",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "yes please")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	require.Len(t, fx.sessions.updated, 1)
	assert.Equal(t, 1, fx.conv.clearCalls)
	assert.Nil(t, fx.conv.pending, "conversation returns to idle")

	updated := fx.sessions.sessions["sess-tempo"]
	assert.Equal(t, "2024-06-14", updated.Date)
	assert.Equal(t, 5, updated.DayOfWeek)
	assert.True(t, updated.Modified)

	// A second confirmation has nothing pending and is not handled.
	reply, err = fx.svc.HandleMessage(context.Background(), fx.user.ID, "yes")
	require.NoError(t, err)
	assert.False(t, reply.Handled)
	assert.Len(t, fx.sessions.updated, 1)
}

func TestHandleMessageRejectClearsWithoutApplying(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	fx.conv.pending = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-12", SessionType: "Tempo Run", NewDate: "2024-06-14",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "no thanks")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Equal(t, 1, fx.conv.clearCalls)
	assert.Empty(t, fx.sessions.updated)
	assert.Equal(t, "2024-06-12", fx.sessions.sessions["sess-tempo"].Date)
}

func TestHandleMessageUnrelatedKeepsPending(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	pending := &domain.PendingAdjustment{Week: 1, Date: "2024-06-12", SessionType: "Tempo Run"}
	fx.conv.pending = pending

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "how was your weekend?")

	require.NoError(t, err)
	assert.False(t, reply.Handled)
	assert.Same(t, pending, fx.conv.pending, "pending adjustment survives unrelated chat")
}

func TestHandleMessageNewRequestReplacesPending(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	fx.conv.pending = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-12", SessionType: "Tempo Run", NewDate: "2024-06-14",
	}
	fx.gen.adjustment = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-12", SessionType: "Tempo Run", NewDate: "2024-06-15",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "no, move it to saturday instead")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Equal(t, "2024-06-15", fx.conv.pending.NewDate)
	assert.Empty(t, fx.sessions.updated)
}

func TestHandleMessageGeneratorFailureAsksToRephrase(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	fx.gen.adjustErr = assert.AnError

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "move my tempo run")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Contains(t, reply.Message, "rephrase")
	assert.Nil(t, fx.conv.pending)
}

func TestApplyPendingStaleYearFallsBackToMonthDay(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	// The pending adjustment was proposed from a transcript carrying last
	// year's dates.
	fx.conv.pending = &domain.PendingAdjustment{
		Week: 1, Date: "2023-06-12", SessionType: "Tempo Run", NewNotes: "take it easy",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "yes")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	require.Len(t, fx.sessions.updated, 1)
	assert.Equal(t, "take it easy", fx.sessions.sessions["sess-tempo"].Notes)
}

func TestApplyPendingAmbiguousTypeTakesFirstMatch(t *testing.T) {
	a := tempoOnWednesday()
	b := tempoOnWednesday()
	b.ID = "sess-tempo-2"
	b.Date = "2024-06-14"
	b.DayOfWeek = 5
	fx := newChatFixture(t, a, b)

	// Date agrees with neither session and the year is current, so the
	// first type match wins.
	fx.conv.pending = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-13", SessionType: "Tempo Run", NewNotes: "hills",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "yes")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Len(t, fx.sessions.updated, 1)
}

func TestApplyPendingMissingTargetReportsAndResets(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())
	fx.conv.pending = &domain.PendingAdjustment{
		Week: 1, Date: "2024-06-13", SessionType: "Intervals",
	}

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "yes")

	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Contains(t, reply.Message, "nothing was changed")
	assert.Empty(t, fx.sessions.updated)
	assert.Equal(t, 1, fx.conv.clearCalls, "the conversation still resets to idle")
}

func TestHandleMessageIdleSmallTalkNotHandled(t *testing.T) {
	fx := newChatFixture(t, tempoOnWednesday())

	reply, err := fx.svc.HandleMessage(context.Background(), fx.user.ID, "nice weather today")

	require.NoError(t, err)
	assert.False(t, reply.Handled)
}
