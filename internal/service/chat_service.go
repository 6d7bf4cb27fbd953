package service

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/generator"
	"alcyxob/run-coach/internal/logger"
	"alcyxob/run-coach/internal/repository"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAdjustmentTargetMissing = errors.New("could not find the session to adjust")
)

// ChatReply is the adjustment state machine's answer to one message.
// Handled=false means the message is not part of the adjustment flow and the
// caller (the general chat layer) should respond instead.
type ChatReply struct {
	Handled bool   `json:"handled"`
	Message string `json:"message,omitempty"`
}

// ChatService runs the per-conversation adjustment state machine: Idle until
// an adjustment request arrives, AwaitingConfirmation while exactly one
// pending adjustment exists, back to Idle on confirm or reject. A new
// adjustment request replaces an unresolved one.
type ChatService interface {
	HandleMessage(ctx context.Context, userID primitive.ObjectID, text string) (*ChatReply, error)
}

// chatService implements the ChatService interface.
type chatService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	convRepo    repository.ConversationRepository
	gen         generator.SessionGenerator
	log         *logger.Logger
	now         func() time.Time
}

// NewChatService creates a new instance of chatService.
func NewChatService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	convRepo repository.ConversationRepository,
	gen generator.SessionGenerator,
	log *logger.Logger,
) ChatService {
	return &chatService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		convRepo:    convRepo,
		gen:         gen,
		log:         log.With("service", "ChatService"),
		now:         time.Now,
	}
}

// HandleMessage classifies one incoming message and advances the state
// machine. Apply failures are reported to the runner in plain language; the
// conversation always returns to Idle after a confirm attempt.
func (s *chatService) HandleMessage(ctx context.Context, userID primitive.ObjectID, text string) (*ChatReply, error) {
	conv, err := s.convRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	intent := ClassifyMessage(text)

	if conv.Awaiting() {
		switch intent {
		case IntentConfirm:
			return s.applyPending(ctx, userID, conv.PendingAdjustment)
		case IntentReject:
			if err := s.convRepo.ClearPending(ctx, userID); err != nil {
				return nil, err
			}
			return &ChatReply{Handled: true, Message: "No problem, I've left your plan as it was."}, nil
		case IntentAdjust:
			// A new request replaces the unresolved one.
			return s.proposeAdjustment(ctx, userID, text)
		default:
			// The pending adjustment persists until confirm/reject/replace.
			return &ChatReply{Handled: false}, nil
		}
	}

	if intent == IntentAdjust {
		return s.proposeAdjustment(ctx, userID, text)
	}
	return &ChatReply{Handled: false}, nil
}

// proposeAdjustment asks the generator for one structured change and parks
// it as the pending adjustment.
func (s *chatService) proposeAdjustment(ctx context.Context, userID primitive.ObjectID, text string) (*ChatReply, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	weekNumber := user.WeekNumberFor(s.now().UTC())
	sessions, err := s.sessionRepo.FetchByWeek(ctx, userID, weekNumber)
	if err != nil {
		return nil, err
	}

	pending, err := s.gen.ProposeAdjustment(ctx, generator.AdjustmentContext{
		Message:    text,
		WeekNumber: weekNumber,
		Sessions:   sessions,
	})
	if err != nil {
		s.log.Warn("adjustment proposal failed", "userId", userID.Hex(), "error", err)
		return &ChatReply{
			Handled: true,
			Message: "Sorry, I couldn't work out which workout to change. Could you rephrase that?",
		}, nil
	}

	if err := s.convRepo.SetPending(ctx, userID, pending); err != nil {
		return nil, err
	}

	return &ChatReply{Handled: true, Message: confirmationPrompt(pending)}, nil
}

// applyPending looks up the target session and applies the stored change.
// The state machine resets to Idle regardless of the outcome.
func (s *chatService) applyPending(ctx context.Context, userID primitive.ObjectID, pending *domain.PendingAdjustment) (*ChatReply, error) {
	target, err := s.locateTarget(ctx, userID, pending)

	// Clear the pending adjustment first: whatever happens below, the
	// conversation is back in Idle.
	if clearErr := s.convRepo.ClearPending(ctx, userID); clearErr != nil {
		s.log.Error("failed to clear pending adjustment", "userId", userID.Hex(), "error", clearErr)
	}

	if err != nil {
		s.log.Warn("adjustment target lookup failed", "userId", userID.Hex(), "error", err)
		return &ChatReply{
			Handled: true,
			Message: "I couldn't find that workout in your plan anymore, so nothing was changed.",
		}, nil
	}

	if pending.NewNotes != "" {
		target.Notes = pending.NewNotes
	}
	if pending.NewDistance != nil {
		target.Distance = pending.NewDistance
	}
	if pending.NewTime != nil {
		target.Time = pending.NewTime
	}
	if pending.NewDate != "" {
		if d, parseErr := time.Parse(domain.DateLayout, pending.NewDate); parseErr == nil {
			target.Date = pending.NewDate
			target.DayOfWeek = domain.DaysBetween(domain.MondayOf(d), d) + 1
		}
	}
	target.Modified = true

	if err := s.sessionRepo.Update(ctx, target); err != nil {
		s.log.Error("failed to apply adjustment", "userId", userID.Hex(), "sessionId", target.ID, "error", err)
		return &ChatReply{
			Handled: true,
			Message: "Something went wrong saving that change, so your plan is unchanged. Please try again.",
		}, nil
	}

	return &ChatReply{
		Handled: true,
		Message: fmt.Sprintf("Done! I've updated your %s on %s.", target.SessionType, target.Date),
	}, nil
}

// locateTarget finds the session a pending adjustment refers to, by week and
// session type plus a date match. A date whose year predates the current
// year is treated as stale (long-lived conversation) and matched by
// month-and-day instead. Ambiguous matches take the first row.
func (s *chatService) locateTarget(ctx context.Context, userID primitive.ObjectID, pending *domain.PendingAdjustment) (*domain.TrainingSession, error) {
	sessions, err := s.sessionRepo.FetchByWeek(ctx, userID, pending.Week)
	if err != nil {
		return nil, err
	}

	var typeMatches []*domain.TrainingSession
	for i := range sessions {
		if strings.EqualFold(sessions[i].SessionType, pending.SessionType) {
			typeMatches = append(typeMatches, &sessions[i])
		}
	}
	if len(typeMatches) == 0 {
		return nil, ErrAdjustmentTargetMissing
	}

	for _, m := range typeMatches {
		if m.Date == pending.Date {
			return m, nil
		}
	}

	if s.hasStaleYear(pending.Date) {
		wantMD := monthDay(pending.Date)
		for _, m := range typeMatches {
			if wantMD != "" && monthDay(m.Date) == wantMD {
				return m, nil
			}
		}
	}

	// Best effort: same week and type but no date agreement.
	return typeMatches[0], nil
}

func (s *chatService) hasStaleYear(date string) bool {
	if len(date) < 4 {
		return false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return false
	}
	return year < s.now().UTC().Year()
}

// monthDay returns the MM-DD part of a YYYY-MM-DD date string.
func monthDay(date string) string {
	if len(date) != len(domain.DateLayout) {
		return ""
	}
	return date[5:]
}

func confirmationPrompt(p *domain.PendingAdjustment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I'd change: your %s on %s", p.SessionType, p.Date)
	if p.NewDate != "" {
		fmt.Fprintf(&b, " moves to %s", p.NewDate)
	}
	if p.NewDistance != nil {
		fmt.Fprintf(&b, ", distance %.1f km", *p.NewDistance)
	}
	if p.NewTime != nil {
		fmt.Fprintf(&b, ", duration %d min", *p.NewTime)
	}
	if p.NewNotes != "" {
		fmt.Fprintf(&b, " (%s)", p.NewNotes)
	}
	b.WriteString(". Shall I go ahead?")
	return b.String()
}
