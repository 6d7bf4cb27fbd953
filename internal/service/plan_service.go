package service

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/generator"
	"alcyxob/run-coach/internal/logger"
	"alcyxob/run-coach/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// --- Error Definitions ---
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidStatus    = errors.New("invalid session status")
	ErrWeekClearFailed  = errors.New("failed to clear target week")
	ErrWeekInsertFailed = errors.New("failed to insert regenerated week")
	ErrNotOnboarded     = errors.New("user has not completed onboarding")
)

// statsWindowDays is the trailing window used for completion statistics.
const statsWindowDays = 30

// BatchSummary tallies one run of the weekly refresh over all users.
type BatchSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// PlanService drives the weekly plan lifecycle: computing the target week
// and phase, gathering generation context, invoking the external generator
// (or the template fallback) and applying the reconciliation decision.
type PlanService interface {
	// RefreshWeek regenerates the week containing targetWeekMonday for one user.
	RefreshWeek(ctx context.Context, userID primitive.ObjectID, targetWeekMonday time.Time) error

	// RefreshAll runs RefreshWeek for every onboarded runner with bounded
	// concurrency. Per-user failures are tallied, never propagated.
	RefreshAll(ctx context.Context, targetWeekMonday time.Time, concurrency int) BatchSummary

	// WeekSessions returns the sessions of the week containing the given day.
	WeekSessions(ctx context.Context, userID primitive.ObjectID, dayInWeek time.Time) ([]domain.TrainingSession, error)

	// UpdateSession records a completion action (status and/or post-session
	// notes) on a single session.
	UpdateSession(ctx context.Context, userID primitive.ObjectID, sessionID string, status domain.SessionStatus, postSessionNotes string) (*domain.TrainingSession, error)
}

// planService implements the PlanService interface.
type planService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	feedbackRepo repository.FeedbackRepository
	gen          generator.SessionGenerator
	log          *logger.Logger
	locks        *userLocks
	now          func() time.Time
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	feedbackRepo repository.FeedbackRepository,
	gen generator.SessionGenerator,
	log *logger.Logger,
) PlanService {
	return &planService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		feedbackRepo: feedbackRepo,
		gen:          gen,
		log:          log.With("service", "PlanService"),
		locks:        newUserLocks(),
		now:          time.Now,
	}
}

// RefreshWeek regenerates one user's plan for the week containing
// targetWeekMonday. Refreshes for the same user are serialized.
func (s *planService) RefreshWeek(ctx context.Context, userID primitive.ObjectID, targetWeekMonday time.Time) error {
	unlock := s.locks.acquire(userID.Hex())
	defer unlock()

	monday := domain.MondayOf(targetWeekMonday)
	sunday := monday.AddDate(0, 0, 6)
	today := s.today()
	log := s.log.With("userId", userID.Hex(), "weekMonday", monday.Format(domain.DateLayout))

	// 1. Load the user's coaching profile.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.RunsPerWeek <= 0 && user.WeeklyVolumeKm <= 0 {
		return ErrNotOnboarded
	}

	// 2. Compute the training phase for the target week.
	phase := domain.PhaseFor(user.RaceDate, monday, user.PlanStartMonday())
	weekNumber := user.WeekNumberFor(monday)

	// 3. Assemble generation context: stats, persisted feedback, phase.
	stats := s.completionStats(ctx, userID, today)
	wc := generator.WeekContext{
		Goal:           user.Goal,
		Experience:     user.Experience,
		WeeklyVolumeKm: user.WeeklyVolumeKm,
		RunsPerWeek:    user.RunsPerWeek,
		Units:          user.Units,
		InjuryHistory:  user.InjuryHistory,
		Phase:          phase,
		WeekNumber:     weekNumber,
		WeekMonday:     monday,
		Stats:          stats,
	}
	if fb, err := s.feedbackRepo.GetLatest(ctx, userID); err == nil {
		wc.FeedbackSummary = fb.FeedbackSummary
		wc.Prefers = fb.Prefers
		wc.StrugglingWith = fb.StrugglingWith
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Warn("failed to load feedback, generating without it", "error", err)
	}

	// 4. Invoke the external generator; fall back to the template plan on
	// any failure. A single failed attempt is treated as exhausted.
	proposals, err := s.gen.ProposeWeek(ctx, wc)
	if err != nil {
		log.Warn("generator failed, using template plan", "error", err)
		proposals = generator.TemplateWeek(user.RunsPerWeek, user.WeeklyVolumeKm, phase, monday, weekNumber)
	}
	proposals = generator.CleanProposals(proposals, monday, weekNumber, phase)

	// 5/6. Soft validation: frequency and volume deviations are warnings,
	// never blockers. Availability wins over strictness.
	s.validateProposals(log, user, proposals)

	// 7. Reconcile against the existing week and apply delete-then-insert.
	existing, err := s.sessionRepo.FetchRange(ctx, userID, monday, sunday)
	if err != nil {
		return err
	}
	plan := BuildReconciliation(userID, existing, proposals, monday, sunday, today)

	if err := s.sessionRepo.DeleteRange(ctx, userID, plan.DeleteFrom, plan.DeleteTo); err != nil {
		// Abort before inserting anything; no partial state.
		return fmt.Errorf("%w: %v", ErrWeekClearFailed, err)
	}
	if err := s.sessionRepo.InsertMany(ctx, userID, plan.Insert); err != nil {
		// The week is left empty; a retry with the same proposals is safe.
		return fmt.Errorf("%w: %v", ErrWeekInsertFailed, err)
	}

	log.Info("week refreshed", "phase", phase, "inserted", len(plan.Insert))
	return nil
}

// RefreshAll iterates every runner with bounded concurrency. One user's
// failure never aborts the others.
func (s *planService) RefreshAll(ctx context.Context, targetWeekMonday time.Time, concurrency int) BatchSummary {
	if concurrency < 1 {
		concurrency = 1
	}

	var summary BatchSummary
	runners, err := s.userRepo.ListRunners(ctx)
	if err != nil {
		s.log.Error("failed to list runners for batch refresh", "error", err)
		return summary
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range runners {
		user := runners[i]
		g.Go(func() error {
			err := s.RefreshWeek(gctx, user.ID, targetWeekMonday)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNotOnboarded):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				s.log.Error("batch refresh failed for user", "userId", user.ID.Hex(), "error", err)
			default:
				summary.Processed++
			}
			// Per-user failures are tallied, never returned: returning an
			// error here would cancel the remaining users.
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("batch refresh finished",
		"processed", summary.Processed, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary
}

// WeekSessions returns the Monday-Sunday window containing dayInWeek.
func (s *planService) WeekSessions(ctx context.Context, userID primitive.ObjectID, dayInWeek time.Time) ([]domain.TrainingSession, error) {
	monday := domain.MondayOf(dayInWeek)
	return s.sessionRepo.FetchRange(ctx, userID, monday, monday.AddDate(0, 0, 6))
}

// UpdateSession records a completion action on one session.
func (s *planService) UpdateSession(ctx context.Context, userID primitive.ObjectID, sessionID string, status domain.SessionStatus, postSessionNotes string) (*domain.TrainingSession, error) {
	if status != "" && !domain.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	session, err := s.sessionRepo.GetByID(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if status != "" {
		session.Status = status
	}
	if postSessionNotes != "" {
		session.PostSessionNotes = postSessionNotes
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *planService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// completionStats summarizes the trailing 30 days of sessions. Errors are
// swallowed: stats are an enrichment, not a requirement.
func (s *planService) completionStats(ctx context.Context, userID primitive.ObjectID, today time.Time) generator.CompletionStats {
	stats := generator.CompletionStats{WindowDays: statsWindowDays}

	sessions, err := s.sessionRepo.FetchRange(ctx, userID, today.AddDate(0, 0, -statsWindowDays), today)
	if err != nil {
		s.log.Warn("failed to fetch sessions for stats", "userId", userID.Hex(), "error", err)
		return stats
	}

	var planned, completed int
	var completedKm float64
	var completedWithKm int
	skippedByType := make(map[string]int)

	for i := range sessions {
		sess := &sessions[i]
		if sess.IsRest() {
			continue
		}
		planned++
		switch sess.Status {
		case domain.StatusCompleted, domain.StatusPartiallyCompleted:
			completed++
			if sess.Distance != nil {
				completedKm += *sess.Distance
				completedWithKm++
			}
		case domain.StatusSkipped, domain.StatusMissed:
			skippedByType[sess.SessionType]++
		}
	}

	if planned > 0 {
		stats.CompletionRate = float64(completed) / float64(planned)
	}
	if completedWithKm > 0 {
		stats.AvgCompletedKm = completedKm / float64(completedWithKm)
	}

	types := make([]string, 0, len(skippedByType))
	for t := range skippedByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if skippedByType[types[i]] != skippedByType[types[j]] {
			return skippedByType[types[i]] > skippedByType[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > 3 {
		types = types[:3]
	}
	stats.MostSkippedTypes = types
	return stats
}

// validateProposals logs soft warnings for frequency and volume deviations.
func (s *planService) validateProposals(log *logger.Logger, user *domain.User, proposals []generator.SessionProposal) {
	var runs int
	var volume float64
	for _, p := range proposals {
		if p.SessionType == "" || strings.Contains(strings.ToLower(p.SessionType), "rest") {
			continue
		}
		runs++
		if p.Distance != nil {
			if *p.Distance < 0 {
				log.Warn("proposal has negative distance", "date", p.Date, "sessionType", p.SessionType)
				continue
			}
			volume += *p.Distance
		}
	}

	if user.RunsPerWeek > 0 {
		diff := runs - user.RunsPerWeek
		if diff < -1 || diff > 1 {
			log.Warn("proposed frequency deviates from target",
				"proposed", runs, "target", user.RunsPerWeek)
		}
	}
	if user.WeeklyVolumeKm > 0 && volume < user.WeeklyVolumeKm*0.85 {
		log.Warn("proposed volume materially below target",
			"proposed", volume, "target", user.WeeklyVolumeKm)
	}
}
