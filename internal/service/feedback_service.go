package service

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/generator"
	"alcyxob/run-coach/internal/logger"
	"alcyxob/run-coach/internal/repository"
	"alcyxob/run-coach/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrFeedbackNotFound = errors.New("no feedback recorded for that week")
)

// FeedbackService turns a week of chat and workout signal into the
// persisted TrainingFeedback record and archives the raw source blob.
type FeedbackService interface {
	// ExtractWeekly runs feedback extraction for the week starting at
	// weekStart and merges the result into the stored record. A generator
	// failure means "no feedback available" and is not an error.
	ExtractWeekly(ctx context.Context, userID primitive.ObjectID, weekStart time.Time, transcript []string) (*domain.TrainingFeedback, error)

	// SetManual records explicitly stated preferences; they survive later
	// automated overwrites.
	SetManual(ctx context.Context, userID primitive.ObjectID, weekStart time.Time, prefers, strugglingWith []string) (*domain.TrainingFeedback, error)

	// Export returns the stored feedback for a week plus a presigned URL
	// for the archived raw blob, when one exists.
	Export(ctx context.Context, userID primitive.ObjectID, weekStartDate string) (*domain.TrainingFeedback, string, error)
}

// feedbackService implements the FeedbackService interface.
type feedbackService struct {
	sessionRepo  repository.SessionRepository
	feedbackRepo repository.FeedbackRepository
	gen          generator.SessionGenerator
	fileStorage  storage.FileStorage
	log          *logger.Logger
}

// NewFeedbackService creates a new instance of feedbackService.
func NewFeedbackService(
	sessionRepo repository.SessionRepository,
	feedbackRepo repository.FeedbackRepository,
	gen generator.SessionGenerator,
	fileStorage storage.FileStorage,
	log *logger.Logger,
) FeedbackService {
	return &feedbackService{
		sessionRepo:  sessionRepo,
		feedbackRepo: feedbackRepo,
		gen:          gen,
		fileStorage:  fileStorage,
		log:          log.With("service", "FeedbackService"),
	}
}

// ExtractWeekly gathers the week's signal, runs extraction and merges the
// result into the stored record for that week.
func (s *feedbackService) ExtractWeekly(ctx context.Context, userID primitive.ObjectID, weekStart time.Time, transcript []string) (*domain.TrainingFeedback, error) {
	monday := domain.MondayOf(weekStart)
	weekStartDate := monday.Format(domain.DateLayout)
	log := s.log.With("userId", userID.Hex(), "weekStart", weekStartDate)

	// 1. Gather the week's workout signal.
	sessions, err := s.sessionRepo.FetchRange(ctx, userID, monday, monday.AddDate(0, 0, 6))
	if err != nil {
		return nil, err
	}
	input := generator.FeedbackInput{Transcript: transcript}
	for i := range sessions {
		if sessions[i].PostSessionNotes != "" {
			input.WorkoutNotes = append(input.WorkoutNotes, sessions[i].PostSessionNotes)
		}
		if sessions[i].Status == domain.StatusSkipped || sessions[i].Status == domain.StatusMissed {
			input.SkippedTypes = append(input.SkippedTypes, sessions[i].SessionType)
		}
	}

	// 2. Run extraction. Failure means "no feedback available this week".
	result, err := s.gen.ExtractFeedback(ctx, input)
	if err != nil {
		log.Warn("feedback extraction failed, skipping week", "error", err)
		return nil, nil
	}

	// 3. Merge into the existing record (append summary, union lists).
	feedback, err := s.feedbackRepo.GetByWeek(ctx, userID, weekStartDate)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		feedback = &domain.TrainingFeedback{UserID: userID, WeekStartDate: weekStartDate}
	}
	feedback.MergeAutomated(result.Summary, result.Prefers, result.StrugglingWith)

	// 4. Archive the raw source blob; a failed archive is not fatal.
	if key, archiveErr := s.archiveRaw(ctx, userID, weekStartDate, input, result); archiveErr != nil {
		log.Warn("failed to archive raw feedback blob", "error", archiveErr)
	} else {
		feedback.RawDataKey = key
	}

	if err := s.feedbackRepo.Upsert(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// SetManual merges explicitly stated preferences into the week's record.
func (s *feedbackService) SetManual(ctx context.Context, userID primitive.ObjectID, weekStart time.Time, prefers, strugglingWith []string) (*domain.TrainingFeedback, error) {
	weekStartDate := domain.MondayOf(weekStart).Format(domain.DateLayout)

	feedback, err := s.feedbackRepo.GetByWeek(ctx, userID, weekStartDate)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		feedback = &domain.TrainingFeedback{UserID: userID, WeekStartDate: weekStartDate}
	}
	feedback.MergeAutomated("", prefers, strugglingWith)

	if err := s.feedbackRepo.Upsert(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// Export returns the stored record and a presigned URL for its raw blob.
func (s *feedbackService) Export(ctx context.Context, userID primitive.ObjectID, weekStartDate string) (*domain.TrainingFeedback, string, error) {
	feedback, err := s.feedbackRepo.GetByWeek(ctx, userID, weekStartDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrFeedbackNotFound
		}
		return nil, "", err
	}

	var url string
	if feedback.RawDataKey != "" {
		url, err = s.fileStorage.GeneratePresignedDownloadURL(ctx, feedback.RawDataKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			s.log.Warn("failed to presign feedback export", "userId", userID.Hex(), "error", err)
			url = ""
		}
	}
	return feedback, url, nil
}

// archiveRaw stores the extraction input and output as one JSON object.
func (s *feedbackService) archiveRaw(ctx context.Context, userID primitive.ObjectID, weekStartDate string, input generator.FeedbackInput, result *generator.FeedbackResult) (string, error) {
	blob, err := json.Marshal(map[string]interface{}{
		"input":  input,
		"result": result,
	})
	if err != nil {
		return "", err
	}

	key := path.Join("feedback", userID.Hex(), weekStartDate, fmt.Sprintf("%s.json", uuid.NewString()))
	if err := s.fileStorage.PutObject(ctx, key, "application/json", blob); err != nil {
		return "", err
	}
	return key, nil
}
