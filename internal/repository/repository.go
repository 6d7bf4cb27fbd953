package repository

import (
	"alcyxob/run-coach/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	// ListRunners streams every runner account, for the weekly batch job.
	ListRunners(ctx context.Context) ([]domain.User, error)
}

// SessionRepository is the store of training sessions. All operations are
// scoped by user and an inclusive date range (or a week number); the
// reconciliation engine relies on DeleteRange/InsertMany being applied in
// that order, never interleaved.
type SessionRepository interface {
	FetchRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.TrainingSession, error)
	FetchByWeek(ctx context.Context, userID primitive.ObjectID, weekNumber int) ([]domain.TrainingSession, error)
	DeleteRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) error
	InsertMany(ctx context.Context, userID primitive.ObjectID, sessions []domain.TrainingSession) error
	Update(ctx context.Context, session *domain.TrainingSession) error
	GetByID(ctx context.Context, userID primitive.ObjectID, id string) (*domain.TrainingSession, error)
}

// FeedbackRepository stores the aggregated weekly feedback records, one per
// (userId, weekStartDate).
type FeedbackRepository interface {
	GetByWeek(ctx context.Context, userID primitive.ObjectID, weekStartDate string) (*domain.TrainingFeedback, error)
	// GetLatest returns the most recent feedback record for the user.
	GetLatest(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingFeedback, error)
	Upsert(ctx context.Context, feedback *domain.TrainingFeedback) error
}

// ConversationRepository stores the per-user chat state, including any
// pending adjustment awaiting confirmation.
type ConversationRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.Conversation, error)
	SetPending(ctx context.Context, userID primitive.ObjectID, pending *domain.PendingAdjustment) error
	ClearPending(ctx context.Context, userID primitive.ObjectID) error
}
