package mongo

import (
	"alcyxob/run-coach/internal/domain"
	"alcyxob/run-coach/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const feedbackCollectionName = "feedback"

// mongoFeedbackRepository implements repository.FeedbackRepository
type mongoFeedbackRepository struct {
	collection *mongo.Collection
}

// NewMongoFeedbackRepository creates a new TrainingFeedback repository.
func NewMongoFeedbackRepository(db *mongo.Database) repository.FeedbackRepository {
	return &mongoFeedbackRepository{
		collection: db.Collection(feedbackCollectionName),
	}
}

// GetByWeek retrieves the feedback record for one plan week.
func (r *mongoFeedbackRepository) GetByWeek(ctx context.Context, userID primitive.ObjectID, weekStartDate string) (*domain.TrainingFeedback, error) {
	var feedback domain.TrainingFeedback
	filter := bson.M{"userId": userID, "weekStartDate": weekStartDate}

	err := r.collection.FindOne(ctx, filter).Decode(&feedback)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &feedback, nil
}

// GetLatest retrieves the most recent feedback record for the user.
func (r *mongoFeedbackRepository) GetLatest(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingFeedback, error) {
	var feedback domain.TrainingFeedback
	filter := bson.M{"userId": userID}
	opts := options.FindOne().SetSort(bson.D{{Key: "weekStartDate", Value: -1}})

	err := r.collection.FindOne(ctx, filter, opts).Decode(&feedback)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &feedback, nil
}

// Upsert writes the feedback record for (userId, weekStartDate), creating it
// if absent. Merge semantics (summary append, list union) are the caller's
// responsibility; this layer only guarantees the one-record-per-week shape.
func (r *mongoFeedbackRepository) Upsert(ctx context.Context, feedback *domain.TrainingFeedback) error {
	if feedback.UserID == primitive.NilObjectID || feedback.WeekStartDate == "" {
		return errors.New("feedback requires userId and weekStartDate")
	}

	now := time.Now().UTC()
	filter := bson.M{"userId": feedback.UserID, "weekStartDate": feedback.WeekStartDate}
	update := bson.M{
		"$set": bson.M{
			"prefers":         feedback.Prefers,
			"strugglingWith":  feedback.StrugglingWith,
			"feedbackSummary": feedback.FeedbackSummary,
			"rawDataKey":      feedback.RawDataKey,
			"updatedAt":       now,
		},
		"$setOnInsert": bson.M{
			"userId":        feedback.UserID,
			"weekStartDate": feedback.WeekStartDate,
			"createdAt":     now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// EnsureFeedbackIndexes creates necessary indexes. Call during startup.
func EnsureFeedbackIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One record per user per week.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "weekStartDate", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
