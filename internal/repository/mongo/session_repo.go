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

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new TrainingSession repository.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// FetchRange retrieves all sessions for the user whose date falls within
// [from, to] inclusive, sorted by date.
func (r *mongoSessionRepository) FetchRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.TrainingSession, error) {
	// Dates are stored as YYYY-MM-DD strings, which order lexicographically
	// the same as chronologically.
	filter := bson.M{
		"userId": userID,
		"date": bson.M{
			"$gte": from.Format(domain.DateLayout),
			"$lte": to.Format(domain.DateLayout),
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []domain.TrainingSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// FetchByWeek retrieves all sessions for a given plan week number.
func (r *mongoSessionRepository) FetchByWeek(ctx context.Context, userID primitive.ObjectID, weekNumber int) ([]domain.TrainingSession, error) {
	filter := bson.M{"userId": userID, "weekNumber": weekNumber}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayOfWeek", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []domain.TrainingSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteRange removes all sessions for the user within [from, to] inclusive.
// Deleting zero rows is not an error; the week may legitimately be empty.
func (r *mongoSessionRepository) DeleteRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) error {
	filter := bson.M{
		"userId": userID,
		"date": bson.M{
			"$gte": from.Format(domain.DateLayout),
			"$lte": to.Format(domain.DateLayout),
		},
	}
	_, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return repository.ErrDeleteFailed
	}
	return nil
}

// InsertMany inserts the given sessions for the user. IDs must already be
// assigned by the caller.
func (r *mongoSessionRepository) InsertMany(ctx context.Context, userID primitive.ObjectID, sessions []domain.TrainingSession) error {
	if len(sessions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		if s.ID == "" {
			return errors.New("session ID must be assigned before insert")
		}
		s.UserID = userID
		s.CreatedAt = now
		s.UpdatedAt = now
		docs = append(docs, s)
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// Update rewrites the mutable fields of an existing session.
func (r *mongoSessionRepository) Update(ctx context.Context, session *domain.TrainingSession) error {
	if session.ID == "" {
		return errors.New("session ID is required for update")
	}

	filter := bson.M{"_id": session.ID, "userId": session.UserID}
	updateDoc := bson.M{
		"$set": bson.M{
			"date":             session.Date,
			"dayOfWeek":        session.DayOfWeek,
			"sessionType":      session.SessionType,
			"distance":         session.Distance,
			"time":             session.Time,
			"notes":            session.Notes,
			"postSessionNotes": session.PostSessionNotes,
			"status":           session.Status,
			"modified":         session.Modified,
			"updatedAt":        time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single session, scoped to its owner.
func (r *mongoSessionRepository) GetByID(ctx context.Context, userID primitive.ObjectID, id string) (*domain.TrainingSession, error) {
	var session domain.TrainingSession
	filter := bson.M{"_id": id, "userId": userID}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// EnsureSessionIndexes creates necessary indexes. Call during startup.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Range scans by user and date drive reconciliation and stats.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			// Adjustment lookups go by plan week.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "weekNumber", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
