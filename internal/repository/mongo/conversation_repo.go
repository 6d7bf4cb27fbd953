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

const conversationCollectionName = "conversations"

// mongoConversationRepository implements repository.ConversationRepository
type mongoConversationRepository struct {
	collection *mongo.Collection
}

// NewMongoConversationRepository creates a new Conversation repository.
func NewMongoConversationRepository(db *mongo.Database) repository.ConversationRepository {
	return &mongoConversationRepository{
		collection: db.Collection(conversationCollectionName),
	}
}

// Get retrieves the conversation state for a user. A user without prior chat
// history gets a fresh, empty conversation rather than ErrNotFound.
func (r *mongoConversationRepository) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Conversation, error) {
	var conv domain.Conversation
	filter := bson.M{"userId": userID}

	err := r.collection.FindOne(ctx, filter).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.Conversation{UserID: userID}, nil
		}
		return nil, err
	}
	return &conv, nil
}

// SetPending stores the pending adjustment, replacing any unresolved one.
func (r *mongoConversationRepository) SetPending(ctx context.Context, userID primitive.ObjectID, pending *domain.PendingAdjustment) error {
	filter := bson.M{"userId": userID}
	update := bson.M{
		"$set": bson.M{
			"pendingAdjustment": pending,
			"updatedAt":         time.Now().UTC(),
		},
		"$setOnInsert": bson.M{"userId": userID},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ClearPending discards any pending adjustment for the user.
func (r *mongoConversationRepository) ClearPending(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{"userId": userID}
	update := bson.M{
		"$unset": bson.M{"pendingAdjustment": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}

// EnsureConversationIndexes creates necessary indexes. Call during startup.
func EnsureConversationIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
