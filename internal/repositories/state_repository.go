package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geofriends-service/internal/models"
)

// StateRepository tracks per-user, per-chat read state.
type StateRepository interface {
	MarkRead(ctx context.Context, userID, chatID string, at time.Time) error
	Get(ctx context.Context, userID, chatID string) (models.UserChatState, error)
}

// StateRepo is a mongo implementation of StateRepository.
type StateRepo struct {
	coll *mongo.Collection
}

// NewStateRepo constructs a StateRepo.
func NewStateRepo(database *mongo.Database) *StateRepo {
	return &StateRepo{coll: database.Collection("user_chat_state")}
}

// MarkRead upserts the last-read timestamp for the (user, chat) pair; a
// single code path covers both creation and update.
func (r *StateRepo) MarkRead(ctx context.Context, userID, chatID string, at time.Time) error {
	filter := bson.M{"userId": userID, "chatId": chatID}
	update := bson.M{"$set": bson.M{"lastReadTimestamp": at}}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Get returns the read state for the pair; a zero timestamp when none exists.
func (r *StateRepo) Get(ctx context.Context, userID, chatID string) (models.UserChatState, error) {
	var state models.UserChatState
	err := r.coll.FindOne(ctx, bson.M{"userId": userID, "chatId": chatID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserChatState{UserID: userID, ChatID: chatID}, nil
	}
	return state, err
}
