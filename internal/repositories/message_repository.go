package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geofriends-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, chatID, senderID, text string) (models.Message, error)
	List(ctx context.Context, chatID string) ([]models.Message, error)
	Get(ctx context.Context, chatID, messageID string) (models.Message, error)
	SetText(ctx context.Context, messageID, newText string, edited bool) error
	SoftDelete(ctx context.Context, messageID string) error
	MarkExpired(ctx context.Context, messageID string) error
}

// MessageRepo is a mongo-backed repository.
type MessageRepo struct {
	coll *mongo.Collection
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(database *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: database.Collection("messages")}
}

// Create appends a message with a server-assigned timestamp.
func (r *MessageRepo) Create(ctx context.Context, chatID, senderID, text string) (models.Message, error) {
	msg := models.Message{
		ID:        primitive.NewObjectID().Hex(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// List returns the chat's messages ordered by timestamp ascending.
func (r *MessageRepo) List(ctx context.Context, chatID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, err
	}
	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Get retrieves a single message scoped to its chat.
func (r *MessageRepo) Get(ctx context.Context, chatID, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": messageID, "chatId": chatID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SetText rewrites the message text, optionally flagging it edited.
func (r *MessageRepo) SetText(ctx context.Context, messageID, newText string, edited bool) error {
	update := bson.M{"text": newText}
	if edited {
		update["isEdited"] = true
	}
	return r.updateOne(ctx, messageID, update)
}

// SoftDelete replaces the text with the fixed placeholder and flags the
// message deleted. The row is retained; the original text is unrecoverable.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID string) error {
	return r.updateOne(ctx, messageID, bson.M{
		"text":      models.DeletedPlaceholder,
		"isDeleted": true,
	})
}

// MarkExpired records that the edit/delete window was armed for the message.
func (r *MessageRepo) MarkExpired(ctx context.Context, messageID string) error {
	return r.updateOne(ctx, messageID, bson.M{"isExpired": true})
}

func (r *MessageRepo) updateOne(ctx context.Context, messageID string, fields bson.M) error {
	res, err := r.coll.UpdateByID(ctx, messageID, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}
