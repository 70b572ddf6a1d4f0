package repositories

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geofriends-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// GeneralPurgeNotice replaces the group chat summary after an admin purge.
const GeneralPurgeNotice = "Historial de chat borrado por un administrador."

// PrivateChatID derives the deterministic document id for the private chat
// between two users. Sorting the pair makes concurrent first-contact converge
// on a single document instead of racing read-then-write.
func PrivateChatID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return "priv:" + pair[0] + ":" + pair[1]
}

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	CreateGeneral(ctx context.Context, memberIDs []string) (models.Chat, error)
	GetOrCreatePrivate(ctx context.Context, userA, userB string) (models.Chat, error)
	UpdateFields(ctx context.Context, chatID string, fields map[string]any) error
	AddClearRequest(ctx context.Context, chatID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	ListClearRequested(ctx context.Context) ([]models.Chat, error)
	DeleteRecursively(ctx context.Context, chatID string) error
}

// ChatRepo is a mongo implementation of ChatRepository.
type ChatRepo struct {
	database *mongo.Database
	coll     *mongo.Collection
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(database *mongo.Database) *ChatRepo {
	return &ChatRepo{database: database, coll: database.Collection("chats")}
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.coll.FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// CreateGeneral inserts the single group chat. The fixed id makes the first
// writer win; a losing racer reads the existing document back.
func (r *ChatRepo) CreateGeneral(ctx context.Context, memberIDs []string) (models.Chat, error) {
	now := time.Now().UTC()
	chat := models.Chat{
		ID:                   models.GeneralChatID,
		IsGroup:              true,
		Name:                 "General",
		MemberIDs:            memberIDs,
		LastMessageTimestamp: now,
		ClearRequestBy:       []string{},
		CreatedAt:            now,
	}
	_, err := r.coll.InsertOne(ctx, chat)
	if mongo.IsDuplicateKeyError(err) {
		return r.GetChat(ctx, models.GeneralChatID)
	}
	if err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetOrCreatePrivate upserts the pair chat under its deterministic id, so two
// concurrent creators cannot mint two documents for the same pair.
func (r *ChatRepo) GetOrCreatePrivate(ctx context.Context, userA, userB string) (models.Chat, error) {
	chatID := PrivateChatID(userA, userB)
	now := time.Now().UTC()

	update := bson.M{
		"$setOnInsert": bson.M{
			"isGroup":              false,
			"memberIds":            []string{userA, userB},
			"lastMessageTimestamp": now,
			"clearRequestBy":       []string{},
			"createdAt":            now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var chat models.Chat
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": chatID}, update, opts).Decode(&chat); err != nil {
		return models.Chat{}, err
	}
	if chat.ClearRequestBy == nil {
		if err := r.UpdateFields(ctx, chatID, map[string]any{"clearRequestBy": []string{}}); err != nil {
			return models.Chat{}, err
		}
		chat.ClearRequestBy = []string{}
	}
	return chat, nil
}

// UpdateFields merge-writes the given fields onto the chat document.
func (r *ChatRepo) UpdateFields(ctx context.Context, chatID string, fields map[string]any) error {
	res, err := r.coll.UpdateByID(ctx, chatID, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

// AddClearRequest records a user's purge request. $addToSet keeps repeated
// requests idempotent.
func (r *ChatRepo) AddClearRequest(ctx context.Context, chatID, userID string) error {
	res, err := r.coll.UpdateByID(ctx, chatID, bson.M{"$addToSet": bson.M{"clearRequestBy": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ListForUser returns every chat the user is a member of.
func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	return r.find(ctx, bson.M{"memberIds": userID})
}

// ListClearRequested returns chats with at least one pending clear request.
func (r *ChatRepo) ListClearRequested(ctx context.Context) ([]models.Chat, error) {
	return r.find(ctx, bson.M{"clearRequestBy.0": bson.M{"$exists": true}})
}

// DeleteRecursively purges a chat and its messages in one transaction, so a
// partial purge is never observable. Private chats lose the chat document;
// the group chat keeps it and has its summary reset.
func (r *ChatRepo) DeleteRecursively(ctx context.Context, chatID string) error {
	chat, err := r.GetChat(ctx, chatID)
	if errors.Is(err, ErrChatNotFound) {
		// Already gone; nothing to purge.
		return nil
	}
	if err != nil {
		return err
	}

	session, err := r.database.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	messages := r.database.Collection("messages")
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := messages.DeleteMany(sc, bson.M{"chatId": chatID}); err != nil {
			return nil, err
		}
		if chat.IsGroup {
			update := bson.M{"$set": bson.M{
				"lastMessageText":      GeneralPurgeNotice,
				"lastMessageBy":        "",
				"lastMessageTimestamp": time.Now().UTC(),
				"clearRequestBy":       []string{},
			}}
			if _, err := r.coll.UpdateByID(sc, chatID, update); err != nil {
				return nil, err
			}
			return nil, nil
		}
		if _, err := r.coll.DeleteOne(sc, bson.M{"_id": chatID}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *ChatRepo) find(ctx context.Context, filter bson.M) ([]models.Chat, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}
