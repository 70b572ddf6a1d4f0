package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geofriends-service/internal/logger"
)

// Connect establishes the MongoDB connection and ensures indexes.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(dbName)
	if err := ensureIndexes(ctx, database); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	logger.Infof("mongo connected db=%s", dbName)
	return database, nil
}

func ensureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		"chats": {
			{Keys: bson.D{{Key: "memberIds", Value: 1}}},
			{Keys: bson.D{{Key: "isGroup", Value: 1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		"user_chat_state": {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "chatId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for coll, models := range indexes {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
