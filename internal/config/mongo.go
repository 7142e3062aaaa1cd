package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := createIndexes(client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	ctx := context.Background()
	db := client.Database(dbName)

	documentsCollection := db.Collection("documents")
	documentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "uploaded_at", Value: -1}}},
	}
	if _, err := documentsCollection.Indexes().CreateMany(ctx, documentIndexes); err != nil {
		return err
	}

	chunksCollection := db.Collection("chunks")
	chunkIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "document_id", Value: 1}}},
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "order", Value: 1}}},
	}
	if _, err := chunksCollection.Indexes().CreateMany(ctx, chunkIndexes); err != nil {
		return err
	}

	tagsCollection := db.Collection("tags")
	tagIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := tagsCollection.Indexes().CreateMany(ctx, tagIndexes); err != nil {
		return err
	}

	membershipsCollection := db.Collection("memberships")
	membershipIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "tenant_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
	}
	if _, err := membershipsCollection.Indexes().CreateMany(ctx, membershipIndexes); err != nil {
		return err
	}

	messagesCollection := db.Collection("messages")
	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
	}
	if _, err := messagesCollection.Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}

	return nil
}
