package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the query paths depend on. CreateMany is
// a no-op for indexes that already exist, so this runs on every boot.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	contentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "consumed", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "sender", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "media_ref", Value: 1}}},
	}
	if _, err := db.Collection("content_items").Indexes().CreateMany(ctx, contentIndexes); err != nil {
		return err
	}

	relationshipIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_a", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user_b", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := db.Collection("relationships").Indexes().CreateMany(ctx, relationshipIndexes); err != nil {
		return err
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	groupIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "members", Value: 1}}},
	}
	if _, err := db.Collection("groups").Indexes().CreateMany(ctx, groupIndexes); err != nil {
		return err
	}

	cleanupIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "scope", Value: 1}, {Key: "subject", Value: 1}, {Key: "state", Value: 1}}},
	}
	if _, err := db.Collection("cleanup_jobs").Indexes().CreateMany(ctx, cleanupIndexes); err != nil {
		return err
	}

	return nil
}
