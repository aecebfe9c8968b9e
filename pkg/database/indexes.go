package database

import (
	"context"
	"fmt"

	"anoa.com/storyverse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CaseInsensitive is the collation used for username matching.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// IndexModels lists the indexes every collection needs. The unique indexes on
// fact collections are what makes engage/notify idempotent.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(CaseInsensitive)},
		},
		CollStories: {
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "likesCount", Value: -1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "genres", Value: 1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		},
		CollLikes: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "story", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "story", Value: 1}}},
		},
		CollCommentLikes: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "comment", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "comment", Value: 1}}},
		},
		CollPulseFeedback: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "story", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "story", Value: 1}}},
		},
		CollComments: {
			{Keys: bson.D{{Key: "story", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		CollNotifications: {
			{
				Keys: bson.D{
					{Key: "recipient", Value: 1},
					{Key: "sender", Value: 1},
					{Key: "type", Value: 1},
					{Key: "story", Value: 1},
					{Key: "comment", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("unique_notification_event"),
			},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, indexes := range IndexModels() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	logger.Log.Info("MongoDB indexes ensured")
	return nil
}
