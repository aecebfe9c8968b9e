package repository

import (
	"context"
	"time"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	// Create returns apperror.ErrDuplicate when the same event was already recorded.
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipient primitive.ObjectID, skip, limit int64) ([]entity.Notification, int64, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	DeleteByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error)
}

type notificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{coll: db.Collection(database.CollNotifications)}
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	res, err := r.coll.InsertOne(ctx, n)
	if err != nil {
		return database.TranslateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = id
	}
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient primitive.ObjectID, skip, limit int64) ([]entity.Notification, int64, error) {
	filter := bson.M{"recipient": recipient}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	notifications := []entity.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return database.TranslateError(mongo.ErrNoDocuments)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *notificationRepository) DeleteByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"story": storyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
