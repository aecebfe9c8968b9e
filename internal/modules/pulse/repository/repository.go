package repository

import (
	"context"
	"time"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PulseRepository stores one mutable mood vote per (user, story).
type PulseRepository interface {
	Find(ctx context.Context, userID, storyID primitive.ObjectID) (*entity.PulseFeedback, error)
	// Insert returns apperror.ErrDuplicate when the user already voted.
	Insert(ctx context.Context, vote *entity.PulseFeedback) error
	// SwapMood changes the vote only if it is still from; it reports whether it did.
	SwapMood(ctx context.Context, userID, storyID primitive.ObjectID, from, to entity.Mood) (bool, error)
	Delete(ctx context.Context, userID, storyID primitive.ObjectID) (*entity.PulseFeedback, error)
	CountByStory(ctx context.Context) (map[primitive.ObjectID]entity.PulseCounts, error)
	DeleteByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error)
}

type pulseRepository struct {
	coll *mongo.Collection
}

func NewPulseRepository(db *mongo.Database) PulseRepository {
	return &pulseRepository{coll: db.Collection(database.CollPulseFeedback)}
}

func (r *pulseRepository) Find(ctx context.Context, userID, storyID primitive.ObjectID) (*entity.PulseFeedback, error) {
	var vote entity.PulseFeedback
	if err := r.coll.FindOne(ctx, bson.M{"user": userID, "story": storyID}).Decode(&vote); err != nil {
		return nil, database.TranslateError(err)
	}
	return &vote, nil
}

func (r *pulseRepository) Insert(ctx context.Context, vote *entity.PulseFeedback) error {
	now := time.Now()
	vote.CreatedAt, vote.UpdatedAt = now, now
	res, err := r.coll.InsertOne(ctx, vote)
	if err != nil {
		return database.TranslateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		vote.ID = id
	}
	return nil
}

func (r *pulseRepository) SwapMood(ctx context.Context, userID, storyID primitive.ObjectID, from, to entity.Mood) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": userID, "story": storyID, "mood": from},
		bson.M{"$set": bson.M{"mood": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *pulseRepository) Delete(ctx context.Context, userID, storyID primitive.ObjectID) (*entity.PulseFeedback, error) {
	var vote entity.PulseFeedback
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"user": userID, "story": storyID}).Decode(&vote); err != nil {
		return nil, database.TranslateError(err)
	}
	return &vote, nil
}

func (r *pulseRepository) CountByStory(ctx context.Context) (map[primitive.ObjectID]entity.PulseCounts, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"story": "$story", "mood": "$mood"},
			"count": bson.M{"$sum": 1},
		}}},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID struct {
			Story primitive.ObjectID `bson:"story"`
			Mood  entity.Mood        `bson:"mood"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make(map[primitive.ObjectID]entity.PulseCounts)
	for _, row := range rows {
		if !row.ID.Mood.Valid() {
			continue
		}
		counts, ok := out[row.ID.Story]
		if !ok {
			counts = entity.PulseCounts{}
			out[row.ID.Story] = counts
		}
		counts[row.ID.Mood] = row.Count
	}
	return out, nil
}

func (r *pulseRepository) DeleteByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"story": storyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
