package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentCounter is a comment's denormalized like count.
type CommentCounter struct {
	ID         primitive.ObjectID `bson:"_id"`
	LikesCount int64              `bson:"likesCount"`
}

type CommentRepository interface {
	Create(ctx context.Context, c *entity.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Comment, error)
	// ListByStory returns the oldest comments first.
	ListByStory(ctx context.Context, storyID primitive.ObjectID, skip, limit int64) ([]entity.Comment, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// AdjustLikes is floored at zero like the story counter.
	AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error)
	// DeleteByStory removes a story's comments and returns their ids.
	DeleteByStory(ctx context.Context, storyID primitive.ObjectID) ([]primitive.ObjectID, error)
	// CountByStory counts comments per story from the comment rows.
	CountByStory(ctx context.Context) (map[primitive.ObjectID]int64, error)
	ListCounters(ctx context.Context) ([]CommentCounter, error)
	// SetLikes is skipped when the stored count no longer matches observed.
	SetLikes(ctx context.Context, observed CommentCounter, likes int64) (bool, error)
}

type commentRepository struct {
	coll *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) CommentRepository {
	return &commentRepository{coll: db.Collection(database.CollComments)}
}

func (r *commentRepository) Create(ctx context.Context, c *entity.Comment) error {
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	res, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		return database.TranslateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

func (r *commentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, database.TranslateError(err)
	}
	return &c, nil
}

func (r *commentRepository) ListByStory(ctx context.Context, storyID primitive.ObjectID, skip, limit int64) ([]entity.Comment, int64, error) {
	filter := bson.M{"story": storyID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	comments := []entity.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *commentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.TranslateError(mongo.ErrNoDocuments)
	}
	return nil
}

func (r *commentRepository) AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["likesCount"] = bson.M{"$gte": -delta}
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likesCount": 1})

	var out CommentCounter
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"likesCount": delta}}, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) && delta < 0 {
		err = r.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"likesCount": 1})).Decode(&out)
	}
	if err != nil {
		return 0, database.TranslateError(err)
	}
	return out.LikesCount, nil
}

func (r *commentRepository) DeleteByStory(ctx context.Context, storyID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"story": storyID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *commentRepository) CountByStory(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$story", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}

func (r *commentRepository) ListCounters(ctx context.Context) ([]CommentCounter, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"likesCount": 1}))
	if err != nil {
		return nil, err
	}
	var out []CommentCounter
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentRepository) SetLikes(ctx context.Context, observed CommentCounter, likes int64) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": observed.ID, "likesCount": database.CounterEquals(observed.LikesCount)},
		bson.M{"$set": bson.M{"likesCount": likes}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
