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

// LikeRepository stores like facts for one target kind. (user, target) is
// unique; a second Insert for the same pair returns apperror.ErrDuplicate.
type LikeRepository interface {
	Insert(ctx context.Context, userID, targetID primitive.ObjectID) error
	// Delete reports whether a fact was removed.
	Delete(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error)
	Exists(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error)
	// TargetsByUser lists liked target ids, newest like first, with the total.
	TargetsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]primitive.ObjectID, int64, error)
	CountByTarget(ctx context.Context) (map[primitive.ObjectID]int64, error)
	DeleteByTargets(ctx context.Context, targetIDs ...primitive.ObjectID) (int64, error)
}

type likeRepository struct {
	coll   *mongo.Collection
	target string
	newDoc func(userID, targetID primitive.ObjectID, at time.Time) any
}

func NewStoryLikeRepository(db *mongo.Database) LikeRepository {
	return &likeRepository{
		coll:   db.Collection(database.CollLikes),
		target: "story",
		newDoc: func(userID, targetID primitive.ObjectID, at time.Time) any {
			return entity.Like{User: userID, Story: targetID, CreatedAt: at}
		},
	}
}

func NewCommentLikeRepository(db *mongo.Database) LikeRepository {
	return &likeRepository{
		coll:   db.Collection(database.CollCommentLikes),
		target: "comment",
		newDoc: func(userID, targetID primitive.ObjectID, at time.Time) any {
			return entity.CommentLike{User: userID, Comment: targetID, CreatedAt: at}
		},
	}
}

func (r *likeRepository) pair(userID, targetID primitive.ObjectID) bson.M {
	return bson.M{"user": userID, r.target: targetID}
}

func (r *likeRepository) Insert(ctx context.Context, userID, targetID primitive.ObjectID) error {
	_, err := r.coll.InsertOne(ctx, r.newDoc(userID, targetID, time.Now()))
	return database.TranslateError(err)
}

func (r *likeRepository) Delete(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, r.pair(userID, targetID))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, r.pair(userID, targetID), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *likeRepository) TargetsByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]primitive.ObjectID, int64, error) {
	filter := bson.M{"user": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{r.target: 1}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		if id, ok := row[r.target].(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, total, nil
}

func (r *likeRepository) CountByTarget(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + r.target, "count": bson.M{"$sum": 1}}}},
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

func (r *likeRepository) DeleteByTargets(ctx context.Context, targetIDs ...primitive.ObjectID) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{r.target: bson.M{"$in": targetIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
