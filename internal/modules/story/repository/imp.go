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

func NewStoryRepository(db *mongo.Database) StoryRepository {
	return &repository{coll: db.Collection(database.CollStories)}
}

func (r *repository) Create(ctx context.Context, story *entity.Story) error {
	now := time.Now()
	story.CreatedAt, story.UpdatedAt = now, now
	story.Pulse = story.Pulse.Full()
	if story.Genres == nil {
		story.Genres = []string{}
	}
	if story.Tags == nil {
		story.Tags = []string{}
	}

	res, err := r.coll.InsertOne(ctx, story)
	if err != nil {
		return database.TranslateError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		story.ID = id
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Story, error) {
	var story entity.Story
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&story); err != nil {
		return nil, database.TranslateError(err)
	}
	return &story, nil
}

func (r *repository) Find(ctx context.Context, q Query) ([]entity.Story, error) {
	opts := options.Find().
		SetSort(buildSort(q.Sort)).
		SetProjection(listProjection)
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.coll.Find(ctx, BuildFilter(q), opts)
	if err != nil {
		return nil, err
	}
	stories := []entity.Story{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *repository) Count(ctx context.Context, q Query) (int64, error) {
	return r.coll.CountDocuments(ctx, BuildFilter(q))
}

func (r *repository) Update(ctx context.Context, id primitive.ObjectID, u StoryUpdate) (*entity.Story, error) {
	set := bson.M{"updatedAt": time.Now()}
	unset := bson.M{}

	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.ContentEncoding != nil {
		if *u.ContentEncoding == "" {
			set["content"] = *u.Content
			unset["contentCompressed"] = ""
			unset["contentEncoding"] = ""
		} else {
			set["contentCompressed"] = u.ContentCompressed
			set["contentEncoding"] = *u.ContentEncoding
			unset["content"] = ""
		}
	}
	if u.Genres != nil {
		set["genres"] = *u.Genres
	}
	if u.Tags != nil {
		set["tags"] = *u.Tags
	}
	if u.ReadTime != nil {
		set["readTime"] = *u.ReadTime
	}
	if u.CoverImage != nil {
		set["coverImage"] = *u.CoverImage
	}
	if u.ThumbnailImage != nil {
		set["thumbnailImage"] = *u.ThumbnailImage
	}
	if u.Published != nil {
		set["published"] = *u.Published
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var story entity.Story
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&story); err != nil {
		return nil, database.TranslateError(err)
	}
	return &story, nil
}

func (r *repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.TranslateError(mongo.ErrNoDocuments)
	}
	return nil
}

// adjustField $inc's field by delta. Decrements only match while the field
// can absorb them, which keeps it at or above zero.
func (r *repository) adjustField(ctx context.Context, id primitive.ObjectID, field string, delta int64, out any) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter[field] = bson.M{"$gte": -delta}
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likesCount": 1, "commentsCount": 1, "pulse": 1})

	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{field: delta}}, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) && delta < 0 {
		// Already at the floor, or the story is gone.
		err = r.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"likesCount": 1, "commentsCount": 1, "pulse": 1})).Decode(out)
	}
	return database.TranslateError(err)
}

func (r *repository) AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error) {
	var out StoryCounters
	if err := r.adjustField(ctx, id, "likesCount", delta, &out); err != nil {
		return 0, err
	}
	return out.LikesCount, nil
}

func (r *repository) AdjustComments(ctx context.Context, id primitive.ObjectID, delta int64) error {
	var out StoryCounters
	return r.adjustField(ctx, id, "commentsCount", delta, &out)
}

func (r *repository) AdjustPulse(ctx context.Context, id primitive.ObjectID, mood entity.Mood, delta int64) (entity.PulseCounts, error) {
	var out StoryCounters
	if err := r.adjustField(ctx, id, "pulse."+string(mood), delta, &out); err != nil {
		return nil, err
	}
	return out.Pulse.Full(), nil
}

func (r *repository) AddReads(ctx context.Context, reads map[primitive.ObjectID]int64) error {
	if len(reads) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(reads))
	for id, n := range reads {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$inc": bson.M{"readsCount": n}}))
	}
	_, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *repository) RefreshAuthorSnapshot(ctx context.Context, snapshot *entity.AuthorSnapshot, legacyUsernames ...string) (int64, error) {
	id := snapshot.ID
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"$or": AuthorMatch(&id, legacyUsernames...)},
		bson.M{"$set": bson.M{"authorSnapshot": snapshot}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *repository) ListCounters(ctx context.Context) ([]StoryCounters, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"likesCount": 1, "commentsCount": 1, "pulse": 1}))
	if err != nil {
		return nil, err
	}
	var out []StoryCounters
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) SetCounters(ctx context.Context, observed StoryCounters, likes, comments int64, pulse entity.PulseCounts) (bool, error) {
	filter := bson.M{
		"_id":           observed.ID,
		"likesCount":    database.CounterEquals(observed.LikesCount),
		"commentsCount": database.CounterEquals(observed.CommentsCount),
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"likesCount":    likes,
		"commentsCount": comments,
		"pulse":         pulse.Full(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *repository) GenreCounts(ctx context.Context) ([]GenreCount, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"published": true}}},
		{{Key: "$unwind", Value: "$genres"}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"$toLower": "$genres"}, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	out := []GenreCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
