package repository

import (
	"context"

	"anoa.com/storyverse/internal/entity"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type SortOrder int

const (
	SortLatest SortOrder = iota
	SortTrending
)

// Query describes a story listing. Zero fields do not filter.
type Query struct {
	PublishedOnly  bool
	Genre          string
	MaxReadTime    int
	EditorPick     bool
	Search         string
	Contest        string
	AuthorID       *primitive.ObjectID
	AuthorUsername string
	IDs            []primitive.ObjectID
	Sort           SortOrder
	Skip           int64
	Limit          int64
}

// StoryUpdate lists fields to $set; nil pointers are untouched.
type StoryUpdate struct {
	Title             *string
	Description       *string
	Content           *string
	ContentCompressed []byte
	ContentEncoding   *string
	Genres            *[]string
	Tags              *[]string
	ReadTime          *int
	CoverImage        *string
	ThumbnailImage    *string
	Published         *bool
}

// StoryCounters is the denormalized state reconciliation compares against facts.
type StoryCounters struct {
	ID            primitive.ObjectID `bson:"_id"`
	LikesCount    int64              `bson:"likesCount"`
	CommentsCount int64              `bson:"commentsCount"`
	Pulse         entity.PulseCounts `bson:"pulse"`
}

type GenreCount struct {
	Genre string `bson:"_id"`
	Count int64  `bson:"count"`
}

type StoryRepository interface {
	Create(ctx context.Context, story *entity.Story) error
	// FindByID returns the full document including content.
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Story, error)
	// Find returns listing documents without content.
	Find(ctx context.Context, q Query) ([]entity.Story, error)
	Count(ctx context.Context, q Query) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update StoryUpdate) (*entity.Story, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AdjustLikes applies delta atomically and returns the new count. A
	// decrement never takes the counter below zero.
	AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error)
	AdjustComments(ctx context.Context, id primitive.ObjectID, delta int64) error
	// AdjustPulse moves one mood bucket by delta, floored at zero, and returns
	// the story's pulse afterwards.
	AdjustPulse(ctx context.Context, id primitive.ObjectID, mood entity.Mood, delta int64) (entity.PulseCounts, error)

	// AddReads adds buffered read counts in one bulk write.
	AddReads(ctx context.Context, reads map[primitive.ObjectID]int64) error

	RefreshAuthorSnapshot(ctx context.Context, snapshot *entity.AuthorSnapshot, legacyUsernames ...string) (int64, error)

	// GenreCounts counts published stories per genre, largest first.
	GenreCounts(ctx context.Context) ([]GenreCount, error)

	ListCounters(ctx context.Context) ([]StoryCounters, error)
	// SetCounters writes only while the stored likes and comments counts still
	// match observed, and reports whether it did.
	SetCounters(ctx context.Context, observed StoryCounters, likes, comments int64, pulse entity.PulseCounts) (bool, error)
}

type repository struct {
	coll *mongo.Collection
}
