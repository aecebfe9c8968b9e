package story

import (
	"context"
	"time"

	"anoa.com/storyverse/internal/entity"
	storyDto "anoa.com/storyverse/internal/modules/story/dto"
	repo "anoa.com/storyverse/internal/modules/story/repository"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/storage"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service interface {
	Create(ctx context.Context, userID primitive.ObjectID, req storyDto.CreateStoryInput) (*storyDto.StoryDetailResponse, error)
	GetByID(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*storyDto.StoryDetailResponse, error)
	Update(ctx context.Context, userID, id primitive.ObjectID, req storyDto.UpdateStoryInput) (*storyDto.StoryDetailResponse, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	List(ctx context.Context, q storyDto.ListStoriesQuery) (*storyDto.PaginatedStoryResponse, error)
	ByAuthor(ctx context.Context, username string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error)
	LikedBy(ctx context.Context, username string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error)
	Search(ctx context.Context, query string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
}

// Indexer mirrors stories into the search index.
type Indexer interface {
	IndexStory(ctx context.Context, story *entity.Story) error
	RemoveStory(ctx context.Context, id primitive.ObjectID) error
}

type Searcher interface {
	SearchStories(ctx context.Context, query string, offset, limit int64) ([]primitive.ObjectID, int64, error)
}

type LikeReader interface {
	HasLiked(ctx context.Context, userID, storyID primitive.ObjectID) (bool, error)
	LikedIDs(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]primitive.ObjectID, int64, error)
}

type MoodReader interface {
	MoodOf(ctx context.Context, userID, storyID primitive.ObjectID) (entity.Mood, error)
}

// Cleanup removes data hanging off a deleted story.
type Cleanup func(ctx context.Context, storyID primitive.ObjectID) error

type Deps struct {
	Redis             redis.Cmdable
	Storage           storage.ImageStorage
	Indexer           Indexer
	Searcher          Searcher
	Likes             LikeReader
	Moods             MoodReader
	Cleanups          []Cleanup
	RateLimit         time.Duration
	CompressThreshold int
}

type service struct {
	storyRepo  repo.StoryRepository
	users      UserReader
	normalizer Normalizer
	deps       Deps

	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
}

func NewService(storyRepo repo.StoryRepository, users UserReader, normalizer Normalizer, deps Deps) Service {
	return &service{
		storyRepo:  storyRepo,
		users:      users,
		normalizer: normalizer,
		deps:       deps,
		strict:     bluemonday.StrictPolicy(),
		ugc:        bluemonday.UGCPolicy(),
	}
}
