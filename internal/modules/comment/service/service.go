package comment

import (
	"context"

	"anoa.com/storyverse/internal/entity"
	author "anoa.com/storyverse/internal/modules/author/service"
	commentDto "anoa.com/storyverse/internal/modules/comment/dto"
	"anoa.com/storyverse/internal/modules/comment/repository"
	commonDto "anoa.com/storyverse/pkg/dto"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultPageSize = 20

type CommentService interface {
	List(ctx context.Context, storyID primitive.ObjectID, page commonDto.PageQuery) (*commentDto.PaginatedCommentResponse, error)
	Create(ctx context.Context, userID, storyID primitive.ObjectID, req commentDto.CreateCommentInput) (*commentDto.CommentResponse, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	// CleanupStory drops a deleted story's comments and their likes.
	CleanupStory(ctx context.Context, storyID primitive.ObjectID) error
}

type StoryStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Story, error)
	AdjustComments(ctx context.Context, id primitive.ObjectID, delta int64) error
}

// LikeCleaner removes comment like facts.
type LikeCleaner interface {
	DeleteByTargets(ctx context.Context, targetIDs ...primitive.ObjectID) (int64, error)
}

type commentService struct {
	repo     repository.CommentRepository
	stories  StoryStore
	resolver author.Resolver
	likes    LikeCleaner
	policy   *bluemonday.Policy
}

func NewCommentService(repo repository.CommentRepository, stories StoryStore, resolver author.Resolver, likes LikeCleaner) CommentService {
	return &commentService{
		repo:     repo,
		stories:  stories,
		resolver: resolver,
		likes:    likes,
		policy:   bluemonday.StrictPolicy(),
	}
}
