package like

import (
	"context"

	"anoa.com/storyverse/internal/entity"
	likeDto "anoa.com/storyverse/internal/modules/like/dto"
	likeRepo "anoa.com/storyverse/internal/modules/like/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind names the liked target for notifications and metrics.
type Kind string

const (
	KindStory   Kind = "story_like"
	KindComment Kind = "comment_like"
)

// Target is what a like service needs to know about the liked thing. A zero
// Owner means the owner is unknown and nobody is notified.
type Target struct {
	Owner      primitive.ObjectID
	LikesCount int64
}

type TargetStore interface {
	Lookup(ctx context.Context, id primitive.ObjectID) (*Target, error)
	AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *entity.Notification) error
}

type LikeService interface {
	Like(ctx context.Context, userID, targetID primitive.ObjectID) (*likeDto.LikeResult, error)
	Unlike(ctx context.Context, userID, targetID primitive.ObjectID) (*likeDto.LikeResult, error)
	HasLiked(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error)
	LikedIDs(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]primitive.ObjectID, int64, error)
}

type likeService struct {
	kind     Kind
	likes    likeRepo.LikeRepository
	targets  TargetStore
	notifier Notifier
}

func NewLikeService(kind Kind, likes likeRepo.LikeRepository, targets TargetStore, notifier Notifier) LikeService {
	return &likeService{kind: kind, likes: likes, targets: targets, notifier: notifier}
}
