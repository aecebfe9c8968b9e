package like

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/storyverse/internal/entity"
	likeDto "anoa.com/storyverse/internal/modules/like/dto"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/metrics"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *likeService) Like(ctx context.Context, userID, targetID primitive.ObjectID) (*likeDto.LikeResult, error) {
	target, err := s.targets.Lookup(ctx, targetID)
	if err != nil {
		return nil, err
	}

	err = s.likes.Insert(ctx, userID, targetID)
	if errors.Is(err, apperror.ErrDuplicate) {
		metrics.EngagementEvents.WithLabelValues(string(s.kind), "like", "noop").Inc()
		return &likeDto.LikeResult{Liked: true, AlreadyLiked: true, LikesCount: target.LikesCount}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save like: %w", err)
	}

	count, err := s.targets.AdjustLikes(ctx, targetID, 1)
	if err != nil {
		// The fact row is in; reconciliation repairs the counter.
		s.log(userID, targetID).WithError(err).Error("like saved but counter update failed")
		return nil, fmt.Errorf("failed to update like count: %w", err)
	}
	metrics.EngagementEvents.WithLabelValues(string(s.kind), "like", "applied").Inc()

	if !target.Owner.IsZero() && target.Owner != userID {
		s.notify(ctx, target.Owner, userID, targetID)
	}

	return &likeDto.LikeResult{Liked: true, LikesCount: count}, nil
}

func (s *likeService) Unlike(ctx context.Context, userID, targetID primitive.ObjectID) (*likeDto.LikeResult, error) {
	target, err := s.targets.Lookup(ctx, targetID)
	if err != nil {
		return nil, err
	}

	deleted, err := s.likes.Delete(ctx, userID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove like: %w", err)
	}
	if !deleted {
		metrics.EngagementEvents.WithLabelValues(string(s.kind), "unlike", "noop").Inc()
		return &likeDto.LikeResult{Liked: false, LikesCount: target.LikesCount}, nil
	}

	count, err := s.targets.AdjustLikes(ctx, targetID, -1)
	if err != nil {
		s.log(userID, targetID).WithError(err).Error("like removed but counter update failed")
		return nil, fmt.Errorf("failed to update like count: %w", err)
	}
	metrics.EngagementEvents.WithLabelValues(string(s.kind), "unlike", "applied").Inc()

	return &likeDto.LikeResult{Liked: false, LikesCount: count}, nil
}

func (s *likeService) HasLiked(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	return s.likes.Exists(ctx, userID, targetID)
}

func (s *likeService) LikedIDs(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]primitive.ObjectID, int64, error) {
	return s.likes.TargetsByUser(ctx, userID, skip, limit)
}

// notify never fails the like; errors are logged.
func (s *likeService) notify(ctx context.Context, recipient, sender, targetID primitive.ObjectID) {
	if s.notifier == nil {
		return
	}

	n := &entity.Notification{Recipient: recipient, Sender: sender}
	id := targetID
	switch s.kind {
	case KindStory:
		n.Type, n.Story, n.Message = entity.NotificationStoryLike, &id, "liked your story"
	case KindComment:
		n.Type, n.Comment, n.Message = entity.NotificationCommentLike, &id, "liked your comment"
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log(sender, targetID).WithError(err).Warn("failed to create like notification")
	}
}

func (s *likeService) log(userID, targetID primitive.ObjectID) *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"kind":      s.kind,
		"user_id":   userID.Hex(),
		"target_id": targetID.Hex(),
	})
}
