package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"anoa.com/storyverse/internal/entity"
	author "anoa.com/storyverse/internal/modules/author/service"
	notifDto "anoa.com/storyverse/internal/modules/notification/dto"
	notifRepo "anoa.com/storyverse/internal/modules/notification/repository"
	"anoa.com/storyverse/pkg/apperror"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultPageSize = 20

// ErrRealtimeUnavailable is returned by Subscribe when no Redis is configured.
var ErrRealtimeUnavailable = errors.New("realtime notifications are not available")

// Channel is the Redis pubsub channel carrying a user's new notifications.
func Channel(userID primitive.ObjectID) string {
	return "user_notifications:" + userID.Hex()
}

type NotificationService interface {
	// Notify records n once per (recipient, sender, type, story, comment).
	// Self-notifications and repeats are dropped silently.
	Notify(ctx context.Context, n *entity.Notification) error
	List(ctx context.Context, userID primitive.ObjectID, page commonDto.PageQuery) (*notifDto.PaginatedNotificationResponse, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, userID, id primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error
	// Subscribe streams JSON payloads of the user's new notifications until
	// ctx ends or the returned close func is called.
	Subscribe(ctx context.Context, userID primitive.ObjectID) (<-chan string, func() error, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	resolver    author.Resolver
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, resolver author.Resolver, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		resolver:    resolver,
		redisClient: redisClient,
	}
}

func (s *notificationService) Notify(ctx context.Context, n *entity.Notification) error {
	if n.Sender == n.Recipient {
		return nil
	}
	n.Read = false

	err := s.repo.Create(ctx, n)
	if errors.Is(err, apperror.ErrDuplicate) {
		metrics.NotificationsTotal.WithLabelValues(string(n.Type), "duplicate").Inc()
		return nil
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.publish(ctx, n)
	return nil
}

func (s *notificationService) publish(ctx context.Context, n *entity.Notification) {
	if s.redisClient == nil {
		return
	}

	log := logger.Log.WithFields(logrus.Fields{
		"notification_id": n.ID.Hex(),
		"recipient":       n.Recipient.Hex(),
	})

	out, err := s.toResponses(ctx, []entity.Notification{*n})
	if err != nil {
		log.WithError(err).Warn("failed to resolve notification sender")
		return
	}
	payload, err := json.Marshal(out[0])
	if err != nil {
		log.WithError(err).Warn("failed to encode notification")
		return
	}
	if err := s.redisClient.Publish(ctx, Channel(n.Recipient), payload).Err(); err != nil {
		log.WithError(err).Warn("failed to publish notification")
	}
}

func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID, page commonDto.PageQuery) (*notifDto.PaginatedNotificationResponse, error) {
	page.Normalize(defaultPageSize)

	notifications, total, err := s.repo.ListByRecipient(ctx, userID, page.Skip(), int64(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	data, err := s.toResponses(ctx, notifications)
	if err != nil {
		return nil, err
	}
	return &notifDto.PaginatedNotificationResponse{Data: data, Meta: commonDto.NewPaginationMeta(page, total)}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.repo.MarkAllRead(ctx, userID)
	return err
}

func (s *notificationService) Subscribe(ctx context.Context, userID primitive.ObjectID) (<-chan string, func() error, error) {
	if s.redisClient == nil {
		return nil, nil, ErrRealtimeUnavailable
	}

	pubsub := s.redisClient.Subscribe(ctx, Channel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

// toResponses resolves every sender in one lookup.
func (s *notificationService) toResponses(ctx context.Context, notifications []entity.Notification) ([]notifDto.NotificationResponse, error) {
	refs := make([]entity.AuthorRef, len(notifications))
	for i, n := range notifications {
		refs[i] = entity.RefByID(n.Sender)
	}
	senders, err := s.resolver.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	out := make([]notifDto.NotificationResponse, len(notifications))
	for i, n := range notifications {
		out[i] = notifDto.NotificationResponse{
			ID:        n.ID.Hex(),
			Type:      n.Type,
			Sender:    senders[i],
			StoryID:   hexOrNil(n.Story),
			CommentID: hexOrNil(n.Comment),
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	return out, nil
}

func hexOrNil(id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	s := id.Hex()
	return &s
}
