package dto

import (
	"time"

	"anoa.com/storyverse/internal/entity"
	authorDto "anoa.com/storyverse/internal/modules/author/dto"
	commonDto "anoa.com/storyverse/pkg/dto"
)

type NotificationResponse struct {
	ID        string                  `json:"id"`
	Type      entity.NotificationType `json:"type"`
	Sender    authorDto.AuthorSummary `json:"sender"`
	StoryID   *string                 `json:"storyId"`
	CommentID *string                 `json:"commentId"`
	Message   string                  `json:"message"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"createdAt"`
}

type PaginatedNotificationResponse struct {
	Data []NotificationResponse   `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
