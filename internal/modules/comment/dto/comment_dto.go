package dto

import (
	"time"

	authorDto "anoa.com/storyverse/internal/modules/author/dto"
	commonDto "anoa.com/storyverse/pkg/dto"
)

type CreateCommentInput struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type CommentResponse struct {
	ID         string                  `json:"id"`
	StoryID    string                  `json:"storyId"`
	User       authorDto.AuthorSummary `json:"user"`
	Content    string                  `json:"content"`
	LikesCount int64                   `json:"likesCount"`
	CreatedAt  time.Time               `json:"createdAt"`
}

type PaginatedCommentResponse struct {
	Data []CommentResponse        `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
