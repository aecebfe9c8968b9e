package dto

import (
	"time"

	"anoa.com/storyverse/internal/entity"
	authorDto "anoa.com/storyverse/internal/modules/author/dto"
	commonDto "anoa.com/storyverse/pkg/dto"
)

type StoryResponse struct {
	ID             string                  `json:"id"`
	Title          string                  `json:"title"`
	Description    string                  `json:"description"`
	Content        string                  `json:"content,omitempty"`
	CoverImage     string                  `json:"coverImage"`
	ThumbnailImage string                  `json:"thumbnailImage"`
	Genres         []string                `json:"genres"`
	Tags           []string                `json:"tags"`
	ReadTime       int                     `json:"readTime"`
	Author         authorDto.AuthorSummary `json:"author"`
	LikesCount     int64                   `json:"likesCount"`
	ReadsCount     int64                   `json:"readsCount"`
	CommentsCount  int64                   `json:"commentsCount"`
	EditorPick     bool                    `json:"editorPick"`
	Published      bool                    `json:"published"`
	Pulse          entity.PulseCounts      `json:"pulse"`
	Contest        string                  `json:"contest,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// ViewerState is the signed-in reader's own engagement with a story.
type ViewerState struct {
	Liked bool        `json:"liked"`
	Mood  entity.Mood `json:"mood,omitempty"`
}

type StoryDetailResponse struct {
	StoryResponse
	Viewer *ViewerState `json:"viewer,omitempty"`
}

type CreateStoryInput struct {
	Title            string   `json:"title" binding:"required,max=150"`
	Description      string   `json:"description" binding:"max=500"`
	Content          string   `json:"content" binding:"required"`
	Genres           []string `json:"genres" binding:"max=5"`
	Tags             []string `json:"tags" binding:"max=10"`
	ReadTime         int      `json:"readTime" binding:"omitempty,min=1,max=600"`
	CoverImageBase64 string   `json:"coverImage"`
	Contest          string   `json:"contest" binding:"max=60"`
	Published        *bool    `json:"published"`
}

type UpdateStoryInput struct {
	Title            *string   `json:"title" binding:"omitempty,max=150"`
	Description      *string   `json:"description" binding:"omitempty,max=500"`
	Content          *string   `json:"content"`
	Genres           *[]string `json:"genres" binding:"omitempty,max=5"`
	Tags             *[]string `json:"tags" binding:"omitempty,max=10"`
	ReadTime         *int      `json:"readTime" binding:"omitempty,min=1,max=600"`
	CoverImageBase64 *string   `json:"coverImage"`
	Published        *bool     `json:"published"`
}

type ListStoriesQuery struct {
	commonDto.PageQuery
	Genre   string `form:"genre"`
	Search  string `form:"q"`
	Sort    string `form:"sort" binding:"omitempty,oneof=latest trending"`
	Contest string `form:"contest"`
}

type PaginatedStoryResponse struct {
	Data []StoryResponse          `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
