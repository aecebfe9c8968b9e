package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	storyDto "anoa.com/storyverse/internal/modules/story/dto"
	story "anoa.com/storyverse/internal/modules/story/service"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/ratelimiter"
	"anoa.com/storyverse/pkg/response"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ViewRecorder counts story reads.
type ViewRecorder interface {
	RecordView(ctx context.Context, storyID primitive.ObjectID, viewer string) error
}

type StoryHandler struct {
	service story.Service
	views   ViewRecorder
}

// NewStoryHandler builds the handler; views may be nil.
func NewStoryHandler(service story.Service, views ViewRecorder) *StoryHandler {
	return &StoryHandler{service: service, views: views}
}

func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req storyDto.CreateStoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *StoryHandler) GetStory(c *gin.Context) {
	id, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	viewer := response.OptionalUserID(c)
	res, err := h.service.GetByID(c.Request.Context(), id, viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.views != nil && res.Published {
		key := c.ClientIP()
		if viewer != nil {
			key = viewer.Hex()
		}
		if err := h.views.RecordView(c.Request.Context(), id, key); err != nil {
			logger.Log.WithError(err).WithField("story_id", id.Hex()).Warn("failed to record view")
		}
	}

	c.JSON(http.StatusOK, res)
}

func (h *StoryHandler) UpdateStory(c *gin.Context) {
	id, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req storyDto.UpdateStoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *StoryHandler) DeleteStory(c *gin.Context) {
	id, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, commonDto.MessageResponse{Message: "story deleted successfully"})
}

func (h *StoryHandler) ListStories(c *gin.Context) {
	var q storyDto.ListStoriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *StoryHandler) SearchStories(c *gin.Context) {
	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BindError(c, err)
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	res, err := h.service.Search(c.Request.Context(), query, page)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *StoryHandler) GetStoriesByAuthor(c *gin.Context) {
	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.ByAuthor(c.Request.Context(), c.Param("username"), page)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *StoryHandler) GetLikedStories(c *gin.Context) {
	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.LikedBy(c.Request.Context(), c.Param("username"), page)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
