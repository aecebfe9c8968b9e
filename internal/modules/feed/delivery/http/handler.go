package handler

import (
	"fmt"
	"net/http"
	"time"

	feed "anoa.com/storyverse/internal/modules/feed/service"
	"anoa.com/storyverse/pkg/response"
	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	service  feed.Service
	cacheTTL time.Duration
}

func NewFeedHandler(service feed.Service, cacheTTL time.Duration) *FeedHandler {
	return &FeedHandler{service: service, cacheTTL: cacheTTL}
}

func (h *FeedHandler) GetHomepage(c *gin.Context) {
	res, err := h.service.Homepage(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if ttl := int(h.cacheTTL.Seconds()); ttl > 0 {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", ttl, ttl*5))
	}
	c.JSON(http.StatusOK, res)
}
