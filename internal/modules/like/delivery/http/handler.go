package handler

import (
	"net/http"

	like "anoa.com/storyverse/internal/modules/like/service"
	"anoa.com/storyverse/pkg/response"
	"github.com/gin-gonic/gin"
)

// LikeHandler serves like/unlike for one target kind; the target id comes
// from the :id path parameter.
type LikeHandler struct {
	service like.LikeService
}

func NewLikeHandler(service like.LikeService) *LikeHandler {
	return &LikeHandler{service: service}
}

func (h *LikeHandler) Like(c *gin.Context) {
	targetID, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Like(c.Request.Context(), userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *LikeHandler) Unlike(c *gin.Context) {
	targetID, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Unlike(c.Request.Context(), userID, targetID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
