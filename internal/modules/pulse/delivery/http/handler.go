package handler

import (
	"net/http"

	pulseDto "anoa.com/storyverse/internal/modules/pulse/dto"
	pulse "anoa.com/storyverse/internal/modules/pulse/service"
	"anoa.com/storyverse/pkg/response"
	"github.com/gin-gonic/gin"
)

type PulseHandler struct {
	service pulse.PulseService
}

func NewPulseHandler(service pulse.PulseService) *PulseHandler {
	return &PulseHandler{service: service}
}

func (h *PulseHandler) Vote(c *gin.Context) {
	storyID, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req pulseDto.VoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Vote(c.Request.Context(), userID, storyID, req.Mood)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PulseHandler) Retract(c *gin.Context) {
	storyID, err := response.ParamObjectID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Retract(c.Request.Context(), userID, storyID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
