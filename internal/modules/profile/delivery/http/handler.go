package handler

import (
	"net/http"
	"strings"

	profileDto "anoa.com/storyverse/internal/modules/profile/dto"
	profile "anoa.com/storyverse/internal/modules/profile/service"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/response"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetProfileByUsername(c *gin.Context) {
	username := c.Param("username")
	if strings.TrimSpace(username) == "" {
		response.ResponseError(c, apperror.New(http.StatusBadRequest, "username is required", apperror.ErrBadRequest))
		return
	}

	res, err := h.profileService.GetProfileByUsername(c.Request.Context(), username, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.profileService.GetCurrentProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		response.BindError(c, err)
		return
	}

	var avatar *profileDto.AvatarFile
	if fileHeader, err := c.FormFile("avatar"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			response.ResponseError(c, apperror.New(http.StatusBadRequest, "failed to read avatar", apperror.ErrBadRequest))
			return
		}
		defer file.Close()

		avatar = &profileDto.AvatarFile{
			Reader:   file,
			FileName: fileHeader.Filename,
		}
	}

	res, err := h.profileService.UpdateProfile(c.Request.Context(), userID, input, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) Follow(c *gin.Context) {
	h.follow(c, true)
}

func (h *ProfileHandler) Unfollow(c *gin.Context) {
	h.follow(c, false)
}

func (h *ProfileHandler) follow(c *gin.Context, follow bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var res *profileDto.FollowResponse
	if follow {
		res, err = h.profileService.Follow(c.Request.Context(), userID, c.Param("username"))
	} else {
		res, err = h.profileService.Unfollow(c.Request.Context(), userID, c.Param("username"))
	}
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
