package dto

import (
	"io"
	"time"

	userDto "anoa.com/storyverse/internal/modules/user/dto"
)

// UpdateProfileInput is bound from JSON or multipart form; the avatar travels
// as a separate form file.
type UpdateProfileInput struct {
	Username *string `json:"username" form:"username" binding:"omitempty,min=3,max=30"`
	Name     *string `json:"name" form:"name" binding:"omitempty,max=80"`
	Password *string `json:"password" form:"password" binding:"omitempty,min=8,max=72"`
	Bio      *string `json:"bio" form:"bio" binding:"omitempty,max=500"`
}

type AvatarFile struct {
	Reader   io.Reader
	FileName string
}

type PublicProfileResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Bio            string    `json:"bio"`
	ProfileImage   string    `json:"profileImage"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	IsFollowing    bool      `json:"isFollowing"`
	CreatedAt      time.Time `json:"createdAt"`
}

type UpdateProfileResponse struct {
	User             userDto.UserResponse `json:"user"`
	StoriesRefreshed int64                `json:"storiesRefreshed"`
}

type FollowResponse struct {
	Following      bool `json:"following"`
	FollowersCount int  `json:"followersCount"`
}
