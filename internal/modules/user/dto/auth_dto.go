package dto

import (
	"time"

	"anoa.com/storyverse/internal/entity"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Username string `json:"username" binding:"required,min=3,max=30"`
	Name     string `json:"name" binding:"required,max=80"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email,omitempty"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Bio            string    `json:"bio"`
	ProfileImage   string    `json:"profileImage"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   int64        `json:"expiresAt"`
	User        UserResponse `json:"user"`
}

// ToUserResponse maps a user; withEmail is set only for the user's own view.
func ToUserResponse(u *entity.User, withEmail bool) UserResponse {
	res := UserResponse{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		Name:           u.Name,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		CreatedAt:      u.CreatedAt,
	}
	if withEmail {
		res.Email = u.Email
	}
	return res
}
