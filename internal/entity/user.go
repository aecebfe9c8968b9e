package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password" json:"-"`
	Username     string               `bson:"username" json:"username"`
	Name         string               `bson:"name" json:"name"`
	Bio          string               `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfileImage string               `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	Followers    []primitive.ObjectID `bson:"followers" json:"followers"`
	Following    []primitive.ObjectID `bson:"following" json:"following"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Snapshot is the denormalized author copy written onto stories.
func (u *User) Snapshot() *AuthorSnapshot {
	return &AuthorSnapshot{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
	}
}
