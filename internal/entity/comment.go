package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Story      primitive.ObjectID `bson:"story"`
	User       primitive.ObjectID `bson:"user"`
	Content    string             `bson:"content"`
	LikesCount int64              `bson:"likesCount"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}
