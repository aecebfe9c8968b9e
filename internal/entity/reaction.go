package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Like is one user's like on one story. (user, story) is unique.
type Like struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	User      primitive.ObjectID `bson:"user"`
	Story     primitive.ObjectID `bson:"story"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// CommentLike is one user's like on one comment. (user, comment) is unique.
type CommentLike struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	User      primitive.ObjectID `bson:"user"`
	Comment   primitive.ObjectID `bson:"comment"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// PulseFeedback is a user's single current mood vote on a story.
type PulseFeedback struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	User      primitive.ObjectID `bson:"user"`
	Story     primitive.ObjectID `bson:"story"`
	Mood      Mood               `bson:"mood"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}
