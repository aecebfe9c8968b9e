package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationStoryLike   NotificationType = "story_like"
	NotificationComment     NotificationType = "comment"
	NotificationCommentLike NotificationType = "comment_like"
)

// Notification is unique on (recipient, sender, type, story, comment). Story
// and Comment are stored as null when absent so the key stays total.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender    primitive.ObjectID  `bson:"sender" json:"sender"`
	Type      NotificationType    `bson:"type" json:"type"`
	Story     *primitive.ObjectID `bson:"story" json:"story"`
	Comment   *primitive.ObjectID `bson:"comment" json:"comment"`
	Message   string              `bson:"message" json:"message"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}
