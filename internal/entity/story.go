package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Mood string

const (
	MoodSoft    Mood = "soft"
	MoodDark    Mood = "dark"
	MoodWarm    Mood = "warm"
	MoodTense   Mood = "tense"
	MoodStrange Mood = "strange"
)

var Moods = []Mood{MoodSoft, MoodDark, MoodWarm, MoodTense, MoodStrange}

func (m Mood) Valid() bool {
	for _, v := range Moods {
		if m == v {
			return true
		}
	}
	return false
}

// PulseCounts maps each mood to its vote count. Absent moods count as zero.
type PulseCounts map[Mood]int64

// Full returns a copy with every mood present.
func (p PulseCounts) Full() PulseCounts {
	out := make(PulseCounts, len(Moods))
	for _, m := range Moods {
		out[m] = p[m]
	}
	return out
}

type Story struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Title             string             `bson:"title"`
	Description       string             `bson:"description"`
	Content           string             `bson:"content,omitempty"`
	ContentCompressed []byte             `bson:"contentCompressed,omitempty"`
	ContentEncoding   string             `bson:"contentEncoding,omitempty"`
	Author            AuthorRef          `bson:"author"`
	AuthorSnapshot    *AuthorSnapshot    `bson:"authorSnapshot,omitempty"`
	CoverImage        string             `bson:"coverImage,omitempty"`
	ThumbnailImage    string             `bson:"thumbnailImage,omitempty"`
	Genres            []string           `bson:"genres"`
	Tags              []string           `bson:"tags"`
	ReadTime          int                `bson:"readTime"`
	LikesCount        int64              `bson:"likesCount"`
	CommentsCount     int64              `bson:"commentsCount"`
	ReadsCount        int64              `bson:"readsCount"`
	EditorPick        bool               `bson:"editorPick"`
	Published         bool               `bson:"published"`
	Pulse             PulseCounts        `bson:"pulse"`
	Contest           string             `bson:"contest,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

// OwnedBy reports whether userID wrote the story, looking at the snapshot
// first and then the author reference.
func (s *Story) OwnedBy(userID primitive.ObjectID) bool {
	if s.AuthorSnapshot != nil && !s.AuthorSnapshot.ID.IsZero() {
		return s.AuthorSnapshot.ID == userID
	}
	return s.Author.Matches(userID)
}

// OwnerID returns the author's user id when it is known without a lookup.
func (s *Story) OwnerID() (primitive.ObjectID, bool) {
	if s.AuthorSnapshot != nil && !s.AuthorSnapshot.ID.IsZero() {
		return s.AuthorSnapshot.ID, true
	}
	if (s.Author.Kind == AuthorReference || s.Author.Kind == AuthorEmbedded) && !s.Author.ID.IsZero() {
		return s.Author.ID, true
	}
	return primitive.NilObjectID, false
}
