package entity

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// AuthorSnapshot is an author copy stored inside another document, either as
// the authorSnapshot field or as a legacy embedded author.
type AuthorSnapshot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Name         string             `bson:"name" json:"name"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
}

type AuthorRefKind int

const (
	AuthorMissing AuthorRefKind = iota
	AuthorEmbedded
	AuthorReference
	AuthorLegacyUsername
)

func (k AuthorRefKind) String() string {
	switch k {
	case AuthorEmbedded:
		return "embedded"
	case AuthorReference:
		return "reference"
	case AuthorLegacyUsername:
		return "legacy_username"
	default:
		return "missing"
	}
}

// AuthorRef is the author field of a story. Old documents hold a user id, an id
// string, a username (sometimes "@name") or a whole embedded user.
type AuthorRef struct {
	Kind     AuthorRefKind
	ID       primitive.ObjectID
	Raw      string
	Embedded *AuthorSnapshot
}

func RefByID(id primitive.ObjectID) AuthorRef {
	return AuthorRef{Kind: AuthorReference, ID: id, Raw: id.Hex()}
}

func RefEmbedded(a AuthorSnapshot) AuthorRef {
	return AuthorRef{Kind: AuthorEmbedded, ID: a.ID, Embedded: &a}
}

// RefFromString classifies a stored string: a valid object id is a reference,
// anything else a legacy username.
func RefFromString(s string) AuthorRef {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return AuthorRef{}
	}
	if id, err := primitive.ObjectIDFromHex(trimmed); err == nil {
		return AuthorRef{Kind: AuthorReference, ID: id, Raw: s}
	}
	return AuthorRef{Kind: AuthorLegacyUsername, Raw: s}
}

// LookupUsername is the case-folded username without a leading "@".
func (r AuthorRef) LookupUsername() string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(r.Raw), "@"))
}

// Original is the string a fallback summary carries when nothing resolves.
func (r AuthorRef) Original() string {
	if r.Raw != "" {
		return r.Raw
	}
	if !r.ID.IsZero() {
		return r.ID.Hex()
	}
	return ""
}

// Matches reports whether the ref points at userID.
func (r AuthorRef) Matches(userID primitive.ObjectID) bool {
	switch r.Kind {
	case AuthorReference, AuthorEmbedded:
		return r.ID == userID
	default:
		return false
	}
}

func (r AuthorRef) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch r.Kind {
	case AuthorReference:
		return bson.MarshalValue(r.ID)
	case AuthorLegacyUsername:
		return bson.MarshalValue(r.Raw)
	case AuthorEmbedded:
		if r.Embedded == nil {
			return bson.TypeNull, nil, nil
		}
		return bson.MarshalValue(r.Embedded)
	default:
		return bson.TypeNull, nil, nil
	}
}

func (r *AuthorRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: t, Data: data}
	switch t {
	case bson.TypeObjectID:
		id, ok := v.ObjectIDOK()
		if !ok {
			return fmt.Errorf("author: malformed object id")
		}
		*r = RefByID(id)
	case bson.TypeString:
		s, ok := v.StringValueOK()
		if !ok {
			return fmt.Errorf("author: malformed string")
		}
		*r = RefFromString(s)
	case bson.TypeEmbeddedDocument:
		var a AuthorSnapshot
		if err := bson.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("author: %w", err)
		}
		*r = RefEmbedded(a)
	case bson.TypeNull, bson.TypeUndefined:
		*r = AuthorRef{}
	default:
		return fmt.Errorf("author: unsupported bson type %s", t)
	}
	return nil
}
