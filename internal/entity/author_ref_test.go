package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func decodeAuthor(t *testing.T, author any) AuthorRef {
	t.Helper()
	raw, err := bson.Marshal(bson.M{"title": "x", "author": author})
	require.NoError(t, err)

	var s Story
	require.NoError(t, bson.Unmarshal(raw, &s))
	return s.Author
}

func TestAuthorRefDecodesStoredShapes(t *testing.T) {
	id := primitive.NewObjectID()

	ref := decodeAuthor(t, id)
	assert.Equal(t, AuthorReference, ref.Kind)
	assert.Equal(t, id, ref.ID)

	ref = decodeAuthor(t, id.Hex())
	assert.Equal(t, AuthorReference, ref.Kind)
	assert.Equal(t, id, ref.ID)
	assert.Equal(t, id.Hex(), ref.Original())

	ref = decodeAuthor(t, "@Mira_Writes")
	assert.Equal(t, AuthorLegacyUsername, ref.Kind)
	assert.Equal(t, "mira_writes", ref.LookupUsername())
	assert.Equal(t, "@Mira_Writes", ref.Original())

	ref = decodeAuthor(t, bson.M{"_id": id, "username": "mira", "name": "Mira"})
	assert.Equal(t, AuthorEmbedded, ref.Kind)
	require.NotNil(t, ref.Embedded)
	assert.Equal(t, "Mira", ref.Embedded.Name)
	assert.Equal(t, id, ref.ID)

	ref = decodeAuthor(t, nil)
	assert.Equal(t, AuthorMissing, ref.Kind)

	ref = decodeAuthor(t, "   ")
	assert.Equal(t, AuthorMissing, ref.Kind)
}

func TestAuthorRefMissingFieldIsMissing(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"title": "no author"})
	require.NoError(t, err)

	var s Story
	require.NoError(t, bson.Unmarshal(raw, &s))
	assert.Equal(t, AuthorMissing, s.Author.Kind)
}

func TestAuthorRefRejectsUnsupportedType(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"author": 42})
	require.NoError(t, err)

	var s Story
	assert.Error(t, bson.Unmarshal(raw, &s))
}

func TestAuthorRefEncodesBack(t *testing.T) {
	id := primitive.NewObjectID()
	for _, ref := range []AuthorRef{
		RefByID(id),
		RefFromString("legacy"),
		RefEmbedded(AuthorSnapshot{ID: id, Username: "mira"}),
		{},
	} {
		raw, err := bson.Marshal(Story{Author: ref})
		require.NoError(t, err)

		var back Story
		require.NoError(t, bson.Unmarshal(raw, &back))
		assert.Equal(t, ref.Kind, back.Author.Kind, ref.Kind.String())
		assert.Equal(t, ref.ID, back.Author.ID)
	}
}

func TestStoryOwnership(t *testing.T) {
	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()

	s := Story{Author: RefByID(owner)}
	assert.True(t, s.OwnedBy(owner))
	assert.False(t, s.OwnedBy(other))

	s = Story{Author: RefFromString("mira"), AuthorSnapshot: &AuthorSnapshot{ID: owner}}
	assert.True(t, s.OwnedBy(owner))
	id, ok := s.OwnerID()
	assert.True(t, ok)
	assert.Equal(t, owner, id)

	s = Story{Author: RefFromString("mira")}
	_, ok = s.OwnerID()
	assert.False(t, ok)
}

func TestMoodValidAndPulseFull(t *testing.T) {
	assert.True(t, MoodDark.Valid())
	assert.False(t, Mood("angry").Valid())

	full := PulseCounts{MoodSoft: 2}.Full()
	assert.Len(t, full, 5)
	assert.Equal(t, int64(2), full[MoodSoft])
	assert.Equal(t, int64(0), full[MoodStrange])
}
