package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type byUsername map[string]*entity.User

func (m byUsername) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	if u, ok := m[strings.ToLower(username)]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %q: %w", username, apperror.ErrNotFound)
}

func TestStoryOwner(t *testing.T) {
	ctx := context.Background()
	mira := &entity.User{ID: primitive.NewObjectID(), Username: "mira"}
	users := byUsername{"mira": mira}

	snapID := primitive.NewObjectID()
	id, err := StoryOwner(ctx, users, &entity.Story{AuthorSnapshot: &entity.AuthorSnapshot{ID: snapID}, Author: entity.RefFromString("mira")})
	require.NoError(t, err)
	assert.Equal(t, snapID, id, "snapshot wins without a lookup")

	id, err = StoryOwner(ctx, users, &entity.Story{Author: entity.RefFromString("@Mira")})
	require.NoError(t, err)
	assert.Equal(t, mira.ID, id)

	id, err = StoryOwner(ctx, users, &entity.Story{Author: entity.RefFromString("ghost")})
	require.NoError(t, err)
	assert.True(t, id.IsZero())

	id, err = StoryOwner(ctx, nil, &entity.Story{})
	require.NoError(t, err)
	assert.True(t, id.IsZero())
}
