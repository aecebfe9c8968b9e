package bootstrap

import (
	"context"
	"fmt"
	"testing"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type seedUsers struct{ byEmail map[string]*entity.User }

func (s *seedUsers) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
}

func (s *seedUsers) Create(ctx context.Context, u *entity.User) error {
	u.ID = primitive.NewObjectID()
	s.byEmail[u.Email] = u
	return nil
}

type seedStories struct{ created []*entity.Story }

func (s *seedStories) Create(ctx context.Context, story *entity.Story) error {
	s.created = append(s.created, story)
	return nil
}

func TestSeedDemoCreatesAuthorAndStory(t *testing.T) {
	users := &seedUsers{byEmail: map[string]*entity.User{}}
	stories := &seedStories{}

	require.NoError(t, SeedDemo(context.Background(), users, stories))

	u := users.byEmail[DemoEmail]
	require.NotNil(t, u)
	assert.Equal(t, DemoUsername, u.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(demoPassword)))

	require.Len(t, stories.created, 1)
	assert.True(t, stories.created[0].Published)
	assert.True(t, stories.created[0].OwnedBy(u.ID))
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	users := &seedUsers{byEmail: map[string]*entity.User{DemoEmail: {Email: DemoEmail}}}
	stories := &seedStories{}

	require.NoError(t, SeedDemo(context.Background(), users, stories))
	assert.Empty(t, stories.created)
}
