package bootstrap

import (
	"context"
	"errors"
	"time"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	DemoEmail    = "demo@storyverse.local"
	DemoUsername = "storyverse"
	demoPassword = "storyverse123"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
}

type StoryStore interface {
	Create(ctx context.Context, story *entity.Story) error
}

// SeedDemo creates a demo author with one published story. It does nothing
// when the demo account already exists.
func SeedDemo(ctx context.Context, users UserStore, stories StoryStore) error {
	_, err := users.FindByEmail(ctx, DemoEmail)
	if err == nil {
		logger.Log.Info("demo user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &entity.User{
		Email:        DemoEmail,
		PasswordHash: string(hashed),
		Username:     DemoUsername,
		Name:         "Storyverse",
		Bio:          "Demo author",
		Followers:    []primitive.ObjectID{},
		Following:    []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	story := &entity.Story{
		Title:          "The Lighthouse Keeper's Last Letter",
		Description:    "A short piece to check the homepage has something to show.",
		Content:        "<p>The lamp had not been lit in forty years, yet every night the harbour saw it burn.</p>",
		Author:         entity.RefByID(user.ID),
		AuthorSnapshot: user.Snapshot(),
		Genres:         []string{"drama"},
		Tags:           []string{"sea", "letters"},
		ReadTime:       1,
		Published:      true,
		EditorPick:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := stories.Create(ctx, story); err != nil {
		return err
	}

	logger.Log.WithField("email", DemoEmail).Info("demo user seeded")
	return nil
}
