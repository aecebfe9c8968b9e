package service

import (
	"context"
	"errors"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UsernameFinder interface {
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
}

// StoryOwner returns the id of the user who wrote s. Legacy username authors
// cost one lookup; an author that cannot be resolved yields NilObjectID.
func StoryOwner(ctx context.Context, users UsernameFinder, s *entity.Story) (primitive.ObjectID, error) {
	if id, ok := s.OwnerID(); ok {
		return id, nil
	}
	if s.Author.Kind != entity.AuthorLegacyUsername || users == nil {
		return primitive.NilObjectID, nil
	}

	u, err := users.FindByUsername(ctx, s.Author.LookupUsername())
	if errors.Is(err, apperror.ErrNotFound) {
		return primitive.NilObjectID, nil
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return u.ID, nil
}
