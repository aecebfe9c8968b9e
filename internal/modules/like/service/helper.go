package like

import (
	"context"
	"fmt"

	"anoa.com/storyverse/internal/entity"
	author "anoa.com/storyverse/internal/modules/author/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type storyStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Story, error)
	AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error)
}

type storyTarget struct {
	stories storyStore
	users   author.UsernameFinder
}

// StoryTarget adapts the story store; legacy username authors are resolved
// through users so they still get notified.
func StoryTarget(stories storyStore, users author.UsernameFinder) TargetStore {
	return &storyTarget{stories: stories, users: users}
}

func (t *storyTarget) Lookup(ctx context.Context, id primitive.ObjectID) (*Target, error) {
	story, err := t.stories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("story: %w", err)
	}
	owner, err := author.StoryOwner(ctx, t.users, story)
	if err != nil {
		return nil, err
	}
	return &Target{Owner: owner, LikesCount: story.LikesCount}, nil
}

func (t *storyTarget) AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error) {
	return t.stories.AdjustLikes(ctx, id, delta)
}

type commentStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Comment, error)
	AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error)
}

type commentTarget struct {
	comments commentStore
}

func CommentTarget(comments commentStore) TargetStore {
	return &commentTarget{comments: comments}
}

func (t *commentTarget) Lookup(ctx context.Context, id primitive.ObjectID) (*Target, error) {
	c, err := t.comments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("comment: %w", err)
	}
	return &Target{Owner: c.User, LikesCount: c.LikesCount}, nil
}

func (t *commentTarget) AdjustLikes(ctx context.Context, id primitive.ObjectID, delta int64) (int64, error) {
	return t.comments.AdjustLikes(ctx, id, delta)
}
