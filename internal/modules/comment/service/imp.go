package comment

import (
	"context"
	"fmt"

	"anoa.com/storyverse/internal/entity"
	commentDto "anoa.com/storyverse/internal/modules/comment/dto"
	"anoa.com/storyverse/pkg/apperror"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/sanitize"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *commentService) List(ctx context.Context, storyID primitive.ObjectID, page commonDto.PageQuery) (*commentDto.PaginatedCommentResponse, error) {
	page.Normalize(defaultPageSize)

	comments, total, err := s.repo.ListByStory(ctx, storyID, page.Skip(), int64(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	data, err := s.toResponses(ctx, comments)
	if err != nil {
		return nil, err
	}
	return &commentDto.PaginatedCommentResponse{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page, total),
	}, nil
}

func (s *commentService) Create(ctx context.Context, userID, storyID primitive.ObjectID, req commentDto.CreateCommentInput) (*commentDto.CommentResponse, error) {
	content := sanitize.PlainText(s.policy, req.Content)
	if content == "" {
		return nil, fmt.Errorf("comment is empty: %w", apperror.ErrInvalidInput)
	}

	if _, err := s.stories.FindByID(ctx, storyID); err != nil {
		return nil, fmt.Errorf("story: %w", err)
	}

	c := &entity.Comment{
		Story:   storyID,
		User:    userID,
		Content: content,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if err := s.stories.AdjustComments(ctx, storyID, 1); err != nil {
		logger.Log.WithError(err).WithField("story_id", storyID.Hex()).Warn("failed to bump comment count")
	}

	out, err := s.toResponses(ctx, []entity.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *commentService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	if c.User != userID {
		return fmt.Errorf("not the comment owner: %w", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	log := logger.Log.WithFields(logrus.Fields{"comment_id": id.Hex(), "story_id": c.Story.Hex()})
	if err := s.stories.AdjustComments(ctx, c.Story, -1); err != nil {
		log.WithError(err).Warn("failed to drop comment count")
	}
	if _, err := s.likes.DeleteByTargets(ctx, id); err != nil {
		log.WithError(err).Warn("failed to delete comment likes")
	}
	return nil
}

func (s *commentService) CleanupStory(ctx context.Context, storyID primitive.ObjectID) error {
	ids, err := s.repo.DeleteByStory(ctx, storyID)
	if err != nil {
		return fmt.Errorf("failed to delete story comments: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.likes.DeleteByTargets(ctx, ids...); err != nil {
		return fmt.Errorf("failed to delete comment likes: %w", err)
	}
	return nil
}

// toResponses resolves every commenter in one lookup.
func (s *commentService) toResponses(ctx context.Context, comments []entity.Comment) ([]commentDto.CommentResponse, error) {
	out := make([]commentDto.CommentResponse, len(comments))
	if len(comments) == 0 {
		return out, nil
	}

	refs := make([]entity.AuthorRef, len(comments))
	for i, c := range comments {
		refs[i] = entity.RefByID(c.User)
	}
	users, err := s.resolver.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	for i, c := range comments {
		out[i] = commentDto.CommentResponse{
			ID:         c.ID.Hex(),
			StoryID:    c.Story.Hex(),
			User:       users[i],
			Content:    c.Content,
			LikesCount: c.LikesCount,
			CreatedAt:  c.CreatedAt,
		}
	}
	return out, nil
}
