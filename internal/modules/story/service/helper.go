package story

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"anoa.com/storyverse/internal/entity"
	storyDto "anoa.com/storyverse/internal/modules/story/dto"
	"anoa.com/storyverse/pkg/apperror"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/sanitize"
	"anoa.com/storyverse/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	wordsPerMinute = 200
	coverFolder    = "covers"
)

func (s *service) plainText(in string) string {
	return sanitize.PlainText(s.strict, in)
}

func (s *service) richText(in string) string {
	return strings.TrimSpace(s.ugc.Sanitize(in))
}

// estimateReadTime returns whole minutes at wordsPerMinute, never less than one.
func estimateReadTime(text string) int {
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// cleanLabels trims, drops blanks and dedupes case-insensitively, keeping the
// first spelling seen.
func cleanLabels(in []string, lower bool) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "#"))
		if v == "" {
			continue
		}
		if lower {
			v = strings.ToLower(v)
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (s *service) uploadCover(ctx context.Context, payload string) (string, error) {
	if s.deps.Storage == nil {
		return "", fmt.Errorf("image storage not configured: %w", apperror.ErrInternal)
	}
	data, ext, err := storage.DecodeBase64Image(payload)
	if err != nil {
		return "", apperror.New(http.StatusBadRequest, err.Error(), apperror.ErrInvalidInput)
	}
	url, err := s.deps.Storage.UploadImage(ctx, bytes.NewReader(data), coverFolder, uuid.New().String()+ext)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return "", apperror.New(http.StatusBadRequest, err.Error(), apperror.ErrInvalidInput)
		}
		return "", fmt.Errorf("failed to upload cover: %w", err)
	}
	return url, nil
}

func (s *service) deleteImage(ctx context.Context, url string) {
	if url == "" || s.deps.Storage == nil {
		return
	}
	if err := s.deps.Storage.DeleteImage(context.WithoutCancel(ctx), url); err != nil {
		logger.Log.WithError(err).WithField("url", url).Warn("failed to delete story image")
	}
}

func (s *service) index(ctx context.Context, story *entity.Story) {
	if s.deps.Indexer == nil {
		return
	}
	if err := s.deps.Indexer.IndexStory(ctx, story); err != nil {
		logger.Log.WithError(err).WithField("story_id", story.ID.Hex()).Warn("failed to index story")
	}
}

// isOwner checks ownership; legacy username authors are resolved first.
func (s *service) isOwner(ctx context.Context, userID primitive.ObjectID, story *entity.Story) (bool, error) {
	if story.OwnedBy(userID) {
		return true, nil
	}
	if story.Author.Kind != entity.AuthorLegacyUsername {
		return false, nil
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.EqualFold(u.Username, story.Author.LookupUsername()), nil
}

func (s *service) detail(ctx context.Context, story *entity.Story, viewer *primitive.ObjectID) (*storyDto.StoryDetailResponse, error) {
	resp, err := s.normalizer.NormalizeOne(ctx, story)
	if err != nil {
		return nil, err
	}
	out := &storyDto.StoryDetailResponse{StoryResponse: *resp}
	if viewer != nil {
		out.Viewer = s.viewerState(ctx, *viewer, story.ID)
	}
	return out, nil
}

// viewerState is best effort; failures leave the field empty.
func (s *service) viewerState(ctx context.Context, userID, storyID primitive.ObjectID) *storyDto.ViewerState {
	state := &storyDto.ViewerState{}
	log := logger.Log.WithFields(logrus.Fields{"story_id": storyID.Hex(), "user_id": userID.Hex()})

	if s.deps.Likes != nil {
		liked, err := s.deps.Likes.HasLiked(ctx, userID, storyID)
		if err != nil {
			log.WithError(err).Warn("failed to read like state")
		}
		state.Liked = liked
	}
	if s.deps.Moods != nil {
		mood, err := s.deps.Moods.MoodOf(ctx, userID, storyID)
		if err != nil {
			log.WithError(err).Warn("failed to read pulse vote")
		}
		state.Mood = mood
	}
	return state
}

func emptyPage(page commonDto.PageQuery) *storyDto.PaginatedStoryResponse {
	return &storyDto.PaginatedStoryResponse{
		Data: []storyDto.StoryResponse{},
		Meta: commonDto.NewPaginationMeta(page, 0),
	}
}

// orderByIDs returns stories in ids order, dropping ids with no story.
func orderByIDs(ids []primitive.ObjectID, stories []entity.Story) []entity.Story {
	byID := make(map[primitive.ObjectID]entity.Story, len(stories))
	for _, st := range stories {
		byID[st.ID] = st
	}
	out := make([]entity.Story, 0, len(ids))
	for _, id := range ids {
		if st, ok := byID[id]; ok {
			out = append(out, st)
		}
	}
	return out
}
