package story

import (
	"context"

	"anoa.com/storyverse/internal/entity"
	authorDto "anoa.com/storyverse/internal/modules/author/dto"
	author "anoa.com/storyverse/internal/modules/author/service"
	"anoa.com/storyverse/internal/modules/story/dto"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/textcodec"
	"github.com/sirupsen/logrus"
)

// Normalizer turns stored stories into response shapes. Author references are
// resolved in one batch per call, never per story.
type Normalizer interface {
	Normalize(ctx context.Context, stories []entity.Story) ([]dto.StoryResponse, error)
	NormalizeOne(ctx context.Context, story *entity.Story) (*dto.StoryResponse, error)
}

type normalizer struct {
	resolver author.Resolver
}

func NewNormalizer(resolver author.Resolver) Normalizer {
	return &normalizer{resolver: resolver}
}

func (n *normalizer) Normalize(ctx context.Context, stories []entity.Story) ([]dto.StoryResponse, error) {
	out := make([]dto.StoryResponse, len(stories))
	authors := make([]authorDto.AuthorSummary, len(stories))

	var pending []entity.AuthorRef
	var pendingIdx []int
	for i := range stories {
		if summary, ok := directAuthor(&stories[i]); ok {
			authors[i] = summary
			continue
		}
		if k := stories[i].Author.Kind; k == entity.AuthorReference || k == entity.AuthorLegacyUsername {
			pending = append(pending, stories[i].Author)
			pendingIdx = append(pendingIdx, i)
		}
	}

	if len(pending) > 0 {
		resolved, err := n.resolver.Resolve(ctx, pending)
		if err != nil {
			return nil, err
		}
		for j, i := range pendingIdx {
			authors[i] = resolved[j]
		}
	}

	for i := range stories {
		out[i] = toResponse(&stories[i], authors[i])
	}
	return out, nil
}

func (n *normalizer) NormalizeOne(ctx context.Context, story *entity.Story) (*dto.StoryResponse, error) {
	out, err := n.Normalize(ctx, []entity.Story{*story})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// directAuthor covers the cases that need no lookup: a usable snapshot, then
// an embedded author carrying an id or username.
func directAuthor(s *entity.Story) (authorDto.AuthorSummary, bool) {
	if snap := s.AuthorSnapshot; snap != nil && (snap.Name != "" || snap.Username != "") {
		return author.FromSnapshot(snap), true
	}
	if s.Author.Kind == entity.AuthorEmbedded && s.Author.Embedded != nil {
		if !s.Author.Embedded.ID.IsZero() || s.Author.Embedded.Username != "" {
			return author.FromSnapshot(s.Author.Embedded), true
		}
	}
	return authorDto.AuthorSummary{}, false
}

func toResponse(s *entity.Story, a authorDto.AuthorSummary) dto.StoryResponse {
	genres, tags := s.Genres, s.Tags
	if genres == nil {
		genres = []string{}
	}
	if tags == nil {
		tags = []string{}
	}

	resp := dto.StoryResponse{
		ID:             s.ID.Hex(),
		Title:          s.Title,
		Description:    s.Description,
		CoverImage:     s.CoverImage,
		ThumbnailImage: s.ThumbnailImage,
		Genres:         genres,
		Tags:           tags,
		ReadTime:       s.ReadTime,
		Author:         a,
		LikesCount:     s.LikesCount,
		ReadsCount:     s.ReadsCount,
		CommentsCount:  s.CommentsCount,
		EditorPick:     s.EditorPick,
		Published:      s.Published,
		Pulse:          s.Pulse.Full(),
		Contest:        s.Contest,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	content, err := textcodec.Unpack(s.Content, s.ContentCompressed, s.ContentEncoding)
	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{"story_id": resp.ID}).Error("failed to unpack story content")
	}
	resp.Content = content
	return resp
}
