package story

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"anoa.com/storyverse/internal/entity"
	storyDto "anoa.com/storyverse/internal/modules/story/dto"
	repo "anoa.com/storyverse/internal/modules/story/repository"
	"anoa.com/storyverse/pkg/apperror"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/ratelimiter"
	"anoa.com/storyverse/pkg/textcodec"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const defaultPageSize = 12

func (s *service) Create(ctx context.Context, userID primitive.ObjectID, req storyDto.CreateStoryInput) (resp *storyDto.StoryDetailResponse, err error) {
	release, err := ratelimiter.Guard(ctx, s.deps.Redis, userID.Hex(), ratelimiter.ScopeStory, s.deps.RateLimit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author: %w", err)
	}

	title := s.plainText(req.Title)
	content := s.richText(req.Content)
	if title == "" || content == "" {
		return nil, apperror.New(http.StatusBadRequest, "title and content are required", apperror.ErrInvalidInput)
	}

	readTime := req.ReadTime
	if readTime <= 0 {
		readTime = estimateReadTime(s.plainText(content))
	}

	plain, packed, encoding, err := textcodec.Pack(content, s.deps.CompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to pack content: %w", err)
	}

	published := true
	if req.Published != nil {
		published = *req.Published
	}

	story := &entity.Story{
		Title:             title,
		Description:       s.plainText(req.Description),
		Content:           plain,
		ContentCompressed: packed,
		ContentEncoding:   encoding,
		Author:            entity.RefByID(user.ID),
		AuthorSnapshot:    user.Snapshot(),
		Genres:            cleanLabels(req.Genres, false),
		Tags:              cleanLabels(req.Tags, true),
		ReadTime:          readTime,
		Published:         published,
		Contest:           s.plainText(req.Contest),
	}

	if req.CoverImageBase64 != "" {
		url, err := s.uploadCover(ctx, req.CoverImageBase64)
		if err != nil {
			return nil, err
		}
		story.CoverImage, story.ThumbnailImage = url, url
	}

	if err := s.storyRepo.Create(ctx, story); err != nil {
		s.deleteImage(ctx, story.CoverImage)
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"story_id":   story.ID.Hex(),
		"user_id":    userID.Hex(),
		"compressed": encoding != "",
	}).Info("story created")

	s.index(ctx, story)
	return s.detail(ctx, story, nil)
}

func (s *service) GetByID(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*storyDto.StoryDetailResponse, error) {
	story, err := s.storyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("story: %w", err)
	}

	if !story.Published {
		owner := false
		if viewer != nil {
			owner, err = s.isOwner(ctx, *viewer, story)
			if err != nil {
				return nil, err
			}
		}
		if !owner {
			return nil, fmt.Errorf("story: %w", apperror.ErrNotFound)
		}
	}

	return s.detail(ctx, story, viewer)
}

func (s *service) Update(ctx context.Context, userID, id primitive.ObjectID, req storyDto.UpdateStoryInput) (*storyDto.StoryDetailResponse, error) {
	story, err := s.storyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("story: %w", err)
	}
	owner, err := s.isOwner(ctx, userID, story)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, fmt.Errorf("you can only edit your own stories: %w", apperror.ErrForbidden)
	}

	var update repo.StoryUpdate
	if req.Title != nil {
		title := s.plainText(*req.Title)
		if title == "" {
			return nil, apperror.New(http.StatusBadRequest, "title cannot be empty", apperror.ErrInvalidInput)
		}
		update.Title = &title
	}
	if req.Description != nil {
		desc := s.plainText(*req.Description)
		update.Description = &desc
	}
	if req.Content != nil {
		content := s.richText(*req.Content)
		if content == "" {
			return nil, apperror.New(http.StatusBadRequest, "content cannot be empty", apperror.ErrInvalidInput)
		}
		plain, packed, encoding, err := textcodec.Pack(content, s.deps.CompressThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to pack content: %w", err)
		}
		update.Content, update.ContentCompressed, update.ContentEncoding = &plain, packed, &encoding
		if req.ReadTime == nil {
			rt := estimateReadTime(s.plainText(content))
			update.ReadTime = &rt
		}
	}
	if req.ReadTime != nil {
		update.ReadTime = req.ReadTime
	}
	if req.Genres != nil {
		genres := cleanLabels(*req.Genres, false)
		update.Genres = &genres
	}
	if req.Tags != nil {
		tags := cleanLabels(*req.Tags, true)
		update.Tags = &tags
	}
	update.Published = req.Published

	var newCover string
	if req.CoverImageBase64 != nil && *req.CoverImageBase64 != "" {
		newCover, err = s.uploadCover(ctx, *req.CoverImageBase64)
		if err != nil {
			return nil, err
		}
		update.CoverImage, update.ThumbnailImage = &newCover, &newCover
	}

	updated, err := s.storyRepo.Update(ctx, id, update)
	if err != nil {
		s.deleteImage(ctx, newCover)
		return nil, fmt.Errorf("failed to update story: %w", err)
	}
	if newCover != "" {
		s.deleteImage(ctx, story.CoverImage)
	}

	s.index(ctx, updated)
	return s.detail(ctx, updated, &userID)
}

func (s *service) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	story, err := s.storyRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("story: %w", err)
	}
	owner, err := s.isOwner(ctx, userID, story)
	if err != nil {
		return err
	}
	if !owner {
		return fmt.Errorf("you can only delete your own stories: %w", apperror.ErrForbidden)
	}

	if err := s.storyRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}

	log := logger.Log.WithField("story_id", id.Hex())
	for _, cleanup := range s.deps.Cleanups {
		if err := cleanup(ctx, id); err != nil {
			log.WithError(err).Error("failed to clean up after story delete")
		}
	}
	s.deleteImage(ctx, story.CoverImage)
	if s.deps.Indexer != nil {
		if err := s.deps.Indexer.RemoveStory(ctx, id); err != nil {
			log.WithError(err).Warn("failed to remove story from search index")
		}
	}

	log.WithField("user_id", userID.Hex()).Info("story deleted")
	return nil
}

func (s *service) List(ctx context.Context, q storyDto.ListStoriesQuery) (*storyDto.PaginatedStoryResponse, error) {
	q.Normalize(defaultPageSize)

	sort := repo.SortLatest
	if q.Sort == "trending" {
		sort = repo.SortTrending
	}
	return s.page(ctx, repo.Query{
		PublishedOnly: true,
		Genre:         q.Genre,
		Search:        q.Search,
		Contest:       q.Contest,
		Sort:          sort,
	}, q.PageQuery)
}

func (s *service) ByAuthor(ctx context.Context, username string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	page.Normalize(defaultPageSize)

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, apperror.ErrNotFound) {
		return emptyPage(page), nil
	}
	if err != nil {
		return nil, err
	}

	return s.page(ctx, repo.Query{
		PublishedOnly:  true,
		AuthorID:       &user.ID,
		AuthorUsername: user.Username,
	}, page)
}

func (s *service) LikedBy(ctx context.Context, username string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	page.Normalize(defaultPageSize)
	if s.deps.Likes == nil {
		return emptyPage(page), nil
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, apperror.ErrNotFound) {
		return emptyPage(page), nil
	}
	if err != nil {
		return nil, err
	}

	ids, total, err := s.deps.Likes.LikedIDs(ctx, user.ID, page.Skip(), int64(page.Limit))
	if err != nil {
		return nil, err
	}
	return s.pageOfIDs(ctx, ids, total, page)
}

func (s *service) Search(ctx context.Context, query string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	page.Normalize(defaultPageSize)
	if s.deps.Searcher == nil {
		return s.page(ctx, repo.Query{PublishedOnly: true, Search: query}, page)
	}

	ids, total, err := s.deps.Searcher.SearchStories(ctx, query, page.Skip(), int64(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return s.pageOfIDs(ctx, ids, total, page)
}

// page runs the listing and its count concurrently.
func (s *service) page(ctx context.Context, q repo.Query, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	q.Skip, q.Limit = page.Skip(), int64(page.Limit)

	var stories []entity.Story
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stories, err = s.storyRepo.Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.storyRepo.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	data, err := s.normalizer.Normalize(ctx, stories)
	if err != nil {
		return nil, err
	}
	return &storyDto.PaginatedStoryResponse{Data: data, Meta: commonDto.NewPaginationMeta(page, total)}, nil
}

func (s *service) pageOfIDs(ctx context.Context, ids []primitive.ObjectID, total int64, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	if len(ids) == 0 {
		out := emptyPage(page)
		out.Meta = commonDto.NewPaginationMeta(page, total)
		return out, nil
	}

	stories, err := s.storyRepo.Find(ctx, repo.Query{PublishedOnly: true, IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load stories: %w", err)
	}

	data, err := s.normalizer.Normalize(ctx, orderByIDs(ids, stories))
	if err != nil {
		return nil, err
	}
	return &storyDto.PaginatedStoryResponse{Data: data, Meta: commonDto.NewPaginationMeta(page, total)}, nil
}
