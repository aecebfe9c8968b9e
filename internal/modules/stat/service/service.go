package stat

import (
	"context"
	"time"

	"anoa.com/storyverse/internal/modules/stat/dto"
	storyRepo "anoa.com/storyverse/internal/modules/story/repository"
	"anoa.com/storyverse/pkg/cache"
	"anoa.com/storyverse/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	statsCacheKey = "stats:site"
	statsCacheTTL = 5 * time.Minute
)

type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

type StoryCounter interface {
	Count(ctx context.Context, q storyRepo.Query) (int64, error)
	GenreCounts(ctx context.Context) ([]storyRepo.GenreCount, error)
}

type StatService interface {
	GetSiteStats(ctx context.Context) (*dto.SiteStatsResponse, error)
}

type statService struct {
	users   UserCounter
	stories StoryCounter
	cache   *cache.JSONCache
}

func NewStatService(users UserCounter, stories StoryCounter, c *cache.JSONCache) StatService {
	return &statService{users: users, stories: stories, cache: c}
}

func (s *statService) GetSiteStats(ctx context.Context) (*dto.SiteStatsResponse, error) {
	var cached dto.SiteStatsResponse
	hit, err := s.cache.Get(ctx, statsCacheKey, &cached)
	if err != nil {
		logger.Log.WithError(err).Warn("stats cache read failed")
	}
	if hit {
		return &cached, nil
	}

	resp := &dto.SiteStatsResponse{Genres: []dto.GenreStat{}}
	var genres []storyRepo.GenreCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		resp.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.stories.Count(gctx, storyRepo.Query{PublishedOnly: true})
		resp.TotalStories = n
		return err
	})
	g.Go(func() error {
		var err error
		genres, err = s.stories.GenreCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, gc := range genres {
		resp.Genres = append(resp.Genres, dto.GenreStat{Genre: gc.Genre, Count: gc.Count})
	}

	if err := s.cache.Set(ctx, statsCacheKey, resp, statsCacheTTL); err != nil {
		logger.Log.WithError(err).Warn("stats cache write failed")
	}
	return resp, nil
}
