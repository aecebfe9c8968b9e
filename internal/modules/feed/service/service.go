package feed

import (
	"context"
	"fmt"
	"time"

	"anoa.com/storyverse/internal/entity"
	feedDto "anoa.com/storyverse/internal/modules/feed/dto"
	storyDto "anoa.com/storyverse/internal/modules/story/dto"
	repo "anoa.com/storyverse/internal/modules/story/repository"
	story "anoa.com/storyverse/internal/modules/story/service"
	"anoa.com/storyverse/pkg/cache"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const homepageCacheKey = "feed:homepage"

type StoryFinder interface {
	Find(ctx context.Context, q repo.Query) ([]entity.Story, error)
}

type Config struct {
	Genres       []string
	SectionSize  int
	QuickReadMax int
	CacheTTL     time.Duration
}

type Service interface {
	Homepage(ctx context.Context) (*feedDto.HomepageResponse, error)
}

type service struct {
	stories    StoryFinder
	normalizer story.Normalizer
	cache      *cache.JSONCache
	cfg        Config
}

func NewService(stories StoryFinder, normalizer story.Normalizer, c *cache.JSONCache, cfg Config) Service {
	if cfg.SectionSize <= 0 {
		cfg.SectionSize = 18
	}
	if cfg.QuickReadMax <= 0 {
		cfg.QuickReadMax = 6
	}
	return &service{stories: stories, normalizer: normalizer, cache: c, cfg: cfg}
}

type section struct {
	name  string
	query repo.Query
}

func (s *service) sections() []section {
	limit := int64(s.cfg.SectionSize)
	out := []section{
		{feedDto.SectionTrending, repo.Query{PublishedOnly: true, Sort: repo.SortTrending, Limit: limit}},
		{feedDto.SectionLatest, repo.Query{PublishedOnly: true, Sort: repo.SortLatest, Limit: limit}},
		{feedDto.SectionQuickReads, repo.Query{PublishedOnly: true, MaxReadTime: s.cfg.QuickReadMax, Limit: limit}},
		{feedDto.SectionEditorPicks, repo.Query{PublishedOnly: true, EditorPick: true, Limit: limit}},
	}
	for _, g := range s.cfg.Genres {
		out = append(out, section{g, repo.Query{PublishedOnly: true, Genre: g, Limit: limit}})
	}
	return out
}

func (s *service) Homepage(ctx context.Context) (*feedDto.HomepageResponse, error) {
	var cached feedDto.HomepageResponse
	hit, err := s.cache.Get(ctx, homepageCacheKey, &cached)
	if err != nil {
		logger.Log.WithError(err).Warn("homepage cache read failed")
	}
	if hit {
		metrics.FeedCacheHits.Inc()
		return &cached, nil
	}
	metrics.FeedCacheMisses.Inc()

	resp, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, homepageCacheKey, resp, s.cfg.CacheTTL); err != nil {
		logger.Log.WithError(err).Warn("homepage cache write failed")
	}
	return resp, nil
}

// assemble runs every section query concurrently, each through the
// normalizer. One failing section fails the whole homepage.
func (s *service) assemble(ctx context.Context) (*feedDto.HomepageResponse, error) {
	start := time.Now()
	defer func() { metrics.FeedAssemblyDuration.Observe(time.Since(start).Seconds()) }()

	sections := s.sections()
	results := make([][]storyDto.StoryResponse, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	for i, sec := range sections {
		g.Go(func() error {
			stories, err := s.stories.Find(gctx, sec.query)
			if err != nil {
				return fmt.Errorf("section %s: %w", sec.name, err)
			}
			if len(stories) == 0 && sec.name == feedDto.SectionQuickReads {
				stories, err = s.stories.Find(gctx, repo.Query{PublishedOnly: true, Sort: repo.SortLatest, Limit: sec.query.Limit})
				if err != nil {
					return fmt.Errorf("section %s fallback: %w", sec.name, err)
				}
			}

			normalized, err := s.normalizer.Normalize(gctx, stories)
			if err != nil {
				return fmt.Errorf("section %s: %w", sec.name, err)
			}
			results[i] = normalized
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("failed to assemble homepage")
		return nil, err
	}

	data := make(map[string][]storyDto.StoryResponse, len(sections))
	for i, sec := range sections {
		data[sec.name] = results[i]
	}
	return &feedDto.HomepageResponse{OK: true, Data: data, Timestamp: time.Now().UTC()}, nil
}
