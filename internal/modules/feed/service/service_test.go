package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anoa.com/storyverse/internal/entity"
	author "anoa.com/storyverse/internal/modules/author/service"
	feedDto "anoa.com/storyverse/internal/modules/feed/dto"
	repo "anoa.com/storyverse/internal/modules/story/repository"
	story "anoa.com/storyverse/internal/modules/story/service"
	"anoa.com/storyverse/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeFinder answers each query with a story per matching rule.
type fakeFinder struct {
	mu       sync.Mutex
	queries  []repo.Query
	noQuick  bool
	failWhen func(repo.Query) bool
}

func (f *fakeFinder) Find(ctx context.Context, q repo.Query) ([]entity.Story, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.failWhen != nil && f.failWhen(q) {
		return nil, errors.New("query failed")
	}
	if q.MaxReadTime > 0 && f.noQuick {
		return []entity.Story{}, nil
	}

	title := "latest"
	switch {
	case q.Sort == repo.SortTrending:
		title = "trending"
	case q.MaxReadTime > 0:
		title = "quick"
	case q.EditorPick:
		title = "pick"
	case q.Genre != "":
		title = "genre:" + q.Genre
	}
	out := make([]entity.Story, 0, q.Limit)
	for i := int64(0); i < q.Limit; i++ {
		out = append(out, entity.Story{ID: primitive.NewObjectID(), Title: title, Author: entity.RefFromString("alice")})
	}
	return out, nil
}

type countingUsers struct {
	mu    sync.Mutex
	calls int
}

func (c *countingUsers) FindByIDsOrUsernames(ctx context.Context, ids []primitive.ObjectID, usernames []string) ([]entity.User, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return []entity.User{{ID: primitive.NewObjectID(), Username: "alice", Name: "Alice"}}, nil
}

func newService(f *fakeFinder, users *countingUsers, genres ...string) Service {
	return NewService(f, story.NewNormalizer(author.NewResolver(users)), cache.New(nil), Config{
		Genres:       genres,
		SectionSize:  18,
		QuickReadMax: 6,
	})
}

// memRedis backs JSONCache in tests. A non-nil err fails every command.
type memRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	m.data[key] = string(value.([]byte))
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func newCachedService(f *fakeFinder, rdb *memRedis) Service {
	return NewService(f, story.NewNormalizer(author.NewResolver(&countingUsers{})), cache.New(rdb), Config{
		SectionSize:  2,
		QuickReadMax: 6,
		CacheTTL:     time.Minute,
	})
}

func TestHomepageSections(t *testing.T) {
	finder := &fakeFinder{}
	users := &countingUsers{}

	resp, err := newService(finder, users, "Horror", "Romance").Homepage(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Len(t, resp.Data, 6)
	for _, key := range []string{feedDto.SectionTrending, feedDto.SectionLatest, feedDto.SectionQuickReads, feedDto.SectionEditorPicks, "Horror", "Romance"} {
		require.Len(t, resp.Data[key], 18, key)
	}
	assert.Equal(t, "trending", resp.Data[feedDto.SectionTrending][0].Title)
	assert.Equal(t, "quick", resp.Data[feedDto.SectionQuickReads][0].Title)
	assert.Equal(t, "genre:Horror", resp.Data["Horror"][0].Title)
	assert.Equal(t, "alice", resp.Data["Romance"][0].Author.Username)

	for _, q := range finder.queries {
		assert.True(t, q.PublishedOnly)
		assert.Equal(t, int64(18), q.Limit)
	}
	assert.Equal(t, 6, users.calls, "one author lookup per section")
}

func TestHomepageQuickReadsFallsBackToLatest(t *testing.T) {
	finder := &fakeFinder{noQuick: true}

	resp, err := newService(finder, &countingUsers{}).Homepage(context.Background())
	require.NoError(t, err)

	quick := resp.Data[feedDto.SectionQuickReads]
	require.Len(t, quick, 18)
	assert.Equal(t, "latest", quick[0].Title)
	assert.Len(t, finder.queries, 5)
}

func TestHomepageFailsWhenAnySectionFails(t *testing.T) {
	finder := &fakeFinder{failWhen: func(q repo.Query) bool { return q.EditorPick }}

	resp, err := newService(finder, &countingUsers{}, "Horror").Homepage(context.Background())
	assert.Nil(t, resp)
	assert.ErrorContains(t, err, "editorPicks")
}

func TestHomepageFailsWhenFallbackFails(t *testing.T) {
	finder := &fakeFinder{noQuick: true, failWhen: func(q repo.Query) bool {
		return q.Sort == repo.SortLatest && q.MaxReadTime == 0 && !q.EditorPick && q.Genre == ""
	}}

	_, err := newService(finder, &countingUsers{}).Homepage(context.Background())
	assert.Error(t, err)
}

func TestHomepageServedFromCache(t *testing.T) {
	finder := &fakeFinder{}
	rdb := &memRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
	svc := newCachedService(finder, rdb)

	first, err := svc.Homepage(context.Background())
	require.NoError(t, err)
	assert.Len(t, finder.queries, 4)
	assert.Contains(t, rdb.data, homepageCacheKey)
	assert.Equal(t, time.Minute, rdb.ttls[homepageCacheKey])

	second, err := svc.Homepage(context.Background())
	require.NoError(t, err)
	assert.Len(t, finder.queries, 4, "cached homepage issues no queries")
	assert.Equal(t, first.Data[feedDto.SectionTrending][0].ID, second.Data[feedDto.SectionTrending][0].ID)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
}

func TestHomepageBypassesBrokenCache(t *testing.T) {
	finder := &fakeFinder{}
	rdb := &memRedis{data: map[string]string{}, ttls: map[string]time.Duration{}, err: errors.New("redis down")}
	svc := newCachedService(finder, rdb)

	for i := 0; i < 2; i++ {
		resp, err := svc.Homepage(context.Background())
		require.NoError(t, err)
		assert.True(t, resp.OK)
		assert.Len(t, resp.Data[feedDto.SectionLatest], 2)
	}
	assert.Len(t, finder.queries, 8)
	assert.Empty(t, rdb.data)
}

func TestHomepageFailureIsNotCached(t *testing.T) {
	finder := &fakeFinder{failWhen: func(q repo.Query) bool { return q.EditorPick }}
	rdb := &memRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}

	_, err := newCachedService(finder, rdb).Homepage(context.Background())
	assert.Error(t, err)
	assert.Empty(t, rdb.data)
}
