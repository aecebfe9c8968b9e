package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/storyverse/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const pendingKey = "pending:story_views"

func viewsKey(storyID string) string { return "story:views:" + storyID }

func viewerKey(storyID, viewer string) string {
	return fmt.Sprintf("story:viewer:%s:%s", storyID, viewer)
}

type redisCounters struct {
	rdb redis.Cmdable
}

// NewRedisCounters returns nil when rdb is nil so the view service turns
// into a no-op.
func NewRedisCounters(rdb redis.Cmdable) CounterStore {
	if rdb == nil {
		return nil
	}
	return &redisCounters{rdb: rdb}
}

func (r *redisCounters) MarkViewed(ctx context.Context, storyID, viewer string, window time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, viewerKey(storyID, viewer), 1, window).Result()
}

func (r *redisCounters) Incr(ctx context.Context, storyID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, viewsKey(storyID))
	pipe.SAdd(ctx, pendingKey, storyID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisCounters) Drain(ctx context.Context, batch int64) (map[string]int64, error) {
	ids, err := r.rdb.SPopN(ctx, pendingKey, batch).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make(map[string]int64, len(ids))
	for i, id := range ids {
		n, err := r.rdb.GetDel(ctx, viewsKey(id)).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			r.requeue(ctx, ids[i:])
			return out, err
		}
		out[id] = n
	}
	return out, nil
}

// requeue puts ids whose counts were not taken back on the pending set.
func (r *redisCounters) requeue(ctx context.Context, ids []string) {
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := r.rdb.SAdd(ctx, pendingKey, members...).Err(); err != nil {
		logger.Log.WithError(err).WithField("stories", len(ids)).Error("failed to requeue pending story views")
	}
}

func (r *redisCounters) Restore(ctx context.Context, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	pipe := r.rdb.TxPipeline()
	for id, n := range counts {
		pipe.IncrBy(ctx, viewsKey(id), n)
		pipe.SAdd(ctx, pendingKey, id)
	}
	_, err := pipe.Exec(ctx)
	return err
}
