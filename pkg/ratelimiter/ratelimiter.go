package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/storyverse/pkg/apperror"
	"github.com/redis/go-redis/v9"
)

const (
	ScopeGlobal = "global"
	ScopeStory  = "story"
)

// RateLimitError carries how long the caller has to wait.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

func key(userID, scope string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, userID)
}

// CheckAndSetRateLimit claims the slot for userID in scope. It returns false
// while an earlier claim is still alive. A nil client disables limiting.
func CheckAndSetRateLimit(ctx context.Context, rdb redis.Cmdable, userID, scope string, limit time.Duration) (bool, error) {
	if rdb == nil || limit <= 0 {
		return true, nil
	}
	ok, err := rdb.SetNX(ctx, key(userID, scope), 1, limit).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func GetRateLimitTTL(ctx context.Context, rdb redis.Cmdable, userID, scope string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(userID, scope)).Result()
}

// ClearRateLimit releases a claim, used to roll back when the guarded action fails.
func ClearRateLimit(ctx context.Context, rdb redis.Cmdable, userID, scope string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, key(userID, scope)).Err()
}

// Guard claims the slot and returns a rollback func, or a *RateLimitError.
func Guard(ctx context.Context, rdb redis.Cmdable, userID, scope string, limit time.Duration) (func(), error) {
	allowed, err := CheckAndSetRateLimit(ctx, rdb, userID, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := GetRateLimitTTL(ctx, rdb, userID, scope)
		if ttl <= 0 {
			ttl = limit
		}
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("you are doing that too fast. Please wait %.0f seconds", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}
	return func() { _ = ClearRateLimit(context.WithoutCancel(ctx), rdb, userID, scope) }, nil
}
