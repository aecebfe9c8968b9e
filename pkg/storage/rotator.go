package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"anoa.com/storyverse/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const keyFailureThreshold = 3

// KeyRotator spreads provider calls over several API keys. A key that fails
// keyFailureThreshold times in a row cools down for the configured window.
// State lives in this process only and resets on restart.
type KeyRotator struct {
	keys     []string
	breakers []*gobreaker.CircuitBreaker[string]

	mu      sync.Mutex
	current int
}

func NewKeyRotator(keys []string, cooldown time.Duration) *KeyRotator {
	r := &KeyRotator{keys: keys}
	for i := range keys {
		r.breakers = append(r.breakers, gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        fmt.Sprintf("image-key-%d", i),
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= keyFailureThreshold
			},
			IsExcluded: func(err error) bool {
				return errors.Is(err, ErrInvalidImage) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Log.WithFields(logrus.Fields{
					"key":  name,
					"from": from.String(),
					"to":   to.String(),
				}).Warn("image provider key state changed")
			},
		}))
	}
	return r
}

// Do runs call with each usable key, starting from the last key that worked,
// until one succeeds. When every key is cooling down the first key is used anyway.
func (r *KeyRotator) Do(call func(key string) (string, error)) (string, error) {
	if len(r.keys) == 0 {
		return "", errors.New("no image provider keys configured")
	}

	r.mu.Lock()
	start := r.current
	r.mu.Unlock()

	var lastErr error
	attempted := false
	for n := 0; n < len(r.keys); n++ {
		i := (start + n) % len(r.keys)
		key := r.keys[i]

		out, err := r.breakers[i].Execute(func() (string, error) { return call(key) })
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			continue
		}
		attempted = true
		if err == nil {
			r.mu.Lock()
			r.current = i
			r.mu.Unlock()
			return out, nil
		}
		if errors.Is(err, ErrInvalidImage) {
			return "", err
		}
		lastErr = err
	}

	if !attempted {
		logger.Log.Warn("all image provider keys cooling down, falling back to first key")
		return call(r.keys[0])
	}
	return "", lastErr
}

// Cooling reports how many keys are currently open.
func (r *KeyRotator) Cooling() int {
	n := 0
	for _, b := range r.breakers {
		if b.State() == gobreaker.StateOpen {
			n++
		}
	}
	return n
}
