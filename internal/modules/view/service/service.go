package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/storyverse/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// A viewer counts once per story within this window.
	viewWindow = time.Hour
	flushBatch = 500
)

type ViewService interface {
	// RecordView counts a read of storyID. viewer is a user id or, for
	// anonymous readers, the client address.
	RecordView(ctx context.Context, storyID primitive.ObjectID, viewer string) error
	// Flush moves buffered counts onto the stories and returns how many
	// stories were updated.
	Flush(ctx context.Context) (int, error)
}

// CounterStore buffers view counts between flushes.
type CounterStore interface {
	MarkViewed(ctx context.Context, storyID, viewer string, window time.Duration) (bool, error)
	Incr(ctx context.Context, storyID string) error
	// Drain removes and returns up to batch pending counts.
	Drain(ctx context.Context, batch int64) (map[string]int64, error)
	// Restore puts counts back after a failed flush.
	Restore(ctx context.Context, counts map[string]int64) error
}

type ReadStore interface {
	AddReads(ctx context.Context, reads map[primitive.ObjectID]int64) error
}

type viewService struct {
	counters CounterStore
	stories  ReadStore
}

// NewViewService returns a service that drops views when counters is nil.
func NewViewService(counters CounterStore, stories ReadStore) ViewService {
	return &viewService{counters: counters, stories: stories}
}

func (s *viewService) RecordView(ctx context.Context, storyID primitive.ObjectID, viewer string) error {
	if s.counters == nil {
		return nil
	}
	viewer = strings.TrimSpace(viewer)
	if viewer == "" {
		return nil
	}

	id := storyID.Hex()
	first, err := s.counters.MarkViewed(ctx, id, viewer, viewWindow)
	if err != nil {
		return fmt.Errorf("failed to check viewer: %w", err)
	}
	if !first {
		return nil
	}
	if err := s.counters.Incr(ctx, id); err != nil {
		return fmt.Errorf("failed to increment view: %w", err)
	}
	return nil
}

func (s *viewService) Flush(ctx context.Context) (int, error) {
	if s.counters == nil {
		return 0, nil
	}

	total := 0
	for {
		counts, err := s.counters.Drain(ctx, flushBatch)
		if err != nil {
			s.restore(ctx, counts)
			return total, fmt.Errorf("failed to drain view counters: %w", err)
		}
		if len(counts) == 0 {
			break
		}

		reads := make(map[primitive.ObjectID]int64, len(counts))
		for raw, n := range counts {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil || n <= 0 {
				logger.Log.WithField("story_id", raw).Warn("dropping malformed view counter")
				continue
			}
			reads[id] += n
		}

		if err := s.stories.AddReads(ctx, reads); err != nil {
			s.restore(ctx, counts)
			return total, fmt.Errorf("failed to write reads: %w", err)
		}
		total += len(reads)

		if len(counts) < flushBatch {
			break
		}
	}

	if total > 0 {
		logger.Log.WithFields(logrus.Fields{"stories": total}).Info("story views synced")
	}
	return total, nil
}

func (s *viewService) restore(ctx context.Context, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	if err := s.counters.Restore(context.WithoutCancel(ctx), counts); err != nil {
		logger.Log.WithError(err).WithField("stories", len(counts)).Error("failed to restore view counters")
	}
}
