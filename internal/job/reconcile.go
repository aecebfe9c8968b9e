package job

import (
	"context"
	"fmt"

	"anoa.com/storyverse/internal/entity"
	commentRepo "anoa.com/storyverse/internal/modules/comment/repository"
	storyRepo "anoa.com/storyverse/internal/modules/story/repository"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/metrics"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type StoryCounterStore interface {
	ListCounters(ctx context.Context) ([]storyRepo.StoryCounters, error)
	SetCounters(ctx context.Context, observed storyRepo.StoryCounters, likes, comments int64, pulse entity.PulseCounts) (bool, error)
}

type CommentCounterStore interface {
	CountByStory(ctx context.Context) (map[primitive.ObjectID]int64, error)
	ListCounters(ctx context.Context) ([]commentRepo.CommentCounter, error)
	SetLikes(ctx context.Context, observed commentRepo.CommentCounter, likes int64) (bool, error)
}

type LikeCounter interface {
	CountByTarget(ctx context.Context) (map[primitive.ObjectID]int64, error)
}

type PulseCounter interface {
	CountByStory(ctx context.Context) (map[primitive.ObjectID]entity.PulseCounts, error)
}

// CounterReconciler recomputes the denormalized story and comment counters
// from the fact rows and rewrites the ones that drifted. Rows are read before
// the facts are counted and only written while they still hold the values
// read, so a like landing mid-run leaves its row for the next run.
type CounterReconciler struct {
	schedule     string
	stories      StoryCounterStore
	comments     CommentCounterStore
	storyLikes   LikeCounter
	commentLikes LikeCounter
	pulse        PulseCounter
}

func NewCounterReconciler(schedule string, stories StoryCounterStore, comments CommentCounterStore, storyLikes, commentLikes LikeCounter, pulse PulseCounter) *CounterReconciler {
	return &CounterReconciler{
		schedule:     schedule,
		stories:      stories,
		comments:     comments,
		storyLikes:   storyLikes,
		commentLikes: commentLikes,
		pulse:        pulse,
	}
}

func (r *CounterReconciler) Name() string     { return "counter-reconcile" }
func (r *CounterReconciler) Schedule() string { return r.schedule }

type storyFacts struct {
	likes    map[primitive.ObjectID]int64
	comments map[primitive.ObjectID]int64
	pulse    map[primitive.ObjectID]entity.PulseCounts
}

func (r *CounterReconciler) Execute(ctx context.Context) error {
	rows, err := r.stories.ListCounters(ctx)
	if err != nil {
		return fmt.Errorf("list story counters: %w", err)
	}

	var facts storyFacts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		facts.likes, err = r.storyLikes.CountByTarget(gctx)
		return err
	})
	g.Go(func() (err error) {
		facts.comments, err = r.comments.CountByStory(gctx)
		return err
	})
	g.Go(func() (err error) {
		facts.pulse, err = r.pulse.CountByStory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("count story facts: %w", err)
	}

	stories, err := r.reconcileStories(ctx, rows, facts)
	if err != nil {
		return err
	}
	comments, err := r.reconcileComments(ctx)
	if err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"stories_repaired":  stories,
		"comments_repaired": comments,
	}).Info("counters reconciled")
	return nil
}

func (r *CounterReconciler) reconcileStories(ctx context.Context, rows []storyRepo.StoryCounters, facts storyFacts) (int, error) {
	repaired := 0
	for _, row := range rows {
		likes := facts.likes[row.ID]
		comments := facts.comments[row.ID]
		pulse := facts.pulse[row.ID].Full()

		if row.LikesCount == likes && row.CommentsCount == comments && samePulse(row.Pulse, pulse) {
			continue
		}
		written, err := r.stories.SetCounters(ctx, row, likes, comments, pulse)
		if err != nil {
			return repaired, fmt.Errorf("repair story %s: %w", row.ID.Hex(), err)
		}
		if !written {
			logger.Log.WithField("story_id", row.ID.Hex()).Debug("story counters changed during reconcile, skipped")
			continue
		}
		logger.Log.WithFields(logrus.Fields{
			"story_id": row.ID.Hex(),
			"likes":    fmt.Sprintf("%d->%d", row.LikesCount, likes),
			"comments": fmt.Sprintf("%d->%d", row.CommentsCount, comments),
		}).Debug("story counters repaired")
		metrics.CountersRepaired.WithLabelValues("stories").Inc()
		repaired++
	}
	return repaired, nil
}

func (r *CounterReconciler) reconcileComments(ctx context.Context) (int, error) {
	rows, err := r.comments.ListCounters(ctx)
	if err != nil {
		return 0, fmt.Errorf("list comment counters: %w", err)
	}
	likes, err := r.commentLikes.CountByTarget(ctx)
	if err != nil {
		return 0, fmt.Errorf("count comment likes: %w", err)
	}

	repaired := 0
	for _, row := range rows {
		want := likes[row.ID]
		if row.LikesCount == want {
			continue
		}
		written, err := r.comments.SetLikes(ctx, row, want)
		if err != nil {
			return repaired, fmt.Errorf("repair comment %s: %w", row.ID.Hex(), err)
		}
		if !written {
			continue
		}
		metrics.CountersRepaired.WithLabelValues("comments").Inc()
		repaired++
	}
	return repaired, nil
}

func samePulse(stored, want entity.PulseCounts) bool {
	full := stored.Full()
	if len(stored) != len(full) {
		return false
	}
	for _, m := range entity.Moods {
		if full[m] != want[m] {
			return false
		}
	}
	return true
}
