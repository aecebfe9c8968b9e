package pulse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"anoa.com/storyverse/internal/entity"
	pulseDto "anoa.com/storyverse/internal/modules/pulse/dto"
	pulseRepo "anoa.com/storyverse/internal/modules/pulse/repository"
	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/metrics"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxVoteAttempts bounds retries when another request moves the same vote
// between our read and our write.
const maxVoteAttempts = 3

type StoryStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Story, error)
	AdjustPulse(ctx context.Context, id primitive.ObjectID, mood entity.Mood, delta int64) (entity.PulseCounts, error)
}

type PulseService interface {
	Vote(ctx context.Context, userID, storyID primitive.ObjectID, mood entity.Mood) (*pulseDto.PulseResult, error)
	Retract(ctx context.Context, userID, storyID primitive.ObjectID) (*pulseDto.PulseResult, error)
	MoodOf(ctx context.Context, userID, storyID primitive.ObjectID) (entity.Mood, error)
}

type pulseService struct {
	votes   pulseRepo.PulseRepository
	stories StoryStore
}

func NewPulseService(votes pulseRepo.PulseRepository, stories StoryStore) PulseService {
	return &pulseService{votes: votes, stories: stories}
}

func (s *pulseService) Vote(ctx context.Context, userID, storyID primitive.ObjectID, mood entity.Mood) (*pulseDto.PulseResult, error) {
	if !mood.Valid() {
		return nil, apperror.New(http.StatusBadRequest, fmt.Sprintf("invalid mood %q", mood), apperror.ErrInvalidInput)
	}

	story, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("story: %w", err)
	}

	for attempt := 0; attempt < maxVoteAttempts; attempt++ {
		current, err := s.votes.Find(ctx, userID, storyID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			err = s.votes.Insert(ctx, &entity.PulseFeedback{User: userID, Story: storyID, Mood: mood})
			if errors.Is(err, apperror.ErrDuplicate) {
				// A concurrent first vote won; treat ours as a change.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to save vote: %w", err)
			}
			pulse, err := s.stories.AdjustPulse(ctx, storyID, mood, 1)
			if err != nil {
				return nil, s.counterFailed(err, userID, storyID)
			}
			metrics.EngagementEvents.WithLabelValues("pulse", "vote", "applied").Inc()
			return &pulseDto.PulseResult{Mood: mood, Pulse: pulse, Changed: true}, nil

		case err != nil:
			return nil, fmt.Errorf("failed to read vote: %w", err)

		case current.Mood == mood:
			metrics.EngagementEvents.WithLabelValues("pulse", "vote", "noop").Inc()
			return &pulseDto.PulseResult{Mood: mood, Pulse: story.Pulse.Full()}, nil
		}

		swapped, err := s.votes.SwapMood(ctx, userID, storyID, current.Mood, mood)
		if err != nil {
			return nil, fmt.Errorf("failed to change vote: %w", err)
		}
		if !swapped {
			continue
		}
		if current.Mood.Valid() {
			if _, err := s.stories.AdjustPulse(ctx, storyID, current.Mood, -1); err != nil {
				return nil, s.counterFailed(err, userID, storyID)
			}
		}
		pulse, err := s.stories.AdjustPulse(ctx, storyID, mood, 1)
		if err != nil {
			return nil, s.counterFailed(err, userID, storyID)
		}
		metrics.EngagementEvents.WithLabelValues("pulse", "change", "applied").Inc()
		return &pulseDto.PulseResult{Mood: mood, Pulse: pulse, Changed: true}, nil
	}

	return nil, fmt.Errorf("vote kept changing underneath us: %w", apperror.ErrConflict)
}

func (s *pulseService) Retract(ctx context.Context, userID, storyID primitive.ObjectID) (*pulseDto.PulseResult, error) {
	story, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("story: %w", err)
	}

	vote, err := s.votes.Delete(ctx, userID, storyID)
	if errors.Is(err, apperror.ErrNotFound) {
		metrics.EngagementEvents.WithLabelValues("pulse", "retract", "noop").Inc()
		return &pulseDto.PulseResult{Pulse: story.Pulse.Full()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to remove vote: %w", err)
	}

	pulse := story.Pulse.Full()
	if vote.Mood.Valid() {
		pulse, err = s.stories.AdjustPulse(ctx, storyID, vote.Mood, -1)
		if err != nil {
			return nil, s.counterFailed(err, userID, storyID)
		}
	}
	metrics.EngagementEvents.WithLabelValues("pulse", "retract", "applied").Inc()
	return &pulseDto.PulseResult{Pulse: pulse, Changed: true}, nil
}

// MoodOf returns the user's current vote, or "" when there is none.
func (s *pulseService) MoodOf(ctx context.Context, userID, storyID primitive.ObjectID) (entity.Mood, error) {
	vote, err := s.votes.Find(ctx, userID, storyID)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return vote.Mood, nil
}

func (s *pulseService) counterFailed(err error, userID, storyID primitive.ObjectID) error {
	logger.Log.WithError(err).WithFields(logrus.Fields{
		"user_id":  userID.Hex(),
		"story_id": storyID.Hex(),
	}).Error("vote saved but pulse counter update failed")
	return fmt.Errorf("failed to update pulse: %w", err)
}
