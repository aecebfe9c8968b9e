package pulse

import (
	"context"
	"testing"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type voteKey struct{ user, story primitive.ObjectID }

type memVotes struct {
	votes map[voteKey]*entity.PulseFeedback
	// raceOnInsert simulates a concurrent first vote landing just before ours.
	raceOnInsert *entity.PulseFeedback
}

func newMemVotes() *memVotes { return &memVotes{votes: map[voteKey]*entity.PulseFeedback{}} }

func (m *memVotes) Find(ctx context.Context, userID, storyID primitive.ObjectID) (*entity.PulseFeedback, error) {
	v, ok := m.votes[voteKey{userID, storyID}]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVotes) Insert(ctx context.Context, vote *entity.PulseFeedback) error {
	k := voteKey{vote.User, vote.Story}
	if m.raceOnInsert != nil {
		m.votes[k] = m.raceOnInsert
		m.raceOnInsert = nil
	}
	if _, ok := m.votes[k]; ok {
		return apperror.ErrDuplicate
	}
	cp := *vote
	m.votes[k] = &cp
	return nil
}

func (m *memVotes) SwapMood(ctx context.Context, userID, storyID primitive.ObjectID, from, to entity.Mood) (bool, error) {
	v, ok := m.votes[voteKey{userID, storyID}]
	if !ok || v.Mood != from {
		return false, nil
	}
	v.Mood = to
	return true, nil
}

func (m *memVotes) Delete(ctx context.Context, userID, storyID primitive.ObjectID) (*entity.PulseFeedback, error) {
	k := voteKey{userID, storyID}
	v, ok := m.votes[k]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	delete(m.votes, k)
	return v, nil
}

func (m *memVotes) CountByStory(ctx context.Context) (map[primitive.ObjectID]entity.PulseCounts, error) {
	return nil, nil
}

func (m *memVotes) DeleteByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	return 0, nil
}

type memStory struct {
	story *entity.Story
}

func (m *memStory) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Story, error) {
	if m.story.ID != id {
		return nil, apperror.ErrNotFound
	}
	cp := *m.story
	cp.Pulse = m.story.Pulse.Full()
	return &cp, nil
}

func (m *memStory) AdjustPulse(ctx context.Context, id primitive.ObjectID, mood entity.Mood, delta int64) (entity.PulseCounts, error) {
	if m.story.Pulse[mood]+delta >= 0 {
		m.story.Pulse[mood] += delta
	}
	return m.story.Pulse.Full(), nil
}

func newPulseFixture() (PulseService, *memVotes, *memStory) {
	votes := newMemVotes()
	story := &memStory{story: &entity.Story{ID: primitive.NewObjectID(), Pulse: entity.PulseCounts{}.Full()}}
	return NewPulseService(votes, story), votes, story
}

func TestVoteChangeKeepsOneRow(t *testing.T) {
	svc, votes, story := newPulseFixture()
	ctx := context.Background()
	user := primitive.NewObjectID()
	id := story.story.ID

	res, err := svc.Vote(ctx, user, id, entity.MoodSoft)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = svc.Vote(ctx, user, id, entity.MoodDark)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Pulse[entity.MoodSoft])
	assert.Equal(t, int64(1), res.Pulse[entity.MoodDark])

	res, err = svc.Vote(ctx, user, id, entity.MoodSoft)
	require.NoError(t, err)
	assert.Equal(t, entity.MoodSoft, res.Mood)

	assert.Len(t, votes.votes, 1)
	assert.Equal(t, int64(1), story.story.Pulse[entity.MoodSoft])
	assert.Equal(t, int64(0), story.story.Pulse[entity.MoodDark])
}

func TestVoteSameMoodIsNoop(t *testing.T) {
	svc, _, story := newPulseFixture()
	ctx := context.Background()
	user := primitive.NewObjectID()

	_, err := svc.Vote(ctx, user, story.story.ID, entity.MoodWarm)
	require.NoError(t, err)
	res, err := svc.Vote(ctx, user, story.story.ID, entity.MoodWarm)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Equal(t, int64(1), res.Pulse[entity.MoodWarm])
	assert.Equal(t, int64(1), story.story.Pulse[entity.MoodWarm])
}

func TestVoteConcurrentFirstVoteBecomesChange(t *testing.T) {
	svc, votes, story := newPulseFixture()
	user := primitive.NewObjectID()
	id := story.story.ID

	votes.raceOnInsert = &entity.PulseFeedback{User: user, Story: id, Mood: entity.MoodTense}
	story.story.Pulse[entity.MoodTense] = 1

	res, err := svc.Vote(context.Background(), user, id, entity.MoodStrange)
	require.NoError(t, err)
	assert.Equal(t, entity.MoodStrange, res.Mood)
	assert.Equal(t, int64(0), story.story.Pulse[entity.MoodTense])
	assert.Equal(t, int64(1), story.story.Pulse[entity.MoodStrange])
	assert.Len(t, votes.votes, 1)
}

func TestVoteRejectsUnknownMood(t *testing.T) {
	svc, votes, story := newPulseFixture()
	_, err := svc.Vote(context.Background(), primitive.NewObjectID(), story.story.ID, entity.Mood("joyful"))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, 400, apperror.MapErrorToStatus(err))
	assert.Empty(t, votes.votes)
}

func TestVoteMissingStory(t *testing.T) {
	svc, _, _ := newPulseFixture()
	_, err := svc.Vote(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), entity.MoodSoft)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRetract(t *testing.T) {
	svc, votes, story := newPulseFixture()
	ctx := context.Background()
	user := primitive.NewObjectID()
	id := story.story.ID

	res, err := svc.Retract(ctx, user, id)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = svc.Vote(ctx, user, id, entity.MoodDark)
	require.NoError(t, err)
	mood, err := svc.MoodOf(ctx, user, id)
	require.NoError(t, err)
	assert.Equal(t, entity.MoodDark, mood)

	res, err = svc.Retract(ctx, user, id)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Mood)
	assert.Equal(t, int64(0), res.Pulse[entity.MoodDark])
	assert.Empty(t, votes.votes)

	mood, err = svc.MoodOf(ctx, user, id)
	require.NoError(t, err)
	assert.Empty(t, mood)
}
