package view

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memCounters struct {
	seen    map[string]bool
	counts  map[string]int64
	pending []string
}

func newMemCounters() *memCounters {
	return &memCounters{seen: map[string]bool{}, counts: map[string]int64{}}
}

func (m *memCounters) MarkViewed(ctx context.Context, storyID, viewer string, window time.Duration) (bool, error) {
	key := storyID + "|" + viewer
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memCounters) Incr(ctx context.Context, storyID string) error {
	if m.counts[storyID] == 0 {
		m.pending = append(m.pending, storyID)
	}
	m.counts[storyID]++
	return nil
}

func (m *memCounters) Drain(ctx context.Context, batch int64) (map[string]int64, error) {
	out := map[string]int64{}
	for len(m.pending) > 0 && int64(len(out)) < batch {
		id := m.pending[0]
		m.pending = m.pending[1:]
		out[id] = m.counts[id]
		delete(m.counts, id)
	}
	return out, nil
}

func (m *memCounters) Restore(ctx context.Context, counts map[string]int64) error {
	for id, n := range counts {
		if m.counts[id] == 0 {
			m.pending = append(m.pending, id)
		}
		m.counts[id] += n
	}
	return nil
}

type memReads struct {
	reads map[primitive.ObjectID]int64
	calls int
	err   error
}

func (m *memReads) AddReads(ctx context.Context, reads map[primitive.ObjectID]int64) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	for id, n := range reads {
		m.reads[id] += n
	}
	return nil
}

func TestRecordViewCountsEachViewerOnce(t *testing.T) {
	counters := newMemCounters()
	reads := &memReads{reads: map[primitive.ObjectID]int64{}}
	svc := NewViewService(counters, reads)
	ctx := context.Background()
	story := primitive.NewObjectID()

	require.NoError(t, svc.RecordView(ctx, story, "alice"))
	require.NoError(t, svc.RecordView(ctx, story, "alice"))
	require.NoError(t, svc.RecordView(ctx, story, "10.0.0.7"))
	require.NoError(t, svc.RecordView(ctx, story, "  "))

	n, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(2), reads.reads[story])

	n, err = svc.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushDrainsInBatches(t *testing.T) {
	counters := newMemCounters()
	reads := &memReads{reads: map[primitive.ObjectID]int64{}}
	svc := NewViewService(counters, reads)
	ctx := context.Background()

	for i := 0; i < flushBatch+3; i++ {
		require.NoError(t, svc.RecordView(ctx, primitive.NewObjectID(), fmt.Sprintf("v%d", i)))
	}

	n, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, flushBatch+3, n)
	assert.Equal(t, 2, reads.calls)
	assert.Empty(t, counters.pending)
}

func TestFlushRestoresOnWriteFailure(t *testing.T) {
	counters := newMemCounters()
	reads := &memReads{reads: map[primitive.ObjectID]int64{}, err: errors.New("mongo down")}
	svc := NewViewService(counters, reads)
	ctx := context.Background()
	story := primitive.NewObjectID()

	require.NoError(t, svc.RecordView(ctx, story, "alice"))
	_, err := svc.Flush(ctx)
	assert.Error(t, err)
	assert.Equal(t, int64(1), counters.counts[story.Hex()])

	reads.err = nil
	n, err := svc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), reads.reads[story])
}

func TestWithoutRedisViewsAreDropped(t *testing.T) {
	reads := &memReads{reads: map[primitive.ObjectID]int64{}}
	svc := NewViewService(NewRedisCounters(nil), reads)

	assert.NoError(t, svc.RecordView(context.Background(), primitive.NewObjectID(), "alice"))
	n, err := svc.Flush(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, reads.calls)
}
