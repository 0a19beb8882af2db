package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
)

type fakeQueue struct {
	depth, dlq int
	err        error
}

func (q *fakeQueue) GetQueueDepth() (int, error) { return q.depth, q.err }
func (q *fakeQueue) GetDLQDepth() (int, error)   { return q.dlq, q.err }

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (c *fakeCounter) CountJobsByStatus(ctx context.Context) (map[string]int64, error) {
	return c.counts, c.err
}

func TestCollect(t *testing.T) {
	queue := &fakeQueue{depth: 7, dlq: 1}
	counter := &fakeCounter{counts: map[string]int64{
		"queued":     3,
		"processing": 2,
		"completed":  10,
	}}
	m := NewMonitor(queue, counter, nil)

	require.NoError(t, m.Collect(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, 7, snap.QueueDepth)
	assert.Equal(t, 1, snap.DLQDepth)
	assert.Equal(t, int64(5), snap.ActiveJobs)
	assert.Equal(t, int64(10), snap.JobsByState["completed"])
	assert.False(t, snap.LastUpdated.IsZero())

	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.JobsQueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobsDLQDepth))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.JobsByStatus.WithLabelValues("processing")))
}

func TestCollectKeepsLastGoodValues(t *testing.T) {
	queue := &fakeQueue{depth: 4}
	counter := &fakeCounter{counts: map[string]int64{"queued": 4}}
	m := NewMonitor(queue, counter, nil)
	require.NoError(t, m.Collect(context.Background()))

	queue.err = errors.New("channel closed")
	counter.err = errors.New("pool closed")
	err := m.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue depth")
	assert.Contains(t, err.Error(), "count jobs")

	snap := m.Snapshot()
	assert.Equal(t, 4, snap.QueueDepth)
	assert.Equal(t, int64(4), snap.JobsByState["queued"])
}

func TestCollectWithoutJobCounter(t *testing.T) {
	m := NewMonitor(&fakeQueue{depth: 2}, nil, nil)
	require.NoError(t, m.Collect(context.Background()))
	assert.Nil(t, m.Snapshot().JobsByState)
}

func TestSnapshotIsCopy(t *testing.T) {
	m := NewMonitor(&fakeQueue{}, &fakeCounter{counts: map[string]int64{"queued": 1}}, nil)
	require.NoError(t, m.Collect(context.Background()))

	snap := m.Snapshot()
	snap.JobsByState["queued"] = 99
	assert.Equal(t, int64(1), m.Snapshot().JobsByState["queued"])
}

func TestRunStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{depth: 3}
	m := NewMonitor(queue, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Snapshot().QueueDepth == 3 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
