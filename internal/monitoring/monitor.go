// Package monitoring periodically samples queue and job store state into
// gauges and a snapshot for status endpoints.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Snapshot holds the last sampled system state
type Snapshot struct {
	QueueDepth  int              `json:"queue_depth"`
	DLQDepth    int              `json:"dlq_depth"`
	JobsByState map[string]int64 `json:"jobs_by_status,omitempty"`
	ActiveJobs  int64            `json:"active_jobs"`
	LastUpdated time.Time        `json:"last_updated"`
}

// QueueProvider reports queue depths
type QueueProvider interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// JobCounter reports stored jobs per status
type JobCounter interface {
	CountJobsByStatus(ctx context.Context) (map[string]int64, error)
}

// Monitor samples queue and job state
type Monitor struct {
	queue  QueueProvider
	jobs   JobCounter
	logger *logging.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewMonitor creates a monitor. jobs may be nil.
func NewMonitor(queue QueueProvider, jobs JobCounter, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Monitor{queue: queue, jobs: jobs, logger: logger}
}

// Run collects every interval until ctx is done
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.Collect(ctx); err != nil && ctx.Err() == nil {
			m.logger.WithError(err).Warn("Failed to collect system metrics")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect samples once. Parts that fail keep their previous values.
func (m *Monitor) Collect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	queueDepth, err := m.queue.GetQueueDepth()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to get queue depth: %w", err))
	} else {
		m.snapshot.QueueDepth = queueDepth
	}

	dlqDepth, err := m.queue.GetDLQDepth()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to get DLQ depth: %w", err))
	} else {
		m.snapshot.DLQDepth = dlqDepth
	}
	metrics.UpdateQueueMetrics(m.snapshot.QueueDepth, m.snapshot.DLQDepth)

	if m.jobs != nil {
		counts, err := m.jobs.CountJobsByStatus(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to count jobs: %w", err))
		} else {
			m.snapshot.JobsByState = counts
			m.snapshot.ActiveJobs = counts[models.JobStatusQueued] + counts[models.JobStatusProcessing]
			metrics.UpdateJobStatusCounts(counts)
		}
	}

	m.snapshot.LastUpdated = time.Now()
	return errors.Join(errs...)
}

// Snapshot returns a copy of the last sampled state
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.JobsByState != nil {
		s.JobsByState = make(map[string]int64, len(m.snapshot.JobsByState))
		for k, v := range m.snapshot.JobsByState {
			s.JobsByState[k] = v
		}
	}
	return s
}
