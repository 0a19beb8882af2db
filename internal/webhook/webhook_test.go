package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

func newTestNotifier(url, secret string, attempts int) *Notifier {
	n := NewNotifier(config.WebhookConfig{URL: url, Secret: secret, MaxAttempts: attempts}, logging.Nop())
	for i := range n.retryDelays {
		n.retryDelays[i] = time.Millisecond
	}
	return n
}

func TestNotify(t *testing.T) {
	var (
		received  models.WebhookEvent
		signature string
		event     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		signature = r.Header.Get(HeaderSignature)
		event = r.Header.Get(HeaderEvent)
		assert.True(t, Verify(body, "s3cret", signature))
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := newTestNotifier(server.URL, "s3cret", 3)
	job := &models.Job{ID: "job-1", Status: models.JobStatusCompleted, ResultCount: 4}

	require.NoError(t, n.Notify(context.Background(), models.WebhookEventJobCompleted, job))

	assert.Equal(t, models.WebhookEventJobCompleted, event)
	assert.Equal(t, models.WebhookEventJobCompleted, received.Event)
	assert.NotEmpty(t, received.ID)
	require.NotNil(t, received.Job)
	assert.Equal(t, "job-1", received.Job.ID)
	assert.Equal(t, 4, received.Job.ResultCount)
}

func TestNotifyUnsigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(HeaderSignature))
	}))
	defer server.Close()

	n := newTestNotifier(server.URL, "", 1)
	assert.NoError(t, n.Notify(context.Background(), models.WebhookEventJobFailed, &models.Job{ID: "job-1"}))
}

func TestNotifyRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestNotifier(server.URL, "", 3)
	require.NoError(t, n.Notify(context.Background(), models.WebhookEventJobCompleted, &models.Job{ID: "job-1"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifyGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	n := newTestNotifier(server.URL, "", 2)
	err := n.Notify(context.Background(), models.WebhookEventJobCompleted, &models.Job{ID: "job-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotifyCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := newTestNotifier(server.URL, "", 3)
	n.retryDelays = []time.Duration{time.Hour, time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.Notify(ctx, models.WebhookEventJobCompleted, &models.Job{ID: "job-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewNotifierRetryDelays(t *testing.T) {
	tests := []struct {
		attempts int
		want     []time.Duration
	}{
		{attempts: 0, want: []time.Duration{}},
		{attempts: 1, want: []time.Duration{}},
		{attempts: 4, want: []time.Duration{time.Second, 5 * time.Second, 15 * time.Second}},
	}

	for _, tt := range tests {
		n := NewNotifier(config.WebhookConfig{MaxAttempts: tt.attempts}, logging.Nop())
		assert.Equal(t, tt.want, n.retryDelays, "attempts=%d", tt.attempts)
		assert.Equal(t, 10*time.Second, n.client.Timeout)
	}
}

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"event":"job.completed"}`)
	sig := Sign(payload, "key")

	assert.Contains(t, sig, "sha256=")
	assert.True(t, Verify(payload, "key", sig))
	assert.False(t, Verify(payload, "other", sig))
	assert.False(t, Verify([]byte(`{}`), "key", sig))
}
