package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Delivery headers
const (
	HeaderEvent     = "X-Autotag-Event"
	HeaderDelivery  = "X-Autotag-Delivery"
	HeaderSignature = "X-Autotag-Signature"
)

// maxResponseBody caps how much of a failed response ends up in errors
const maxResponseBody = 512

// Notifier posts job events to a single configured endpoint
type Notifier struct {
	client      *http.Client
	url         string
	secret      string
	retryDelays []time.Duration
	logger      *logging.Logger
}

// NewNotifier creates a notifier for cfg.URL
func NewNotifier(cfg config.WebhookConfig, logger *logging.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	// Retry delays: 1s, 5s, 15s, 15s...
	delays := make([]time.Duration, 0, attempts-1)
	for i := 1; i < attempts; i++ {
		switch i {
		case 1:
			delays = append(delays, time.Second)
		case 2:
			delays = append(delays, 5*time.Second)
		default:
			delays = append(delays, 15*time.Second)
		}
	}

	return &Notifier{
		client:      &http.Client{Timeout: timeout},
		url:         cfg.URL,
		secret:      cfg.Secret,
		retryDelays: delays,
		logger:      logger,
	}
}

// Notify delivers event for job, retrying failed attempts until the
// configured attempts are exhausted or ctx is done.
func (n *Notifier) Notify(ctx context.Context, event string, job *models.Job) error {
	payload := models.WebhookEvent{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: time.Now().UTC(),
		Job:       job,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	logger := n.logger.WithJobID(job.ID).WithField("event", event)

	err = n.deliver(ctx, payload.ID, event, body)
	for attempt, delay := range n.retryDelays {
		if err == nil {
			break
		}
		logger.WithError(err).WithField("attempt", attempt+1).Warn("Webhook delivery failed")

		select {
		case <-ctx.Done():
			return fmt.Errorf("webhook delivery cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		err = n.deliver(ctx, payload.ID, event, body)
	}
	if err != nil {
		return err
	}

	logger.Debug("Webhook delivered")
	return nil
}

// deliver makes a single delivery attempt
func (n *Notifier) deliver(ctx context.Context, deliveryID, event string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Autotag-Webhook/1.0")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, deliveryID)
	if n.secret != "" {
		req.Header.Set(HeaderSignature, Sign(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// Sign returns the HMAC-SHA256 signature header value for payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches payload under secret
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
