package models

import "time"

// WebhookEvent is the payload posted to the job webhook
type WebhookEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Job       *Job      `json:"job"`
}

// Webhook event types
const (
	WebhookEventJobStarted   = "job.started"
	WebhookEventJobCompleted = "job.completed"
	WebhookEventJobFailed    = "job.failed"
)
