package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

const (
	DeadLetterQueueName    = "autotag_jobs_dlq"
	DeadLetterExchangeName = "autotag_dlq"
	RetryQueueName         = "autotag_jobs_retry"
	DefaultMaxRetries      = 3

	retryHeader  = "x-retry-count"
	reasonHeader = "x-failure-reason"
)

// setupDeadLetterQueue declares the dead letter and retry queues. Messages
// expiring in the retry queue are routed back to the job queue.
func (q *Queue) setupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": JobQueueName,
	}

	_, err = q.channel.QueueDeclare(
		RetryQueueName,
		true,
		false,
		false,
		false,
		retryArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	return nil
}

// PublishToRetryQueue schedules another attempt of job after a backoff, or
// dead-letters it once retries reach the configured maximum.
func (q *Queue) PublishToRetryQueue(ctx context.Context, job *models.Job, retries int, reason string) error {
	if retries >= q.maxRetries {
		return q.PublishToDeadLetterQueue(ctx, job, "max retries exceeded: "+reason)
	}

	delay := calculateBackoffDelay(retries)
	headers := amqp.Table{
		retryHeader:  int32(retries + 1),
		reasonHeader: reason,
	}

	if err := q.publish(ctx, "", RetryQueueName, job, headers, fmt.Sprintf("%d", delay.Milliseconds())); err != nil {
		return err
	}

	q.logger.WithJobID(job.ID).WithFields(map[string]interface{}{
		"retry": retries + 1,
		"delay": delay.String(),
	}).Warn("Job queued for retry")
	return nil
}

// PublishToDeadLetterQueue publishes a failed job to the dead letter queue
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, job *models.Job, reason string) error {
	headers := amqp.Table{
		reasonHeader:  reason,
		"x-failed-at": time.Now().Format(time.RFC3339),
	}

	if err := q.publish(ctx, DeadLetterExchangeName, DeadLetterQueueName, job, headers, ""); err != nil {
		return err
	}

	q.logger.WithJobID(job.ID).WithField("reason", reason).Error("Job moved to dead letter queue")
	return nil
}

// RetryFromDLQ re-publishes a dead-lettered job with a fresh retry budget
func (q *Queue) RetryFromDLQ(ctx context.Context, job *models.Job) error {
	return q.PublishJob(ctx, job)
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// calculateBackoffDelay doubles from 30s per attempt, capped at 30 minutes
func calculateBackoffDelay(retries int) time.Duration {
	if retries < 0 {
		retries = 0
	}
	if retries > 10 {
		return 30 * time.Minute
	}

	delay := 30 * time.Second * time.Duration(1<<retries)
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}

	return delay
}

// retryCount reads the retry header, accepting any integer encoding
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	default:
		return 0
	}
}
