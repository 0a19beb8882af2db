package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

const (
	JobQueueName = "autotag_jobs"
	ExchangeName = "autotag"
)

// Handler processes one job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *models.Job) error

// Queue provides message queue operations
type Queue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	maxRetries int
	logger     *logging.Logger
}

// URL renders the AMQP connection URL for cfg
func URL(cfg config.QueueConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)
}

// New creates a new queue client and declares the job, retry and dead
// letter topology.
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if logger == nil {
		logger = logging.Nop()
	}
	q := &Queue{
		conn:       conn,
		channel:    channel,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
	if q.maxRetries <= 0 {
		q.maxRetries = DefaultMaxRetries
	}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	if err := q.setupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		JobQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		JobQueueName,
		JobQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishJob publishes a job to the queue
func (q *Queue) PublishJob(ctx context.Context, job *models.Job) error {
	return q.publish(ctx, ExchangeName, JobQueueName, job, amqp.Table{retryHeader: int32(0)}, "")
}

func (q *Queue) publish(ctx context.Context, exchange, key string, job *models.Job, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    job.ID,
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
			Expiration:   expiration,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job %s to %s: %w", job.ID, key, err)
	}

	return nil
}

// ConsumeJobs starts consuming jobs from the queue. Failed jobs are moved to
// the retry queue, and to the dead letter queue once retries are exhausted.
func (q *Queue) ConsumeJobs(ctx context.Context, handler Handler) error {
	err := q.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		JobQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q.handle(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (q *Queue) handle(ctx context.Context, msg amqp.Delivery, handler Handler) {
	job, err := decodeJob(msg.Body)
	if err != nil {
		q.logger.WithError(err).Error("Dropping undecodable job message")
		msg.Nack(false, false)
		return
	}

	retries := retryCount(msg.Headers)
	job.RetryCount = retries

	handlerErr := handler(ctx, job)
	if handlerErr == nil {
		msg.Ack(false)
		return
	}

	if err := q.PublishToRetryQueue(ctx, job, retries, handlerErr.Error()); err != nil {
		q.logger.WithJobID(job.ID).WithError(err).Error("Failed to reschedule job")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(JobQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}

func decodeJob(body []byte) (*models.Job, error) {
	var job models.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" || job.VideoKey == "" {
		return nil, fmt.Errorf("job message is missing id or video key")
	}
	return &job, nil
}
