package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Stat names counted by the worker
const (
	StatVideosProcessed = "videos_processed"
	StatVideosFailed    = "videos_failed"
	StatResults         = "results"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new cache instance
func NewCache(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Job Cache Operations

// SetJob caches a job snapshot
func (c *Cache) SetJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return c.client.Set(ctx, jobKey(job.ID), data, c.ttl).Err()
}

// GetJob retrieves a job from cache. A miss returns nil, nil.
func (c *Cache) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	data, err := c.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job from cache: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// DeleteJob removes a job and its progress from cache
func (c *Cache) DeleteJob(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, jobKey(jobID), progressKey(jobID)).Err()
}

// SetJobProgress caches job progress for quick retrieval
func (c *Cache) SetJobProgress(ctx context.Context, jobID string, progress float64) error {
	return c.client.Set(ctx, progressKey(jobID), progress, c.ttl).Err()
}

// GetJobProgress retrieves job progress from cache
func (c *Cache) GetJobProgress(ctx context.Context, jobID string) (float64, error) {
	progress, err := c.client.Get(ctx, progressKey(jobID)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return progress, err
}

// Stats

// IncrementStat adds delta to a statistic counter
func (c *Cache) IncrementStat(ctx context.Context, stat string, delta int64) error {
	return c.client.IncrBy(ctx, statKey(stat), delta).Err()
}

// GetStat retrieves a statistic value; unset counters are zero
func (c *Cache) GetStat(ctx context.Context, stat string) (int64, error) {
	value, err := c.client.Get(ctx, statKey(stat)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return value, err
}

// Locking

// AcquireLock attempts to take a lock on resource for ttl
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, lockKey(resource), "locked", ttl).Result()
}

// ReleaseLock releases a lock taken with AcquireLock
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	return c.client.Del(ctx, lockKey(resource)).Err()
}

func jobKey(jobID string) string      { return "job:" + jobID }
func progressKey(jobID string) string { return "job:progress:" + jobID }
func statKey(stat string) string      { return "stats:" + stat }
func lockKey(resource string) string  { return "lock:" + resource }
