package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"partshub-catalog/internal/config"
)

// queueKey is the Redis list holding pending crawl jobs
const queueKey = "catalog:jobs:queue"

// QueueItem is one pending crawl. The job row already exists in the job
// store when the item is enqueued; the item only carries what the worker
// needs to claim it.
type QueueItem struct {
	JobID    int64  `json:"job_id"`
	VendorID string `json:"vendor_id"`
	Attempt  int    `json:"attempt"`
}

// Queue is a FIFO of pending crawls shared by the API, the cron scheduler
// and the worker.
type Queue interface {
	// Push appends an item to the queue
	Push(ctx context.Context, item QueueItem) error

	// Pop blocks up to timeout for the next item, returning nil when the
	// queue stayed empty.
	Pop(ctx context.Context, timeout time.Duration) (*QueueItem, error)

	Close() error
}

// RedisQueue is the production queue. A single Redis list gives FIFO order
// and lets several processes share one job stream.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue connects to Redis and verifies the connection
func NewRedisQueue(cfg *config.Config) (*RedisQueue, error) {
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opt.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opt.DB = cfg.Redis.DB
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{client: client}, nil
}

// Push appends an item to the queue
func (q *RedisQueue) Push(ctx context.Context, item QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push queue item: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next item
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*QueueItem, error) {
	result, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop queue item: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var item QueueItem
	if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return &item, nil
}

// Close closes the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping reports whether the Redis backend is reachable
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// MemoryQueue is the in-process fallback used for local development without
// Redis and by the scheduler tests.
type MemoryQueue struct {
	items chan QueueItem
}

// NewMemoryQueue creates a buffered in-process queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{items: make(chan QueueItem, 1024)}
}

// Push appends an item, failing when the buffer is full
func (q *MemoryQueue) Push(ctx context.Context, item QueueItem) error {
	select {
	case q.items <- item:
		return nil
	default:
		return fmt.Errorf("queue is full")
	}
}

// Pop blocks up to timeout for the next item
func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*QueueItem, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.items:
		return &item, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close is a no-op for the in-process queue
func (q *MemoryQueue) Close() error {
	return nil
}
