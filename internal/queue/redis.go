package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps pending tasks in a list, moves reserved tasks atomically
// into a processing list and records when each was reserved.
type RedisQueue struct {
	client *redis.Client
	name   string
	opts   Options
	now    func() time.Time
}

func NewRedisQueue(client *redis.Client, name string, opts Options) *RedisQueue {
	return &RedisQueue{client: client, name: name, opts: opts.withDefaults(), now: time.Now}
}

func (q *RedisQueue) pendingKey() string    { return q.name + ":pending" }
func (q *RedisQueue) processingKey() string { return q.name + ":processing" }
func (q *RedisQueue) reservedKey() string   { return q.name + ":reserved" }
func (q *RedisQueue) deadKey() string       { return q.name + ":dead" }

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.pendingKey(), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Reserve implements Queue.
func (q *RedisQueue) Reserve(ctx context.Context, wait time.Duration) (*Task, error) {
	raw, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve task: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		// Unreadable entries can never succeed.
		_ = q.client.LRem(ctx, q.processingKey(), 1, raw).Err()
		_ = q.client.RPush(ctx, q.deadKey(), raw).Err()
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	task.raw = raw

	if err := q.client.HSet(ctx, q.reservedKey(), raw, q.now().Unix()).Err(); err != nil {
		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}
	return &task, nil
}

// Ack implements Queue.
func (q *RedisQueue) Ack(ctx context.Context, task *Task) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, task.raw)
	pipe.HDel(ctx, q.reservedKey(), task.raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

// Nack implements Queue.
func (q *RedisQueue) Nack(ctx context.Context, task *Task) error {
	return q.release(ctx, task.raw, task)
}

func (q *RedisQueue) release(ctx context.Context, raw string, task *Task) error {
	retry := *task
	retry.Attempts++
	data, err := json.Marshal(&retry)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, raw)
	pipe.HDel(ctx, q.reservedKey(), raw)
	if retry.Attempts >= q.opts.MaxAttempts {
		pipe.RPush(ctx, q.deadKey(), data)
	} else {
		pipe.RPush(ctx, q.pendingKey(), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to release task: %w", err)
	}
	return nil
}

// RequeueStale implements Queue. A processing entry with no reservation time
// may belong to a consumer between BLMOVE and HSET, so it is stamped now and
// only requeued if it is still there a visibility timeout later.
func (q *RedisQueue) RequeueStale(ctx context.Context) (int, error) {
	reserved, err := q.client.HGetAll(ctx, q.reservedKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	inFlight, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list processing tasks: %w", err)
	}

	now := q.now()
	cutoff := now.Add(-q.opts.VisibilityTimeout).Unix()
	moved := 0
	seen := make(map[string]bool, len(inFlight))
	for _, raw := range inFlight {
		seen[raw] = true
		at, ok := reserved[raw]
		if !ok {
			if err := q.client.HSetNX(ctx, q.reservedKey(), raw, now.Unix()).Err(); err != nil {
				return moved, fmt.Errorf("failed to stamp reservation: %w", err)
			}
			continue
		}
		if ts, err := strconv.ParseInt(at, 10, 64); err == nil && ts > cutoff {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			continue
		}
		if err := q.release(ctx, raw, &task); err != nil {
			return moved, err
		}
		moved++
	}

	// Stamps whose task was acked in the meantime.
	for raw := range reserved {
		if !seen[raw] {
			if err := q.client.HDel(ctx, q.reservedKey(), raw).Err(); err != nil {
				return moved, fmt.Errorf("failed to drop reservation: %w", err)
			}
		}
	}
	return moved, nil
}

// DeadLetters returns the number of tasks that ran out of attempts.
func (q *RedisQueue) DeadLetters(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.deadKey()).Result()
}
