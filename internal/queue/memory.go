package queue

import (
	"context"
	"sync"
	"time"
)

type reservation struct {
	task *Task
	at   time.Time
}

// MemoryQueue is an in-process Queue for single-binary deployments and
// tests. Tasks do not survive a restart.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []*Task
	reserved map[string]reservation
	dead     []*Task
	notify   chan struct{}
	opts     Options
	now      func() time.Time
}

func NewMemoryQueue(opts Options) *MemoryQueue {
	return &MemoryQueue{
		reserved: make(map[string]reservation),
		notify:   make(chan struct{}, 1),
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(_ context.Context, task *Task) error {
	q.mu.Lock()
	copied := *task
	q.pending = append(q.pending, &copied)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Reserve implements Queue.
func (q *MemoryQueue) Reserve(ctx context.Context, wait time.Duration) (*Task, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		if task := q.take(); task != nil {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			if task := q.take(); task != nil {
				return task, nil
			}
			return nil, ErrEmpty
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) take() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	task := q.pending[0]
	q.pending = q.pending[1:]
	q.reserved[task.ID] = reservation{task: task, at: q.now()}
	if len(q.pending) > 0 {
		q.signal()
	}
	copied := *task
	return &copied
}

// Ack implements Queue.
func (q *MemoryQueue) Ack(_ context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.reserved, task.ID)
	return nil
}

// Nack implements Queue.
func (q *MemoryQueue) Nack(_ context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	res, ok := q.reserved[task.ID]
	if !ok {
		return nil
	}
	q.releaseLocked(res.task)
	return nil
}

// releaseLocked must be called with mu held.
func (q *MemoryQueue) releaseLocked(task *Task) {
	delete(q.reserved, task.ID)
	task.Attempts++
	if task.Attempts >= q.opts.MaxAttempts {
		q.dead = append(q.dead, task)
		return
	}
	q.pending = append(q.pending, task)
	q.signal()
}

// RequeueStale implements Queue.
func (q *MemoryQueue) RequeueStale(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-q.opts.VisibilityTimeout)
	moved := 0
	for _, res := range q.reserved {
		if res.at.After(cutoff) {
			continue
		}
		q.releaseLocked(res.task)
		moved++
	}
	return moved, nil
}

// Len returns the number of pending tasks.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DeadLetters returns the number of tasks that ran out of attempts.
func (q *MemoryQueue) DeadLetters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}
