// Package queue delivers background tasks at least once. A consumer
// reserves a task, processes it and acknowledges it; reservations that are
// never acknowledged are handed out again.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task types.
const (
	TypeInteractionRecorded = "interaction.recorded"
	TypeRatingSubmitted     = "rating.submitted"
)

// ErrEmpty is returned by Reserve when no task arrived in time.
var ErrEmpty = errors.New("queue: no task available")

// Task is one unit of background work. ID is stable across redeliveries so
// handlers can deduplicate on it.
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`

	raw string
}

// NewTask encodes payload into a task of the given type with a fresh ID.
func NewTask(taskType string, payload interface{}) (*Task, error) {
	return NewTaskWithID(uuid.NewString(), taskType, payload)
}

// NewTaskWithID is NewTask with a caller-chosen ID.
func NewTaskWithID(id, taskType string, payload interface{}) (*Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task payload: %w", err)
	}
	return &Task{ID: id, Type: taskType, Payload: data, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into v.
func (t *Task) Decode(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", t.Type, err)
	}
	return nil
}

// Queue is an at-least-once task queue.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	// Reserve blocks up to wait for a task and returns ErrEmpty if none came.
	Reserve(ctx context.Context, wait time.Duration) (*Task, error)
	Ack(ctx context.Context, task *Task) error
	// Nack returns a failed task to the queue, or moves it to the dead
	// letter list once it has used up its attempts.
	Nack(ctx context.Context, task *Task) error
	// RequeueStale hands out again reservations older than the visibility
	// timeout and reports how many it moved.
	RequeueStale(ctx context.Context) (int, error)
}

// Options tune a queue.
type Options struct {
	VisibilityTimeout time.Duration
	MaxAttempts       int
}

func (o Options) withDefaults() Options {
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	return o
}
