// Package worker applies queued feedback events to the database.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/queue"
	"github.com/pageza/flavor-monk/backend/internal/service"
)

// Task outcomes reported to the Observer.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
	OutcomeRetried   = "retried"
)

// Observer receives worker telemetry.
type Observer interface {
	TaskProcessed(taskType, outcome string, elapsed time.Duration)
	TasksRequeued(n int)
}

type nopObserver struct{}

func (nopObserver) TaskProcessed(string, string, time.Duration) {}
func (nopObserver) TasksRequeued(int)                           {}

// Config tunes a FeedbackProcessor.
type Config struct {
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
}

// FeedbackProcessor consumes interaction and rating tasks. Every handler is
// idempotent on the task ID, so a redelivered task is acknowledged without
// being applied twice.
type FeedbackProcessor struct {
	queue        queue.Queue
	interactions service.IInteractionService
	ratings      service.IFeedbackService
	config       Config
	observer     Observer
	logger       *zap.Logger
}

func NewFeedbackProcessor(q queue.Queue, interactions service.IInteractionService, ratings service.IFeedbackService, cfg Config, observer Observer, logger *zap.Logger) *FeedbackProcessor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = time.Minute
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &FeedbackProcessor{
		queue:        q,
		interactions: interactions,
		ratings:      ratings,
		config:       cfg,
		observer:     observer,
		logger:       logger.Named("worker"),
	}
}

// Run processes tasks until ctx is cancelled. Stale reservations are
// released on start and then once per visibility timeout.
func (p *FeedbackProcessor) Run(ctx context.Context) error {
	p.logger.Info("feedback processor started",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("visibility_timeout", p.config.VisibilityTimeout))

	p.requeueStale(ctx)
	ticker := time.NewTicker(p.config.VisibilityTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("feedback processor stopped")
			return nil
		case <-ticker.C:
			p.requeueStale(ctx)
		default:
		}

		task, err := p.queue.Reserve(ctx, p.config.PollInterval)
		switch {
		case err == nil:
			p.Process(ctx, task)
		case errors.Is(err, queue.ErrEmpty):
		case ctx.Err() != nil:
		default:
			p.logger.Error("failed to reserve task", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(p.config.PollInterval):
			}
		}
	}
}

func (p *FeedbackProcessor) requeueStale(ctx context.Context) {
	n, err := p.queue.RequeueStale(ctx)
	if err != nil {
		p.logger.Error("failed to requeue stale tasks", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Warn("requeued stale tasks", zap.Int("count", n))
		p.observer.TasksRequeued(n)
	}
}

// Process handles one reserved task and settles it with the queue.
func (p *FeedbackProcessor) Process(ctx context.Context, task *queue.Task) {
	start := time.Now()
	logger := p.logger.With(zap.String("task_id", task.ID), zap.String("type", task.Type), zap.Int("attempts", task.Attempts))

	applied, err := p.handle(ctx, task)
	outcome := OutcomeApplied
	switch {
	case err == nil && !applied:
		outcome = OutcomeDuplicate
		logger.Debug("task already applied")
	case err == nil:
	case permanent(err):
		outcome = OutcomeDropped
		logger.Warn("dropping task", zap.Error(err))
	default:
		outcome = OutcomeRetried
		logger.Error("task failed", zap.Error(err))
		if nackErr := p.queue.Nack(ctx, task); nackErr != nil {
			logger.Error("failed to return task", zap.Error(nackErr))
		}
		p.observer.TaskProcessed(task.Type, outcome, time.Since(start))
		return
	}

	if ackErr := p.queue.Ack(ctx, task); ackErr != nil {
		logger.Error("failed to acknowledge task", zap.Error(ackErr))
	}
	p.observer.TaskProcessed(task.Type, outcome, time.Since(start))
}

func (p *FeedbackProcessor) handle(ctx context.Context, task *queue.Task) (bool, error) {
	switch task.Type {
	case queue.TypeInteractionRecorded:
		var ev service.InteractionEvent
		if err := task.Decode(&ev); err != nil {
			return false, apperrors.Input("malformed task").WithCause(err)
		}
		return p.interactions.Apply(ctx, ev)
	case queue.TypeRatingSubmitted:
		var ev service.RatingEvent
		if err := task.Decode(&ev); err != nil {
			return false, apperrors.Input("malformed task").WithCause(err)
		}
		return p.ratings.SubmitRating(ctx, ev)
	default:
		return false, apperrors.Input("unknown task type %q", task.Type)
	}
}

// permanent reports whether retrying err can never succeed.
func permanent(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrNotFound)
}

