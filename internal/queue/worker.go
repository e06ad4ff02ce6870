package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
)

// Handler processes one task of a registered kind.
type Handler func(ctx context.Context, task *Task) error

// Worker consumes tasks with a pool of goroutines and applies the
// per-kind retry policy. Handlers are dispatched through a closed lookup
// table; a task whose kind has no handler is dead-lettered.
type Worker struct {
	queue    Queue
	handlers map[Kind]Handler
	policies map[Kind]RetryPolicy
	workers  int
	log      *logger.Logger

	// pollTimeout bounds each dequeue wait so shutdown is responsive.
	pollTimeout time.Duration
}

// NewWorker creates a worker pool over the queue.
func NewWorker(q Queue, workers int, log *logger.Logger) *Worker {
	if workers <= 0 {
		workers = 5
	}
	if log == nil {
		log = logger.Default()
	}
	return &Worker{
		queue:       q,
		handlers:    make(map[Kind]Handler),
		policies:    defaultPolicies(),
		workers:     workers,
		log:         log,
		pollTimeout: time.Second,
	}
}

// Register binds a handler to a task kind.
func (w *Worker) Register(kind Kind, handler Handler) {
	w.handlers[kind] = handler
}

// SetPolicy overrides the retry policy for one kind.
func (w *Worker) SetPolicy(kind Kind, policy RetryPolicy) {
	w.policies[kind] = policy
}

// Run blocks consuming tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		workerID := i
		g.Go(func() error {
			return w.loop(ctx, workerID)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context, workerID int) error {
	log := w.log.WithField("worker", workerID)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		task, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if errors.Is(err, ErrMalformed) {
			log.WithError(err).Warn("Discarded malformed task")
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("Dequeue failed")
			continue
		}

		w.handle(ctx, task, log)
	}
}

func (w *Worker) handle(ctx context.Context, task *Task, log *logger.Logger) {
	taskLog := log.WithFields(logger.Fields{
		"task_id":  task.ID,
		"kind":     string(task.Kind),
		"attempts": task.Attempts,
	})

	handler, ok := w.handlers[task.Kind]
	if !ok {
		w.queue.DeadLetter(ctx, task, fmt.Sprintf("no handler registered for kind %q", task.Kind))
		return
	}

	task.Attempts++
	start := time.Now()
	err := handler(ctx, task)
	if err == nil {
		taskLog.WithField(logger.FieldDurationMs, time.Since(start).Milliseconds()).Info("Task completed")
		return
	}

	if !isRetryable(err) {
		taskLog.WithError(err).Warn("Task failed with non-retryable error")
		w.queue.DeadLetter(ctx, task, err.Error())
		return
	}

	policy := w.policies[task.Kind]
	if task.Attempts >= policy.MaxAttempts {
		taskLog.WithError(err).Error("Task exhausted retry budget")
		w.queue.DeadLetter(ctx, task, fmt.Sprintf("retries exhausted: %v", err))
		return
	}

	backoff := policy.Backoff(task.Attempts)
	taskLog.WithError(err).WithField("backoff", backoff.String()).Warn("Task failed, re-enqueueing")

	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return
	}
	if enqErr := w.queue.Enqueue(ctx, task); enqErr != nil {
		taskLog.WithError(enqErr).Error("Failed to re-enqueue task")
	}
}

// isRetryable consults the error's own retry semantics; errors without
// an opinion default to retryable.
func isRetryable(err error) bool {
	var retryable domain.Retryable
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}
	return true
}
