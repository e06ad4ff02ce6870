package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LariSevilha/comment-analysis/internal/domain"
)

func runWorker(t *testing.T, w *Worker, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	w.pollTimeout = 10 * time.Millisecond
	w.Run(ctx)
}

func TestWorkerDispatchesByKind(t *testing.T) {
	q := NewMemoryQueue(10)
	w := NewWorker(q, 2, nil)

	var handled atomic.Int32
	w.Register(KindTranslateComment, func(_ context.Context, task *Task) error {
		var payload TranslateCommentPayload
		require.NoError(t, task.DecodePayload(&payload))
		assert.Equal(t, uint(42), payload.CommentID)
		handled.Add(1)
		return nil
	})

	task, err := NewTask(KindTranslateComment, TranslateCommentPayload{CommentID: 42})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), task))

	runWorker(t, w, 300*time.Millisecond)
	assert.Equal(t, int32(1), handled.Load())
	assert.Empty(t, q.DeadLetters())
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	q := NewMemoryQueue(10)
	w := NewWorker(q, 1, nil)
	w.SetPolicy(KindTranslateComment, RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond})

	var calls atomic.Int32
	w.Register(KindTranslateComment, func(context.Context, *Task) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	task, err := NewTask(KindTranslateComment, TranslateCommentPayload{CommentID: 1})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), task))

	runWorker(t, w, 500*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
	assert.Empty(t, q.DeadLetters())
}

func TestWorkerDeadLettersAfterRetryBudget(t *testing.T) {
	q := NewMemoryQueue(10)
	w := NewWorker(q, 1, nil)
	w.SetPolicy(KindTranslateComment, RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond})

	var calls atomic.Int32
	w.Register(KindTranslateComment, func(context.Context, *Task) error {
		calls.Add(1)
		return errors.New("always failing")
	})

	task, err := NewTask(KindTranslateComment, TranslateCommentPayload{CommentID: 1})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), task))

	runWorker(t, w, 500*time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0].Reason, "retries exhausted")
}

func TestWorkerDoesNotRetryNonRetryableErrors(t *testing.T) {
	q := NewMemoryQueue(10)
	w := NewWorker(q, 1, nil)

	var calls atomic.Int32
	w.Register(KindImportUser, func(context.Context, *Task) error {
		calls.Add(1)
		return &domain.UserNotFoundError{Username: "ghost"}
	})

	task, err := NewTask(KindImportUser, ImportUserPayload{JobID: "j", Username: "ghost"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), task))

	runWorker(t, w, 300*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "non-retryable errors discard the task")

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0].Reason, "ghost")
}

func TestMalformedPayloadIsDiscardedNotRetried(t *testing.T) {
	q := NewMemoryQueue(10)
	w := NewWorker(q, 1, nil)
	w.Register(KindTranslateComment, func(context.Context, *Task) error { return nil })

	q.EnqueueRaw([]byte("{not json"))
	q.EnqueueRaw([]byte(`{"id":"x","kind":"warm_fusion_reactor","payload":{}}`))

	runWorker(t, w, 300*time.Millisecond)

	dead := q.DeadLetters()
	require.Len(t, dead, 2)
	assert.Contains(t, dead[1].Reason, "unknown kind")
	assert.Equal(t, 0, q.Len())
}

func TestUndecodablePayloadIsDeadLetteredOnFirstAttempt(t *testing.T) {
	q := NewMemoryQueue(10)
	w := NewWorker(q, 1, nil)
	w.SetPolicy(KindTranslateComment, RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Millisecond})

	var calls atomic.Int32
	w.Register(KindTranslateComment, func(_ context.Context, task *Task) error {
		calls.Add(1)
		var payload TranslateCommentPayload
		return task.DecodePayload(&payload)
	})

	// Valid envelope, wrong payload shape. Retrying cannot fix it.
	task, err := NewTask(KindTranslateComment, map[string]string{"comment_id": "not-a-number"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), task))

	runWorker(t, w, 500*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "decode failures must not burn the retry budget")

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Contains(t, dead[0].Reason, "malformed translate_comment payload")
}

func TestUnknownKindRejectedAtConstruction(t *testing.T) {
	_, err := NewTask(Kind("definitely_not_a_task"), nil)
	assert.Error(t, err)
}

func TestRetryPolicyBackoffIsExponential(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, BaseBackoff: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
}
