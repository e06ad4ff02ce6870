package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of task variants. Unknown kinds are rejected at
// the decode boundary and dead-lettered, never silently dropped.
type Kind string

const (
	KindImportUser         Kind = "import_user"
	KindTranslateComment   Kind = "translate_comment"
	KindReclassifyComments Kind = "reclassify_comments"
)

func validKind(k Kind) bool {
	switch k {
	case KindImportUser, KindTranslateComment, KindReclassifyComments:
		return true
	}
	return false
}

// ErrEmpty means no task was available before the dequeue timeout.
var ErrEmpty = errors.New("queue is empty")

// ErrMalformed means the dequeued payload could not be decoded into a
// known task; the raw payload has already been dead-lettered.
var ErrMalformed = errors.New("malformed task payload")

// Task is the queue envelope. Payload is kind-specific JSON.
type Task struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Attempts   int             `json:"attempts"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewTask builds an envelope around a kind-specific payload.
func NewTask(kind Kind, payload interface{}) (*Task, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	return &Task{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// PayloadError wraps an undecodable kind-specific payload. It is never
// retryable: redelivery cannot fix a payload that was bad at enqueue.
type PayloadError struct {
	Kind Kind
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Kind, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Retryable reports false so the worker dead-letters on first sight.
func (e *PayloadError) Retryable() bool { return false }

// DecodePayload unmarshals the kind-specific payload into out. Decode
// failures come back as a non-retryable PayloadError.
func (t *Task) DecodePayload(out interface{}) error {
	if err := json.Unmarshal(t.Payload, out); err != nil {
		return &PayloadError{Kind: t.Kind, Err: err}
	}
	return nil
}

// decodeTask parses a raw envelope, rejecting unknown kinds.
func decodeTask(raw []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !validKind(task.Kind) {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, task.Kind)
	}
	return &task, nil
}

// Queue is the task transport consumed by the worker pool.
type Queue interface {
	// Enqueue pushes a task.
	Enqueue(ctx context.Context, task *Task) error
	// Dequeue pops the next task, waiting up to timeout. Returns
	// ErrEmpty on timeout and ErrMalformed for undecodable payloads
	// (which are dead-lettered internally).
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// DeadLetter parks a task that must never be retried.
	DeadLetter(ctx context.Context, task *Task, reason string) error
}

// ImportUserPayload starts an import run for a job.
type ImportUserPayload struct {
	JobID    string `json:"job_id"`
	Username string `json:"username"`
}

// TranslateCommentPayload drives one comment through the pipeline.
type TranslateCommentPayload struct {
	JobID     string `json:"job_id,omitempty"`
	CommentID uint   `json:"comment_id"`
	// Index/Total position the comment inside its job for progress math.
	Index int `json:"index"`
	Total int `json:"total"`
}

// ReclassifyCommentsPayload reruns classification after a keyword change.
type ReclassifyCommentsPayload struct {
	Reason string `json:"reason"`
}
