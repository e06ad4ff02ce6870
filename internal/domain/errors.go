package domain

import "fmt"

// Retryable is implemented by errors that carry their own retry semantics.
// Errors that do not implement it default to retryable at the queue layer.
type Retryable interface {
	Retryable() bool
}

// UserNotFoundError means the external source has no user matching the
// requested username. Terminal: the import run is discarded, never retried.
type UserNotFoundError struct {
	Username string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %q not found in external source", e.Username)
}

func (e *UserNotFoundError) Retryable() bool { return false }

// APIError wraps a failure from an external collaborator after the inline
// retry budget is exhausted. Retryable at the queue layer.
type APIError struct {
	Service string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Service, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Retryable() bool { return true }

// ClassificationError wraps a failure during comment classification.
// The comment has already been forced to rejected by the time this surfaces.
type ClassificationError struct {
	CommentID uint
	Err       error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for comment %d: %v", e.CommentID, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func (e *ClassificationError) Retryable() bool { return false }

// InvalidTransitionError reports an illegal lifecycle transition attempt.
// Transitions never silently no-op.
type InvalidTransitionError struct {
	From       CommentStatus
	Transition Transition
	Reason     string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %q from status %q: %s", e.Transition, e.From, e.Reason)
	}
	return fmt.Sprintf("invalid transition %q from status %q", e.Transition, e.From)
}

func (e *InvalidTransitionError) Retryable() bool { return false }
