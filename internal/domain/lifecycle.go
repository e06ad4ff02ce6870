package domain

import "strings"

// Transition names a lifecycle edge of the comment state machine.
type Transition string

const (
	TransitionStartProcessing Transition = "start_processing"
	TransitionApprove         Transition = "approve"
	TransitionReject          Transition = "reject"

	// TransitionReprocess re-enters processing from a terminal state.
	// It exists so keyword-set changes can reclassify already-decided
	// comments; the import path never uses it.
	TransitionReprocess Transition = "reprocess"
)

// TransitionEvent describes a transition that was applied. Terminal
// transitions request a metrics recalculation; the caller publishes it,
// the state machine itself has no side effects.
type TransitionEvent struct {
	CommentID          uint
	From               CommentStatus
	To                 CommentStatus
	Transition         Transition
	RecalculateMetrics bool
}

// transitionTable maps each transition to its allowed source states.
var transitionTable = map[Transition]map[CommentStatus]CommentStatus{
	TransitionStartProcessing: {
		CommentStatusNew: CommentStatusProcessing,
	},
	TransitionApprove: {
		CommentStatusProcessing: CommentStatusApproved,
	},
	TransitionReject: {
		CommentStatusProcessing: CommentStatusRejected,
	},
	TransitionReprocess: {
		CommentStatusApproved: CommentStatusProcessing,
		CommentStatusRejected: CommentStatusProcessing,
	},
}

// ApplyTransition validates the transition against the comment's current
// status and guards, mutates the status in memory, and returns the event
// to publish. Persistence is the caller's job.
func ApplyTransition(c *Comment, tr Transition) (*TransitionEvent, error) {
	targets, ok := transitionTable[tr]
	if !ok {
		return nil, &InvalidTransitionError{From: c.Status, Transition: tr, Reason: "unknown transition"}
	}
	to, ok := targets[c.Status]
	if !ok {
		return nil, &InvalidTransitionError{From: c.Status, Transition: tr}
	}

	if reason := guardTransition(c, tr); reason != "" {
		return nil, &InvalidTransitionError{From: c.Status, Transition: tr, Reason: reason}
	}

	event := &TransitionEvent{
		CommentID:          c.ID,
		From:               c.Status,
		To:                 to,
		Transition:         tr,
		RecalculateMetrics: to.Terminal(),
	}
	c.Status = to
	return event, nil
}

// guardTransition enforces per-transition preconditions. Empty result
// means the guard passed. Reject is the fail-safe path and has no guard.
func guardTransition(c *Comment, tr Transition) string {
	switch tr {
	case TransitionStartProcessing:
		if strings.TrimSpace(c.Body) == "" {
			return "comment body is empty"
		}
		if strings.TrimSpace(c.Name) == "" {
			return "comment author name is empty"
		}
		if strings.TrimSpace(c.Email) == "" {
			return "comment author email is empty"
		}
	case TransitionApprove:
		if c.TextForClassification() == "" {
			return "no text to justify approval"
		}
	}
	return ""
}
