package queue

import "time"

// RetryPolicy is the per-task-class retry budget. Backoff is exponential
// from BaseBackoff; attempt numbering starts at 1.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Backoff returns the delay before the given retry attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

// defaultPolicies maps each task class to its retry budget. Import runs
// already retry inline against the external API, so the queue-level
// budget is small; translation tasks are cheap to rerun.
func defaultPolicies() map[Kind]RetryPolicy {
	return map[Kind]RetryPolicy{
		KindImportUser:         {MaxAttempts: 3, BaseBackoff: 2 * time.Second},
		KindTranslateComment:   {MaxAttempts: 5, BaseBackoff: time.Second},
		KindReclassifyComments: {MaxAttempts: 2, BaseBackoff: 5 * time.Second},
	}
}
