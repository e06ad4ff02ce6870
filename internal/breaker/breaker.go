package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LariSevilha/comment-analysis/internal/alert"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/logger"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// CircuitOpenError is returned when the breaker rejects a call without
// invoking the wrapped function.
type CircuitOpenError struct {
	Service string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for service %q", e.Service)
}

func (e *CircuitOpenError) Retryable() bool { return false }

// record is the externalized breaker state. It lives in the typed cache
// under the breaker type, so worker processes share one circuit; TTL
// expiry degrades an idle breaker back to closed.
type record struct {
	State          State     `json:"state"`
	FailureCount   int       `json:"failure_count"`
	SuccessCount   int       `json:"success_count"`
	LastFailureAt  time.Time `json:"last_failure_at"`
	LastFailureMsg string    `json:"last_failure_msg"`
}

// Breaker wraps calls to one external service. State updates are
// serialized per process with a mutex; the cross-process read-modify-write
// on the shared record is approximate (an undercounted failure delays
// opening by at most one call).
type Breaker struct {
	cfg       Config
	cache     *cache.Cache
	countable func(error) bool
	alerts    alert.Notifier
	log       *logger.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New creates a breaker for the named service. countable decides which
// errors affect breaker state; nil uses DefaultCountable.
func New(cfg Config, c *cache.Cache, countable func(error) bool, alerts alert.Notifier, log *logger.Logger) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if countable == nil {
		countable = DefaultCountable
	}
	if alerts == nil {
		alerts = alert.NewLogNotifier(log)
	}
	if log == nil {
		log = logger.Default()
	}
	return &Breaker{
		cfg:       cfg,
		cache:     c,
		countable: countable,
		alerts:    alerts,
		log:       log.WithField("breaker", cfg.Name),
		now:       time.Now,
	}, nil
}

// Execute runs fn under the breaker's call timeout. In the open state the
// call is rejected immediately with CircuitOpenError. Errors the countable
// classifier rejects propagate without touching breaker state.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.load(ctx)

	if state.State == StateOpen {
		if b.now().Sub(state.LastFailureAt) >= b.cfg.RecoveryTimeout {
			state.State = StateHalfOpen
			state.SuccessCount = 0
			b.save(ctx, state)
			b.log.Info("Circuit breaker half-open, probing recovery")
		} else {
			return &CircuitOpenError{Service: b.cfg.Name}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	err := fn(callCtx)
	cancel()

	if err == nil {
		b.onSuccess(ctx, state)
		return nil
	}
	if !b.countable(err) {
		return err
	}
	b.onFailure(ctx, state, err)
	return err
}

// State reports the breaker's current state without executing anything.
func (b *Breaker) State(ctx context.Context) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx).State
}

func (b *Breaker) onSuccess(ctx context.Context, state *record) {
	switch state.State {
	case StateHalfOpen:
		state.SuccessCount++
		if state.SuccessCount >= b.cfg.SuccessThreshold {
			b.log.Info("Circuit breaker closed after recovery")
			state.State = StateClosed
			state.FailureCount = 0
			state.SuccessCount = 0
			state.LastFailureMsg = ""
		}
	default:
		// A success in closed resets the consecutive-failure count.
		state.FailureCount = 0
	}
	b.save(ctx, state)
}

func (b *Breaker) onFailure(ctx context.Context, state *record, err error) {
	state.LastFailureAt = b.now()
	state.LastFailureMsg = err.Error()

	switch state.State {
	case StateHalfOpen:
		state.State = StateOpen
		state.SuccessCount = 0
		b.log.WithError(err).Warn("Circuit breaker reopened from half-open")
	default:
		state.FailureCount++
		if state.FailureCount >= b.cfg.FailureThreshold {
			state.State = StateOpen
			b.log.WithError(err).WithField("failures", state.FailureCount).Error("Circuit breaker opened")
			b.alerts.Notify(ctx, "circuit_breaker_open", map[string]interface{}{
				"service":       b.cfg.Name,
				"failure_count": state.FailureCount,
				"last_error":    err.Error(),
			}, alert.SeverityCritical)
		}
	}
	b.save(ctx, state)
}

// load reads the shared record; a missing or unreadable record degrades
// to a closed breaker with zeroed counters.
func (b *Breaker) load(ctx context.Context) *record {
	state := &record{State: StateClosed}
	found, err := b.cache.Get(ctx, cache.TypeBreaker, b.cfg.Name, state)
	if err != nil || !found {
		return &record{State: StateClosed}
	}
	if state.State == "" {
		state.State = StateClosed
	}
	return state
}

func (b *Breaker) save(ctx context.Context, state *record) {
	if err := b.cache.Set(ctx, cache.TypeBreaker, b.cfg.Name, state); err != nil {
		b.log.WithError(err).Warn("Failed to persist circuit breaker state")
	}
}
