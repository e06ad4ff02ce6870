package breaker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Config tunes one breaker instance. All fields are required.
type Config struct {
	// Name identifies the protected service; it is also the shared
	// state key, so every worker wrapping the same service must use
	// the same name.
	Name             string
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
	CallTimeout      time.Duration
}

// Validate rejects configurations that would never open or never recover.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("breaker config: name is required")
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("breaker config %q: failure threshold must be positive", c.Name)
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("breaker config %q: success threshold must be positive", c.Name)
	}
	if c.RecoveryTimeout <= 0 {
		return fmt.Errorf("breaker config %q: recovery timeout must be positive", c.Name)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("breaker config %q: call timeout must be positive", c.Name)
	}
	return nil
}

// Transient is implemented by errors that represent a temporary external
// failure worth counting against the breaker.
type Transient interface {
	Transient() bool
}

// DefaultCountable classifies timeouts, connection errors, and errors
// marked Transient as countable failures. Everything else (not-found,
// validation, programmer errors) propagates without affecting state.
func DefaultCountable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var transient Transient
	if errors.As(err, &transient) {
		return transient.Transient()
	}
	return false
}
