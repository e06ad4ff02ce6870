package source

import "fmt"

// HTTPStatusError is a non-2xx response from an external collaborator.
// Server-side and throttling statuses are transient, so the circuit
// breaker counts them; client errors propagate without affecting state.
type HTTPStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned HTTP %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned HTTP %d", e.Service, e.StatusCode)
}

func (e *HTTPStatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
