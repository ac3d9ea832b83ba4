package reliability

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Circuit breaker errors
	ErrCircuitOpen          = errors.New("circuit breaker: circuit is open")
	ErrCircuitHalfOpenLimit = errors.New("circuit breaker: half-open request limit reached")
	ErrUnknownState         = errors.New("circuit breaker: unknown state")
)

// CircuitBreakerError represents a rejected call with the breaker's context
type CircuitBreakerError struct {
	Name             string
	State            State
	Op               string
	Failures         int
	FailureThreshold int
	LastFailure      time.Time
	RetryIn          time.Duration
}

func (e *CircuitBreakerError) Error() string {
	switch e.State {
	case StateOpen:
		return fmt.Sprintf("circuit breaker %s open: %s blocked (failures=%d/%d, retry in %v)",
			e.Name, e.Op, e.Failures, e.FailureThreshold, e.RetryIn.Round(time.Millisecond))
	case StateHalfOpen:
		return fmt.Sprintf("circuit breaker %s half-open: %s limited", e.Name, e.Op)
	default:
		return fmt.Sprintf("circuit breaker %s error: %s in state %v", e.Name, e.Op, e.State)
	}
}

func (e *CircuitBreakerError) Unwrap() error {
	switch e.State {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		return ErrCircuitHalfOpenLimit
	default:
		return ErrUnknownState
	}
}

// IsRejection reports whether err means the breaker refused to run the call
func IsRejection(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
