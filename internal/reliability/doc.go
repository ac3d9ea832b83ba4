// Package reliability provides the circuit breaker used to guard method
// invocations.
//
// The breaker counts failed calls and, once a threshold is reached, rejects
// further calls until a cool-down has passed. It then lets a limited number of
// trial calls through (half-open) and closes again after enough successes.
//
// Key features:
//   - Thread-safe; one breaker is usually shared by every invocation of a method
//   - Configurable thresholds, cool-down and failure classification
//   - Panics are recorded as failures and re-panicked untouched
//   - State change listeners for observability
//
// Example usage:
//
//	cb := NewCircuitBreaker(
//	    WithFailureThreshold(5),
//	    WithSuccessThreshold(3),
//	    WithTimeout(30 * time.Second),
//	)
//
//	result, err := cb.Call(ctx, func() (any, error) {
//	    return ic.Proceed()
//	})
package reliability
