// Package interceptors provides ready-made interceptions for invocation stacks.
//
// Each type implements invocation.Interception and invocation.Named, so it can
// be placed anywhere in the list handed to invocation.NewInterceptorStack.
// Built-in interceptors:
//   - LoggingInterceptor: Logs each invocation with timing information
//   - MetricsInterceptor: Reports counts, durations and errors to a collector
//   - TracingInterceptor: Wraps the invocation in an OpenTelemetry span
//   - ValidationInterceptor: Rejects arguments before the method runs
//   - AuthorizationInterceptor: Checks the caller may invoke the method
//   - RateLimitingInterceptor: Applies a per-method rate limit
//   - ErrorHandlingInterceptor: Lets a handler translate failures
//   - CircuitBreakerInterceptor: Guards the rest of the chain with a breaker
//   - DenyInterceptor: Rejects methods named by policy rules
//   - AuditInterceptor: Publishes an audit record to an AMQP exchange
//   - CachingInterceptor: Returns cached results for repeated arguments
//
// Example usage:
//
//	stack := interceptors.NewChainBuilder(logger).
//		WithLogging().
//		WithTracing(nil).
//		WithCircuitBreaker(nil).
//		BuildStack(calc, method)
//
//	result, err := stack.Invoke(ctx, 2, 3)
//
// Custom interceptions only need an Invoke method:
//
//	type CustomInterceptor struct{}
//
//	func (i *CustomInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
//		// before
//		result, err := ic.Proceed()
//		// after
//		return result, err
//	}
//
// Interceptions run in list order. Returning without calling Proceed ends the
// chain early with that result.
package interceptors
