package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/interim-go/internal/reliability"
	"github.com/glimte/interim-go/invocation"
)

// targetName returns the dynamic type name of the invocation target
func targetName(ic invocation.InvocationContext) string {
	return fmt.Sprintf("%T", ic.Target())
}

// LoggingInterceptor logs method invocations
type LoggingInterceptor struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{logger: logger, level: slog.LevelInfo}
}

// WithLevel sets the level used for successful invocations
func (i *LoggingInterceptor) WithLevel(level slog.Level) *LoggingInterceptor {
	i.level = level
	return i
}

// Invoke implements invocation.Interception
func (i *LoggingInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	start := time.Now()
	ctx := ic.Context()

	i.logger.Log(ctx, i.level, "invoking method",
		"invocationId", ic.ID(),
		"method", ic.Method().Name(),
		"target", targetName(ic),
		"params", len(ic.Parameters()),
	)

	result, err := ic.Proceed()
	duration := time.Since(start)

	if err != nil {
		i.logger.Error("method invocation failed",
			"invocationId", ic.ID(),
			"method", ic.Method().Name(),
			"duration", duration,
			"error", err,
		)
	} else {
		i.logger.Log(ctx, i.level, "method invoked successfully",
			"invocationId", ic.ID(),
			"method", ic.Method().Name(),
			"duration", duration,
		)
	}

	return result, err
}

// Name implements invocation.Named
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// MetricsInterceptor collects metrics about method invocations
type MetricsInterceptor struct {
	collector MetricsCollector
}

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	IncrementInvocationCount(method string)
	RecordDuration(method string, duration time.Duration)
	IncrementErrorCount(method string, errorType string)
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(collector MetricsCollector) *MetricsInterceptor {
	return &MetricsInterceptor{collector: collector}
}

// Invoke implements invocation.Interception
func (i *MetricsInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	start := time.Now()
	method := ic.Method().Name()

	i.collector.IncrementInvocationCount(method)

	result, err := ic.Proceed()

	i.collector.RecordDuration(method, time.Since(start))
	if err != nil {
		i.collector.IncrementErrorCount(method, fmt.Sprintf("%T", err))
	}

	return result, err
}

// Name implements invocation.Named
func (i *MetricsInterceptor) Name() string {
	return "MetricsInterceptor"
}

// ValidationInterceptor validates arguments before the method runs
type ValidationInterceptor struct {
	validator ParameterValidator
}

// ParameterValidator defines the interface for argument validation
type ParameterValidator interface {
	Validate(ctx context.Context, method string, params []any) error
}

// ParameterValidatorFunc is a function adapter for ParameterValidator
type ParameterValidatorFunc func(ctx context.Context, method string, params []any) error

// Validate implements ParameterValidator
func (f ParameterValidatorFunc) Validate(ctx context.Context, method string, params []any) error {
	return f(ctx, method, params)
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(validator ParameterValidator) *ValidationInterceptor {
	return &ValidationInterceptor{validator: validator}
}

// Invoke implements invocation.Interception
func (i *ValidationInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	if err := i.validator.Validate(ic.Context(), ic.Method().Name(), ic.Parameters()); err != nil {
		return nil, fmt.Errorf("invocation validation failed: %w", err)
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *ValidationInterceptor) Name() string {
	return "ValidationInterceptor"
}

// AuthorizationInterceptor checks the caller may invoke the method
type AuthorizationInterceptor struct {
	authorizer Authorizer
}

// Authorizer defines the interface for invocation authorization
type Authorizer interface {
	Authorize(ctx context.Context, method string, data *invocation.ContextData) error
}

// NewAuthorizationInterceptor creates a new authorization interceptor
func NewAuthorizationInterceptor(authorizer Authorizer) *AuthorizationInterceptor {
	return &AuthorizationInterceptor{authorizer: authorizer}
}

// Invoke implements invocation.Interception
func (i *AuthorizationInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	if err := i.authorizer.Authorize(ic.Context(), ic.Method().Name(), ic.ContextData()); err != nil {
		return nil, fmt.Errorf("invocation authorization failed: %w", err)
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *AuthorizationInterceptor) Name() string {
	return "AuthorizationInterceptor"
}

// RateLimitingInterceptor implements rate limiting per method
type RateLimitingInterceptor struct {
	limiter RateLimiter
}

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(ctx context.Context, key string) error
}

// NewRateLimitingInterceptor creates a new rate limiting interceptor
func NewRateLimitingInterceptor(limiter RateLimiter) *RateLimitingInterceptor {
	return &RateLimitingInterceptor{limiter: limiter}
}

// Invoke implements invocation.Interception
func (i *RateLimitingInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	key := ic.Method().Name()

	if err := i.limiter.Allow(ic.Context(), key); err != nil {
		return nil, fmt.Errorf("rate limit exceeded for method %s: %w", key, err)
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *RateLimitingInterceptor) Name() string {
	return "RateLimitingInterceptor"
}

// ErrorHandlingInterceptor lets an ErrorHandler translate failures
type ErrorHandlingInterceptor struct {
	errorHandler ErrorHandler
	logger       *slog.Logger
}

// ErrorHandler defines the interface for error handling. It returns the
// result and error the invocation should report instead.
type ErrorHandler interface {
	HandleError(ctx context.Context, method string, err error) (any, error)
}

// ErrorHandlerFunc is a function adapter for ErrorHandler
type ErrorHandlerFunc func(ctx context.Context, method string, err error) (any, error)

// HandleError implements ErrorHandler
func (f ErrorHandlerFunc) HandleError(ctx context.Context, method string, err error) (any, error) {
	return f(ctx, method, err)
}

// NewErrorHandlingInterceptor creates a new error handling interceptor
func NewErrorHandlingInterceptor(errorHandler ErrorHandler, logger *slog.Logger) *ErrorHandlingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &ErrorHandlingInterceptor{
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Invoke implements invocation.Interception
func (i *ErrorHandlingInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	result, err := ic.Proceed()
	if err != nil {
		i.logger.Debug("handling invocation error",
			"invocationId", ic.ID(),
			"method", ic.Method().Name(),
			"error", err,
		)

		return i.errorHandler.HandleError(ic.Context(), ic.Method().Name(), err)
	}

	return result, nil
}

// Name implements invocation.Named
func (i *ErrorHandlingInterceptor) Name() string {
	return "ErrorHandlingInterceptor"
}

// CircuitBreakerInterceptor guards the rest of the chain with a circuit breaker
type CircuitBreakerInterceptor struct {
	circuitBreaker *reliability.CircuitBreaker
}

// NewCircuitBreakerInterceptor creates a new circuit breaker interceptor
func NewCircuitBreakerInterceptor(circuitBreaker *reliability.CircuitBreaker) *CircuitBreakerInterceptor {
	if circuitBreaker == nil {
		circuitBreaker = reliability.NewCircuitBreaker()
	}
	return &CircuitBreakerInterceptor{circuitBreaker: circuitBreaker}
}

// Invoke implements invocation.Interception
func (i *CircuitBreakerInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	return i.circuitBreaker.Call(ic.Context(), ic.Proceed)
}

// Name implements invocation.Named
func (i *CircuitBreakerInterceptor) Name() string {
	return "CircuitBreakerInterceptor"
}

// State returns the state of the underlying breaker
func (i *CircuitBreakerInterceptor) State() reliability.State {
	return i.circuitBreaker.GetState()
}
