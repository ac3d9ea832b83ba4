package interceptors

import (
	"log/slog"
	"slices"

	"github.com/glimte/interim-go/internal/reliability"
	"github.com/glimte/interim-go/invocation"
	"go.opentelemetry.io/otel/trace"
)

// ChainBuilder assembles an ordered list of interceptions
type ChainBuilder struct {
	interceptions []invocation.Interception
	logger        *slog.Logger
}

// NewChainBuilder creates a new builder
func NewChainBuilder(logger *slog.Logger) *ChainBuilder {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChainBuilder{
		interceptions: make([]invocation.Interception, 0),
		logger:        logger,
	}
}

// WithLogging adds logging interceptor
func (b *ChainBuilder) WithLogging() *ChainBuilder {
	return b.WithCustom(NewLoggingInterceptor(b.logger))
}

// WithMetrics adds metrics interceptor
func (b *ChainBuilder) WithMetrics(collector MetricsCollector) *ChainBuilder {
	return b.WithCustom(NewMetricsInterceptor(collector))
}

// WithTracing adds tracing interceptor
func (b *ChainBuilder) WithTracing(tracer trace.Tracer) *ChainBuilder {
	return b.WithCustom(NewTracingInterceptor(tracer))
}

// WithValidation adds validation interceptor
func (b *ChainBuilder) WithValidation(validator ParameterValidator) *ChainBuilder {
	return b.WithCustom(NewValidationInterceptor(validator))
}

// WithAuthorization adds authorization interceptor
func (b *ChainBuilder) WithAuthorization(authorizer Authorizer) *ChainBuilder {
	return b.WithCustom(NewAuthorizationInterceptor(authorizer))
}

// WithRateLimit adds rate limiting interceptor
func (b *ChainBuilder) WithRateLimit(limiter RateLimiter) *ChainBuilder {
	return b.WithCustom(NewRateLimitingInterceptor(limiter))
}

// WithErrorHandling adds error handling interceptor
func (b *ChainBuilder) WithErrorHandling(errorHandler ErrorHandler) *ChainBuilder {
	return b.WithCustom(NewErrorHandlingInterceptor(errorHandler, b.logger))
}

// WithCircuitBreaker adds circuit breaker interceptor
func (b *ChainBuilder) WithCircuitBreaker(circuitBreaker *reliability.CircuitBreaker) *ChainBuilder {
	return b.WithCustom(NewCircuitBreakerInterceptor(circuitBreaker))
}

// WithPolicy adds a deny policy interceptor
func (b *ChainBuilder) WithPolicy(rules ...DenyRule) *ChainBuilder {
	return b.WithCustom(NewDenyInterceptor(rules...))
}

// WithAudit adds audit interceptor
func (b *ChainBuilder) WithAudit(publisher AuditPublisher, exchange, routingKey string) *ChainBuilder {
	return b.WithCustom(NewAuditInterceptor(publisher, exchange, routingKey).WithLogger(b.logger))
}

// WithCustom adds a custom interception
func (b *ChainBuilder) WithCustom(interception invocation.Interception) *ChainBuilder {
	b.interceptions = append(b.interceptions, interception)
	return b
}

// Len returns the number of interceptions added so far
func (b *ChainBuilder) Len() int {
	return len(b.interceptions)
}

// Build returns a copy of the assembled interception list
func (b *ChainBuilder) Build() []invocation.Interception {
	return slices.Clone(b.interceptions)
}

// BuildStack binds the assembled interceptions to a target and method
func (b *ChainBuilder) BuildStack(target any, method *invocation.Method) *invocation.InterceptorStack {
	return invocation.NewInterceptorStack(target, method, b.interceptions, invocation.WithLogger(b.logger))
}
