package config

import (
	"errors"
	"log/slog"

	"github.com/glimte/interim-go/interceptors"
	"github.com/glimte/interim-go/internal/reliability"
	"github.com/glimte/interim-go/invocation"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoAuditPublisher is returned when audit is enabled without a publisher
var ErrNoAuditPublisher = errors.New("config: audit enabled but no publisher supplied")

// Deps are the runtime collaborators a chain may need
type Deps struct {
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Publisher interceptors.AuditPublisher
	Listeners []reliability.StateChangeListener
	// SyncListeners notifies Listeners before the failing call returns,
	// for short-lived processes that exit right after one invocation.
	SyncListeners bool
}

// Build assembles the configured interceptions in a fixed order: deny
// policy, logging, tracing, audit, circuit breaker.
func Build(cfg *Config, deps Deps) ([]invocation.Interception, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := interceptors.NewChainBuilder(logger)

	rules, err := cfg.Policy.DenyRules()
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		builder.WithPolicy(rules...)
	}

	if cfg.Logging.Enabled {
		level, err := ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		builder.WithCustom(interceptors.NewLoggingInterceptor(logger).WithLevel(level))
	}

	if cfg.Tracing.Enabled {
		builder.WithTracing(deps.Tracer)
	}

	if cfg.Audit.Enabled {
		if deps.Publisher == nil {
			return nil, ErrNoAuditPublisher
		}
		builder.WithAudit(deps.Publisher, cfg.Audit.Exchange, cfg.Audit.RoutingKey)
	}

	if cb := cfg.CircuitBreaker; cb.Enabled {
		opts := []reliability.CircuitBreakerOption{
			reliability.WithName(cb.Name),
			reliability.WithFailureThreshold(cb.FailureThreshold),
			reliability.WithSuccessThreshold(cb.SuccessThreshold),
			reliability.WithTimeout(cb.Timeout),
			reliability.WithHalfOpenRequests(cb.HalfOpenRequests),
		}
		if deps.SyncListeners {
			opts = append(opts, reliability.WithSyncListeners())
		}
		breaker := reliability.NewCircuitBreaker(opts...)
		for _, l := range deps.Listeners {
			breaker.AddListener(l)
		}
		builder.WithCircuitBreaker(breaker)
	}

	return builder.Build(), nil
}
