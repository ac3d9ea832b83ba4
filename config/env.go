package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DenyFromEnvRule names the rule built from INTERIM_POLICY_DENY_METHODS
const DenyFromEnvRule = "env"

// overrides holds raw env values. Fields start from the current
// configuration, so unset variables leave it unchanged.
type overrides struct {
	LoggingEnabled   bool          `env:"INTERIM_LOGGING_ENABLED"`
	LogLevel         string        `env:"INTERIM_LOG_LEVEL"`
	TracingEnabled   bool          `env:"INTERIM_TRACING_ENABLED"`
	TracingEndpoint  string        `env:"INTERIM_OTEL_ENDPOINT"`
	BreakerEnabled   bool          `env:"INTERIM_CIRCUIT_BREAKER_ENABLED"`
	BreakerName      string        `env:"INTERIM_CIRCUIT_BREAKER_NAME"`
	BreakerFailures  int           `env:"INTERIM_CIRCUIT_BREAKER_FAILURE_THRESHOLD"`
	BreakerSuccesses int           `env:"INTERIM_CIRCUIT_BREAKER_SUCCESS_THRESHOLD"`
	BreakerTimeout   time.Duration `env:"INTERIM_CIRCUIT_BREAKER_TIMEOUT"`
	BreakerHalfOpen  int           `env:"INTERIM_CIRCUIT_BREAKER_HALF_OPEN_REQUESTS"`
	AuditEnabled     bool          `env:"INTERIM_AUDIT_ENABLED"`
	AuditURL         string        `env:"INTERIM_AUDIT_AMQP_URL"`
	AuditExchange    string        `env:"INTERIM_AUDIT_EXCHANGE"`
	AuditRoutingKey  string        `env:"INTERIM_AUDIT_ROUTING_KEY"`
	DenyMethods      []string      `env:"INTERIM_POLICY_DENY_METHODS" envSeparator:","`
}

// ApplyEnv overrides c from INTERIM_* environment variables and validates
// the result.
func ApplyEnv(c *Config) error {
	return applyEnv(c, env.Options{})
}

func applyEnv(c *Config, opts env.Options) error {
	raw := overrides{
		LoggingEnabled:   c.Logging.Enabled,
		LogLevel:         c.Logging.Level,
		TracingEnabled:   c.Tracing.Enabled,
		TracingEndpoint:  c.Tracing.Endpoint,
		BreakerEnabled:   c.CircuitBreaker.Enabled,
		BreakerName:      c.CircuitBreaker.Name,
		BreakerFailures:  c.CircuitBreaker.FailureThreshold,
		BreakerSuccesses: c.CircuitBreaker.SuccessThreshold,
		BreakerTimeout:   c.CircuitBreaker.Timeout,
		BreakerHalfOpen:  c.CircuitBreaker.HalfOpenRequests,
		AuditEnabled:     c.Audit.Enabled,
		AuditURL:         c.Audit.URL,
		AuditExchange:    c.Audit.Exchange,
		AuditRoutingKey:  c.Audit.RoutingKey,
	}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	c.Logging = LoggingConfig{Enabled: raw.LoggingEnabled, Level: raw.LogLevel}
	c.Tracing = TracingConfig{Enabled: raw.TracingEnabled, Endpoint: raw.TracingEndpoint}
	c.CircuitBreaker = CircuitBreakerConfig{
		Enabled:          raw.BreakerEnabled,
		Name:             raw.BreakerName,
		FailureThreshold: raw.BreakerFailures,
		SuccessThreshold: raw.BreakerSuccesses,
		Timeout:          raw.BreakerTimeout,
		HalfOpenRequests: raw.BreakerHalfOpen,
	}
	c.Audit = AuditConfig{
		Enabled:    raw.AuditEnabled,
		URL:        raw.AuditURL,
		Exchange:   raw.AuditExchange,
		RoutingKey: raw.AuditRoutingKey,
	}
	if len(raw.DenyMethods) > 0 {
		c.Policy.Rules = append(c.Policy.Rules, Rule{Name: DenyFromEnvRule, Methods: raw.DenyMethods})
	}

	return c.Validate()
}
