// Package config describes interception chains declaratively. A chain is
// loaded from YAML, overridden from the environment and assembled with Build.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/glimte/interim-go/interceptors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level YAML structure
type Config struct {
	Logging        LoggingConfig        `yaml:"logging"`
	Tracing        TracingConfig        `yaml:"tracing"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Policy         PolicyConfig         `yaml:"policy"`
	Audit          AuditConfig          `yaml:"audit"`
}

// LoggingConfig controls the logging interceptor and the log level
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// TracingConfig controls the tracing interceptor. Endpoint is an OTLP/HTTP
// URL; without it spans are recorded but never exported.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// CircuitBreakerConfig configures the circuit breaker interceptor
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Name             string        `yaml:"name"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
	HalfOpenRequests int           `yaml:"half_open_requests"`
}

// PolicyConfig lists the deny rules
type PolicyConfig struct {
	Rules []Rule `yaml:"rules"`
}

// Rule rejects methods by exact name or regular expression
type Rule struct {
	Name     string   `yaml:"name"`
	Methods  []string `yaml:"methods"`
	Patterns []string `yaml:"patterns"`
}

// AuditConfig configures the audit interceptor
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		CircuitBreaker: CircuitBreakerConfig{
			Name:             "default",
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Timeout:          30 * time.Second,
			HalfOpenRequests: 3,
		},
		Audit: AuditConfig{
			Exchange:   "interim.audit",
			RoutingKey: "invocations",
		},
	}
}

// Load reads a YAML file on top of Default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cb := c.CircuitBreaker; cb.Enabled {
		switch {
		case cb.FailureThreshold <= 0:
			return fmt.Errorf("%w: circuit_breaker.failure_threshold must be positive", ErrInvalidConfig)
		case cb.SuccessThreshold <= 0:
			return fmt.Errorf("%w: circuit_breaker.success_threshold must be positive", ErrInvalidConfig)
		case cb.Timeout <= 0:
			return fmt.Errorf("%w: circuit_breaker.timeout must be positive", ErrInvalidConfig)
		case cb.HalfOpenRequests <= 0:
			return fmt.Errorf("%w: circuit_breaker.half_open_requests must be positive", ErrInvalidConfig)
		}
	}

	if t := c.Tracing; t.Endpoint != "" {
		if u, err := url.Parse(t.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: tracing.endpoint %q must be an absolute URL", ErrInvalidConfig, t.Endpoint)
		}
	}

	if c.Audit.Enabled && c.Audit.Exchange == "" && c.Audit.RoutingKey == "" {
		return fmt.Errorf("%w: audit needs an exchange or a routing key", ErrInvalidConfig)
	}

	if _, err := c.Policy.DenyRules(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DenyRules compiles the configured rules
func (p PolicyConfig) DenyRules() ([]interceptors.DenyRule, error) {
	rules := make([]interceptors.DenyRule, 0, len(p.Rules))
	for _, r := range p.Rules {
		if r.Name == "" {
			return nil, errors.New("policy rule without a name")
		}
		if len(r.Methods) == 0 && len(r.Patterns) == 0 {
			return nil, fmt.Errorf("rule %q matches nothing", r.Name)
		}

		rule := interceptors.DenyRule{Name: r.Name, Methods: r.Methods}
		for _, pattern := range r.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q pattern %q: %w", r.Name, pattern, err)
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseLevel converts a level name such as "debug" or "WARN" into a
// slog.Level. An empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}
