package invocation

import (
	"context"
	"log/slog"
	"slices"
)

// InterceptorStack binds a target, a method and an ordered list of
// interceptions. Each Invoke runs the chain once on a fresh context; the
// stack itself holds no per-call state and may be shared between goroutines.
type InterceptorStack struct {
	target        any
	method        *Method
	interceptions []Interception
	logger        *slog.Logger
}

// StackOption configures an InterceptorStack
type StackOption func(*InterceptorStack)

// WithLogger sets the logger handed to every invocation context
func WithLogger(logger *slog.Logger) StackOption {
	return func(s *InterceptorStack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewInterceptorStack creates a new interceptor stack
func NewInterceptorStack(target any, method *Method, interceptions []Interception, options ...StackOption) *InterceptorStack {
	s := &InterceptorStack{
		target:        target,
		method:        method,
		interceptions: slices.Clone(interceptions),
		logger:        slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Invoke calls the method with args through the interception chain and
// returns whatever the chain returns.
func (s *InterceptorStack) Invoke(ctx context.Context, args ...any) (any, error) {
	ic, err := NewFunctionalContext(ctx, s.target, s.method, s.interceptions, args...)
	if err != nil {
		return nil, err
	}
	ic.logger = s.logger
	defer ic.finish()

	ic.logger.Debug("starting invocation",
		"invocationId", ic.id,
		"method", s.method.name,
		"interceptions", len(s.interceptions),
	)

	return ic.Proceed()
}

// Len returns the number of interceptions in the stack
func (s *InterceptorStack) Len() int {
	return len(s.interceptions)
}
