package interceptors

import (
	"context"

	"github.com/glimte/interim-go/invocation"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// ContextDataKey is the key under which the attribute bag is stored
	ContextDataKey contextKey = "interim:invocation:data"
)

// ContextDataFromContext retrieves the invocation attribute bag from ctx
func ContextDataFromContext(ctx context.Context) (*invocation.ContextData, bool) {
	if ctx == nil {
		return nil, false
	}
	data, ok := ctx.Value(ContextDataKey).(*invocation.ContextData)
	return data, ok
}

// WithContextData stores the attribute bag in ctx
func WithContextData(ctx context.Context, data *invocation.ContextData) context.Context {
	return context.WithValue(ctx, ContextDataKey, data)
}

// ContextPropagationInterceptor exposes the attribute bag to methods that
// take a context.Context, through ContextDataFromContext.
type ContextPropagationInterceptor struct{}

// NewContextPropagationInterceptor creates a new context propagation interceptor
func NewContextPropagationInterceptor() *ContextPropagationInterceptor {
	return &ContextPropagationInterceptor{}
}

// Invoke implements invocation.Interception
func (i *ContextPropagationInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	if _, exists := ContextDataFromContext(ic.Context()); !exists {
		ic.SetContext(WithContextData(ic.Context(), ic.ContextData()))
	}
	return ic.Proceed()
}

// Name implements invocation.Named
func (i *ContextPropagationInterceptor) Name() string {
	return "ContextPropagationInterceptor"
}

// ContextEnrichmentInterceptor enriches the attribute bag before the method runs
type ContextEnrichmentInterceptor struct {
	enricher ContextEnricher
}

// ContextEnricher defines the interface for context enrichment
type ContextEnricher interface {
	Enrich(ctx context.Context, data *invocation.ContextData, method string, params []any) error
}

// ContextEnricherFunc is a function adapter for ContextEnricher
type ContextEnricherFunc func(ctx context.Context, data *invocation.ContextData, method string, params []any) error

// Enrich implements ContextEnricher
func (f ContextEnricherFunc) Enrich(ctx context.Context, data *invocation.ContextData, method string, params []any) error {
	return f(ctx, data, method, params)
}

// NewContextEnrichmentInterceptor creates a new context enrichment interceptor
func NewContextEnrichmentInterceptor(enricher ContextEnricher) *ContextEnrichmentInterceptor {
	return &ContextEnrichmentInterceptor{enricher: enricher}
}

// Invoke implements invocation.Interception
func (i *ContextEnrichmentInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	if err := i.enricher.Enrich(ic.Context(), ic.ContextData(), ic.Method().Name(), ic.Parameters()); err != nil {
		return nil, err
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *ContextEnrichmentInterceptor) Name() string {
	return "ContextEnrichmentInterceptor"
}
