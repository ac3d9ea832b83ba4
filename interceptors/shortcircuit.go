package interceptors

import (
	"context"
	"fmt"
	"strings"

	"github.com/glimte/interim-go/invocation"
)

// ShortCircuitInterceptor can end the chain early with a result of its own
type ShortCircuitInterceptor struct {
	evaluator ShortCircuitEvaluator
}

// ShortCircuitEvaluator determines if the chain should be short-circuited
type ShortCircuitEvaluator interface {
	// ShouldShortCircuit returns true if the chain should stop here, along
	// with the result handed back to the caller.
	ShouldShortCircuit(ic invocation.InvocationContext) (bool, any, error)
}

// ShortCircuitEvaluatorFunc is a function adapter for ShortCircuitEvaluator
type ShortCircuitEvaluatorFunc func(ic invocation.InvocationContext) (bool, any, error)

// ShouldShortCircuit implements ShortCircuitEvaluator
func (f ShortCircuitEvaluatorFunc) ShouldShortCircuit(ic invocation.InvocationContext) (bool, any, error) {
	return f(ic)
}

// NewShortCircuitInterceptor creates a new short-circuit interceptor
func NewShortCircuitInterceptor(evaluator ShortCircuitEvaluator) *ShortCircuitInterceptor {
	return &ShortCircuitInterceptor{evaluator: evaluator}
}

// Invoke implements invocation.Interception
func (i *ShortCircuitInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	shouldShortCircuit, result, err := i.evaluator.ShouldShortCircuit(ic)
	if err != nil {
		return nil, err
	}

	if shouldShortCircuit {
		return result, nil
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *ShortCircuitInterceptor) Name() string {
	return "ShortCircuitInterceptor"
}

// ResultCache defines the interface for invocation result caching
type ResultCache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// CachingInterceptor returns a cached result when one exists for the same
// method and arguments. Only successful results are stored.
type CachingInterceptor struct {
	cache ResultCache
}

// NewCachingInterceptor creates a new caching interceptor
func NewCachingInterceptor(cache ResultCache) *CachingInterceptor {
	return &CachingInterceptor{cache: cache}
}

// Invoke implements invocation.Interception
func (i *CachingInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	ctx := ic.Context()
	cacheKey := CacheKey(ic)

	cached, found, err := i.cache.Get(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	if found {
		return cached, nil
	}

	result, err := ic.Proceed()
	if err != nil {
		return nil, err
	}

	// a failed write only costs a future miss
	_ = i.cache.Set(ctx, cacheKey, result)

	return result, nil
}

// Name implements invocation.Named
func (i *CachingInterceptor) Name() string {
	return "CachingInterceptor"
}

// CacheKey derives a cache key from the target type, method and current
// arguments of an invocation.
func CacheKey(ic invocation.InvocationContext) string {
	var b strings.Builder
	b.WriteString(targetName(ic))
	b.WriteByte('.')
	b.WriteString(ic.Method().Name())
	b.WriteByte('(')
	for n, p := range ic.Parameters() {
		if n > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%#v", p)
	}
	b.WriteByte(')')
	return b.String()
}

// FallbackInterceptor replaces selected failures with a fallback result
type FallbackInterceptor struct {
	errorEvaluator ErrorEvaluator
}

// ErrorEvaluator determines if an error should be replaced by a result
type ErrorEvaluator interface {
	Fallback(err error) (bool, any)
}

// ErrorEvaluatorFunc is a function adapter for ErrorEvaluator
type ErrorEvaluatorFunc func(err error) (bool, any)

// Fallback implements ErrorEvaluator
func (f ErrorEvaluatorFunc) Fallback(err error) (bool, any) {
	return f(err)
}

// NewFallbackInterceptor creates a new fallback interceptor
func NewFallbackInterceptor(errorEvaluator ErrorEvaluator) *FallbackInterceptor {
	return &FallbackInterceptor{errorEvaluator: errorEvaluator}
}

// Invoke implements invocation.Interception
func (i *FallbackInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	result, err := ic.Proceed()
	if err != nil {
		if ok, fallback := i.errorEvaluator.Fallback(err); ok {
			return fallback, nil
		}
	}
	return result, err
}

// Name implements invocation.Named
func (i *FallbackInterceptor) Name() string {
	return "FallbackInterceptor"
}
