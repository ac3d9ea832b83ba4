package interceptors

import (
	"fmt"
	"regexp"

	"github.com/glimte/interim-go/invocation"
)

// MethodFilter decides whether an interception applies to an invocation
type MethodFilter interface {
	// ShouldApply returns true if the wrapped interception should run
	ShouldApply(ic invocation.InvocationContext) (bool, error)
}

// MethodFilterFunc is a function adapter for MethodFilter
type MethodFilterFunc func(ic invocation.InvocationContext) (bool, error)

// ShouldApply implements MethodFilter
func (f MethodFilterFunc) ShouldApply(ic invocation.InvocationContext) (bool, error) {
	return f(ic)
}

// ConditionalInterceptor runs an interception only if a condition is met.
// Otherwise the chain simply proceeds.
type ConditionalInterceptor struct {
	condition    MethodFilter
	interception invocation.Interception
}

// NewConditionalInterceptor creates a new conditional interceptor
func NewConditionalInterceptor(condition MethodFilter, interception invocation.Interception) *ConditionalInterceptor {
	return &ConditionalInterceptor{
		condition:    condition,
		interception: interception,
	}
}

// Invoke implements invocation.Interception
func (i *ConditionalInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	shouldApply, err := i.condition.ShouldApply(ic)
	if err != nil {
		return nil, fmt.Errorf("filter error: %w", err)
	}

	if shouldApply {
		return i.interception.Invoke(ic)
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *ConditionalInterceptor) Name() string {
	return fmt.Sprintf("ConditionalInterceptor[%s]", invocation.NameOf(i.interception))
}

// CompositeFilter combines multiple filters with AND logic
type CompositeFilter struct {
	filters []MethodFilter
}

// NewCompositeFilter creates a new composite filter
func NewCompositeFilter(filters ...MethodFilter) *CompositeFilter {
	return &CompositeFilter{filters: filters}
}

// ShouldApply implements MethodFilter - all filters must return true
func (f *CompositeFilter) ShouldApply(ic invocation.InvocationContext) (bool, error) {
	for _, filter := range f.filters {
		ok, err := filter.ShouldApply(ic)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// OrFilter combines multiple filters with OR logic
type OrFilter struct {
	filters []MethodFilter
}

// NewOrFilter creates a new OR filter
func NewOrFilter(filters ...MethodFilter) *OrFilter {
	return &OrFilter{filters: filters}
}

// ShouldApply implements MethodFilter - at least one filter must return true
func (f *OrFilter) ShouldApply(ic invocation.InvocationContext) (bool, error) {
	for _, filter := range f.filters {
		ok, err := filter.ShouldApply(ic)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MethodNameFilter matches invocations by method name
type MethodNameFilter struct {
	names map[string]bool
}

// NewMethodNameFilter creates a filter that only matches the given methods
func NewMethodNameFilter(names ...string) *MethodNameFilter {
	nameMap := make(map[string]bool)
	for _, n := range names {
		nameMap[n] = true
	}
	return &MethodNameFilter{names: nameMap}
}

// ShouldApply implements MethodFilter
func (f *MethodNameFilter) ShouldApply(ic invocation.InvocationContext) (bool, error) {
	return f.names[ic.Method().Name()], nil
}

// MethodPatternFilter matches invocations whose method name matches a pattern
type MethodPatternFilter struct {
	pattern *regexp.Regexp
}

// NewMethodPatternFilter compiles pattern into a filter
func NewMethodPatternFilter(pattern string) (*MethodPatternFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("method pattern %q: %w", pattern, err)
	}
	return &MethodPatternFilter{pattern: re}, nil
}

// ShouldApply implements MethodFilter
func (f *MethodPatternFilter) ShouldApply(ic invocation.InvocationContext) (bool, error) {
	return f.pattern.MatchString(ic.Method().Name()), nil
}

// ContextDataFilter matches on a value in the attribute bag
type ContextDataFilter struct {
	key           string
	expectedValue any
}

// NewContextDataFilter creates a filter that checks an attribute value
func NewContextDataFilter(key string, expectedValue any) *ContextDataFilter {
	return &ContextDataFilter{
		key:           key,
		expectedValue: expectedValue,
	}
}

// ShouldApply implements MethodFilter
func (f *ContextDataFilter) ShouldApply(ic invocation.InvocationContext) (bool, error) {
	value, exists := ic.ContextData().Get(f.key)
	if !exists {
		return false, nil
	}

	return value == f.expectedValue, nil
}
