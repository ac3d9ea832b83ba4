package interceptors

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/glimte/interim-go/invocation"
)

// ErrDenied is returned when a policy rule rejects an invocation
var ErrDenied = errors.New("interceptors: invocation denied by policy")

// DeniedError names the rule that rejected an invocation
type DeniedError struct {
	Rule   string
	Method string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("invocation of %s denied by rule %q", e.Method, e.Rule)
}

func (e *DeniedError) Unwrap() error {
	return ErrDenied
}

// DenyRule rejects methods by exact name or by pattern
type DenyRule struct {
	Name     string
	Methods  []string
	Patterns []*regexp.Regexp
}

// Matches reports whether the rule applies to method
func (r DenyRule) Matches(method string) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	for _, p := range r.Patterns {
		if p.MatchString(method) {
			return true
		}
	}
	return false
}

// DenyInterceptor short-circuits invocations of methods matched by a rule
type DenyInterceptor struct {
	rules []DenyRule
}

// NewDenyInterceptor creates a new deny interceptor
func NewDenyInterceptor(rules ...DenyRule) *DenyInterceptor {
	return &DenyInterceptor{rules: rules}
}

// Invoke implements invocation.Interception
func (i *DenyInterceptor) Invoke(ic invocation.InvocationContext) (any, error) {
	method := ic.Method().Name()
	for _, rule := range i.rules {
		if rule.Matches(method) {
			return nil, &DeniedError{Rule: rule.Name, Method: method}
		}
	}

	return ic.Proceed()
}

// Name implements invocation.Named
func (i *DenyInterceptor) Name() string {
	return "DenyInterceptor"
}
