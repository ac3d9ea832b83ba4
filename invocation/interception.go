package invocation

import "fmt"

// Interception wraps one method invocation. Implementations call
// ic.Proceed() to continue the chain, or return without proceeding to
// short-circuit it.
type Interception interface {
	Invoke(ic InvocationContext) (any, error)
}

// InterceptionFunc is a function adapter for Interception
type InterceptionFunc func(ic InvocationContext) (any, error)

// Invoke implements Interception
func (f InterceptionFunc) Invoke(ic InvocationContext) (any, error) {
	return f(ic)
}

// Named is implemented by interceptions that report a name for diagnostics
type Named interface {
	Name() string
}

// NamedInterception is a function-based interception with a name
type NamedInterception struct {
	name string
	fn   func(ic InvocationContext) (any, error)
}

// NewNamedInterception creates a new function-based interception
func NewNamedInterception(name string, fn func(ic InvocationContext) (any, error)) *NamedInterception {
	return &NamedInterception{name: name, fn: fn}
}

// Invoke implements Interception
func (i *NamedInterception) Invoke(ic InvocationContext) (any, error) {
	return i.fn(ic)
}

// Name implements Named
func (i *NamedInterception) Name() string {
	return i.name
}

// NameOf returns the name of an interception, falling back to its type
func NameOf(i Interception) string {
	if n, ok := i.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", i)
}
