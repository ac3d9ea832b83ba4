package invocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// InvocationContext is the view of one in-flight method call handed to every
// interception in the chain.
type InvocationContext interface {
	// ID identifies this invocation
	ID() string
	// Context returns the context the invocation was started with
	Context() context.Context
	// SetContext replaces the context passed on to the method
	SetContext(ctx context.Context)
	// Target returns the receiver of the method
	Target() any
	// Method returns the method being invoked
	Method() *Method
	// Parameters returns the live argument slice
	Parameters() []any
	// SetParameters overwrites the argument values in place
	SetParameters(params []any) error
	// ContextData returns the attribute bag shared by the chain
	ContextData() *ContextData
	// Proceed runs the next interception, or the method once the chain is exhausted
	Proceed() (any, error)
	// Constructor is not available for method invocations and always panics
	Constructor() any
	// Timer is always nil for method invocations
	Timer() any

	fmt.Stringer
}

// State is the position of a context in the chain
type State int

const (
	StatePending State = iota
	StateExhausted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExhausted:
		return "exhausted"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// FunctionalContext is the InvocationContext used by InterceptorStack.
type FunctionalContext struct {
	id            string
	ctx           context.Context
	target        any
	method        *Method
	parameters    []any
	contextData   *ContextData
	interceptions []Interception
	cursor        int
	terminated    bool
	logger        *slog.Logger
}

// NewFunctionalContext creates a context for a single call of method on target.
// The arguments are checked against the declared parameter types.
func NewFunctionalContext(ctx context.Context, target any, method *Method, interceptions []Interception, args ...any) (*FunctionalContext, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if method == nil {
		return nil, ErrNilMethod
	}
	if ctx == nil {
		ctx = context.Background()
	}

	parameters := make([]any, method.NumParams())
	if err := Overwrite(args, parameters, method.paramTypes); err != nil {
		return nil, withMethod(err, method.name)
	}

	return &FunctionalContext{
		id:            uuid.New().String(),
		ctx:           ctx,
		target:        target,
		method:        method,
		parameters:    parameters,
		contextData:   NewContextData(),
		interceptions: interceptions,
		logger:        slog.Default(),
	}, nil
}

// ID implements InvocationContext
func (c *FunctionalContext) ID() string {
	return c.id
}

// Context implements InvocationContext
func (c *FunctionalContext) Context() context.Context {
	return c.ctx
}

// SetContext implements InvocationContext
func (c *FunctionalContext) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Target implements InvocationContext
func (c *FunctionalContext) Target() any {
	return c.target
}

// Method implements InvocationContext
func (c *FunctionalContext) Method() *Method {
	return c.method
}

// Parameters implements InvocationContext
func (c *FunctionalContext) Parameters() []any {
	return c.parameters
}

// SetParameters implements InvocationContext
func (c *FunctionalContext) SetParameters(params []any) error {
	if err := Overwrite(params, c.parameters, c.method.paramTypes); err != nil {
		return withMethod(err, c.method.name)
	}
	return nil
}

// ContextData implements InvocationContext
func (c *FunctionalContext) ContextData() *ContextData {
	return c.contextData
}

// Timer implements InvocationContext
func (c *FunctionalContext) Timer() any {
	return nil
}

// Constructor implements InvocationContext
func (c *FunctionalContext) Constructor() any {
	panic(&Fault{Kind: FaultUnsupported, Op: "Constructor", Err: ErrUnsupportedOperation})
}

// State returns where the context stands in the chain
func (c *FunctionalContext) State() State {
	switch {
	case c.terminated:
		return StateTerminated
	case c.cursor < len(c.interceptions):
		return StatePending
	default:
		return StateExhausted
	}
}

// Proceed implements InvocationContext
func (c *FunctionalContext) Proceed() (any, error) {
	if c.terminated {
		return nil, ErrContextTerminated
	}

	if c.cursor < len(c.interceptions) {
		next := c.interceptions[c.cursor]
		c.cursor++
		return next.Invoke(c)
	}

	c.terminated = true
	// Handlers may have written into the live slice behind SetParameters.
	if err := conforms(c.method.name, c.parameters, c.method.paramTypes); err != nil {
		return nil, err
	}

	c.logger.Debug("invoking target method",
		"invocationId", c.id,
		"method", c.method.name,
		"target", fmt.Sprintf("%T", c.target),
	)

	result, err := c.method.call(c.ctx, c.target, c.parameters)
	if err != nil {
		if targetErr, ok := err.(*InvocationTargetError); ok {
			return nil, unwrapCause(targetErr)
		}
		return nil, err
	}
	return result, nil
}

// finish marks the context as spent once the outermost Proceed has returned
func (c *FunctionalContext) finish() {
	c.terminated = true
}

func (c *FunctionalContext) String() string {
	methodName := ""
	if c.method != nil {
		methodName = c.method.name
	}
	return fmt.Sprintf("InvocationContext(target=%T, method=%s)", c.target, methodName)
}

func withMethod(err error, method string) error {
	var mismatch *ParameterMismatchError
	if errors.As(err, &mismatch) {
		mismatch.Method = method
	}
	return err
}

var _ InvocationContext = (*FunctionalContext)(nil)
