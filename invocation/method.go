package invocation

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Invoker performs the low-level call of a method on its target.
type Invoker func(ctx context.Context, target any, args []any) (any, error)

// Method describes the operation an invocation ends in: its name, its
// declared parameter types and the bound invoker that calls it.
type Method struct {
	name       string
	paramTypes []reflect.Type
	invoke     Invoker
}

// NewMethod creates a method descriptor around an explicit invoker
func NewMethod(name string, paramTypes []reflect.Type, invoke Invoker) *Method {
	return &Method{
		name:       name,
		paramTypes: slices.Clone(paramTypes),
		invoke:     invoke,
	}
}

// Name returns the method name
func (m *Method) Name() string {
	return m.name
}

// ParamTypes returns a copy of the declared parameter types
func (m *Method) ParamTypes() []reflect.Type {
	return slices.Clone(m.paramTypes)
}

// NumParams returns the declared parameter count
func (m *Method) NumParams() int {
	return len(m.paramTypes)
}

// call is the terminal dynamic call path. Every failure raised by the
// invoker, returned or panicked, comes back wrapped in exactly one
// *InvocationTargetError.
func (m *Method) call(ctx context.Context, target any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &InvocationTargetError{Method: m.name, Cause: m.panicCause(r)}
		}
	}()

	result, err = m.invoke(ctx, target, args)
	if err != nil {
		return nil, &InvocationTargetError{Method: m.name, Cause: err}
	}
	return result, nil
}

// panicCause classifies a recovered panic. A panicked error is always
// fatal; any other value is left as is and surfaces as a contract violation.
func (m *Method) panicCause(r any) any {
	if IsFatal(r) {
		return r
	}
	if err, ok := r.(error); ok {
		return &Fault{Kind: FaultTarget, Op: m.name, Err: err}
	}
	return r
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// MethodByName builds a descriptor for an exported method of target using
// reflection. A leading context.Context parameter is filled from the
// invocation context and is not part of the declared parameters. The method
// may return nothing, a value, an error, or a value and an error.
func MethodByName(target any, name string) (*Method, error) {
	if target == nil {
		return nil, ErrNilTarget
	}

	mv := reflect.ValueOf(target).MethodByName(name)
	if !mv.IsValid() {
		return nil, fmt.Errorf("%w: %T.%s", ErrNoSuchMethod, target, name)
	}

	mt := mv.Type()
	if err := checkResults(mt); err != nil {
		return nil, fmt.Errorf("method %T.%s: %w", target, name, err)
	}

	takesContext := mt.NumIn() > 0 && mt.In(0) == contextType
	first := 0
	if takesContext {
		first = 1
	}

	paramTypes := make([]reflect.Type, 0, mt.NumIn()-first)
	for i := first; i < mt.NumIn(); i++ {
		paramTypes = append(paramTypes, mt.In(i))
	}

	invoke := func(ctx context.Context, recv any, args []any) (any, error) {
		fn := reflect.ValueOf(recv).MethodByName(name)
		if !fn.IsValid() {
			return nil, fmt.Errorf("%w: %T.%s", ErrNoSuchMethod, recv, name)
		}

		in := make([]reflect.Value, 0, len(args)+first)
		if takesContext {
			if ctx == nil {
				ctx = context.Background()
			}
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, arg := range args {
			if arg == nil {
				in = append(in, reflect.Zero(paramTypes[i]))
				continue
			}
			in = append(in, reflect.ValueOf(arg))
		}

		var out []reflect.Value
		if mt.IsVariadic() {
			out = fn.CallSlice(in)
		} else {
			out = fn.Call(in)
		}
		return splitResults(out)
	}

	return NewMethod(name, paramTypes, invoke), nil
}

func checkResults(mt reflect.Type) error {
	switch mt.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if mt.Out(1) != errorType {
			return fmt.Errorf("%w: second result must be error", ErrContractViolation)
		}
		return nil
	default:
		return fmt.Errorf("%w: too many results (%d)", ErrContractViolation, mt.NumOut())
	}
}

func splitResults(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
