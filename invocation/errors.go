package invocation

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

var (
	// Argument errors
	ErrParameterMismatch = errors.New("invocation: parameters do not match method signature")

	// Lifecycle errors
	ErrContextTerminated    = errors.New("invocation: context already terminated")
	ErrUnsupportedOperation = errors.New("invocation: operation not supported for method invocations")

	// Descriptor errors
	ErrNilTarget    = errors.New("invocation: target is nil")
	ErrNilMethod    = errors.New("invocation: method is nil")
	ErrNoSuchMethod = errors.New("invocation: no such method")

	// Contract errors
	ErrContractViolation = errors.New("invocation: contract violation")
)

// ParameterMismatchError describes why SetParameters rejected a value set.
// Index is -1 when the arity is wrong.
type ParameterMismatchError struct {
	Method   string
	Index    int
	Expected int
	Got      int
	Want     reflect.Type
	Value    any
}

func (e *ParameterMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invocation: %s expects %d parameters, got %d", e.Method, e.Expected, e.Got)
	}
	return fmt.Sprintf("invocation: %s parameter %d: %T is not assignable to %v", e.Method, e.Index, e.Value, e.Want)
}

func (e *ParameterMismatchError) Unwrap() error {
	return ErrParameterMismatch
}

// InvocationTargetError wraps a failure raised by the target method itself.
// It is produced by the terminal call path only; Proceed unwraps it.
type InvocationTargetError struct {
	Method string
	Cause  any
}

func (e *InvocationTargetError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("invocation: %s failed", e.Method)
	}
	return fmt.Sprintf("invocation: %s failed: %v", e.Method, e.Cause)
}

func (e *InvocationTargetError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// FaultKind classifies unrecoverable faults.
type FaultKind int

const (
	// FaultTarget is a fatal failure raised by the target method.
	FaultTarget FaultKind = iota
	// FaultUnsupported signals an accessor used in the wrong invocation kind.
	FaultUnsupported
	// FaultContractViolation signals a bug in the collaborator layer.
	FaultContractViolation
)

func (k FaultKind) String() string {
	switch k {
	case FaultTarget:
		return "target"
	case FaultUnsupported:
		return "unsupported"
	case FaultContractViolation:
		return "contract-violation"
	default:
		return "unknown"
	}
}

// Fault is an unrecoverable failure. Faults travel as panics and are never
// returned as ordinary errors by this package.
type Fault struct {
	Kind  FaultKind
	Op    string
	Err   error
	Value any
}

func (f *Fault) Error() string {
	switch {
	case f.Err != nil && f.Value != nil:
		return fmt.Sprintf("invocation fault (%s) in %s: %v: %v", f.Kind, f.Op, f.Err, f.Value)
	case f.Err != nil:
		return fmt.Sprintf("invocation fault (%s) in %s: %v", f.Kind, f.Op, f.Err)
	default:
		return fmt.Sprintf("invocation fault (%s) in %s: %v", f.Kind, f.Op, f.Value)
	}
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFatal reports whether v belongs to the fatal fault category.
func IsFatal(v any) bool {
	switch f := v.(type) {
	case *Fault:
		return f != nil
	case runtime.Error:
		return true
	default:
		return false
	}
}

// unwrapCause turns the terminal call wrapper into the error Proceed returns.
// Fatal causes are re-panicked unchanged.
func unwrapCause(e *InvocationTargetError) error {
	cause := e.Cause
	if cause == nil {
		return e
	}
	if f, ok := cause.(*Fault); ok && f == nil {
		return e
	}
	if IsFatal(cause) {
		panic(cause)
	}
	if err, ok := cause.(error); ok {
		return err
	}
	panic(&Fault{
		Kind:  FaultContractViolation,
		Op:    e.Method,
		Err:   ErrContractViolation,
		Value: cause,
	})
}
