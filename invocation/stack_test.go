package invocation

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCalculator struct {
	mock.Mock
}

func (m *mockCalculator) Add(a, b int) int {
	args := m.Called(a, b)
	return args.Int(0)
}

func (m *mockCalculator) Divide(a, b int) (int, error) {
	args := m.Called(a, b)
	return args.Int(0), args.Error(1)
}

func mustMethod(t *testing.T, target any, name string) *Method {
	t.Helper()
	method, err := MethodByName(target, name)
	require.NoError(t, err)
	return method
}

func recording(name string, calls *[]string) Interception {
	return NewNamedInterception(name, func(ic InvocationContext) (any, error) {
		*calls = append(*calls, name)
		return ic.Proceed()
	})
}

func capturePanic(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}

func intMethod(name string, fn func(a, b int) (int, error)) *Method {
	types := []reflect.Type{reflect.TypeFor[int](), reflect.TypeFor[int]()}
	return NewMethod(name, types, func(ctx context.Context, target any, args []any) (any, error) {
		return fn(args[0].(int), args[1].(int))
	})
}

func TestInterceptorStack(t *testing.T) {
	t.Run("empty chain calls the method once with unchanged args", func(t *testing.T) {
		calc := &mockCalculator{}
		calc.On("Add", 2, 3).Return(5).Once()

		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), nil)
		result, err := stack.Invoke(context.Background(), 2, 3)

		require.NoError(t, err)
		assert.Equal(t, 5, result)
		calc.AssertExpectations(t)
		calc.AssertNumberOfCalls(t, "Add", 1)
	})

	t.Run("pass-through interceptions run once each in list order", func(t *testing.T) {
		calc := &mockCalculator{}
		calc.On("Add", 1, 1).Return(2).Once()

		var calls []string
		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{
			recording("first", &calls),
			recording("second", &calls),
			recording("third", &calls),
		})

		result, err := stack.Invoke(context.Background(), 1, 1)

		require.NoError(t, err)
		assert.Equal(t, 2, result)
		assert.Equal(t, []string{"first", "second", "third"}, calls)
		calc.AssertNumberOfCalls(t, "Add", 1)
	})

	t.Run("short-circuit skips later interceptions and the method", func(t *testing.T) {
		calc := &mockCalculator{}

		var calls []string
		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{
			recording("first", &calls),
			NewNamedInterception("cache", func(ic InvocationContext) (any, error) {
				calls = append(calls, "cache")
				return 42, nil
			}),
			recording("third", &calls),
		})

		result, err := stack.Invoke(context.Background(), 1, 1)

		require.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, []string{"first", "cache"}, calls)
		calc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("log and single attempt retry both run once around the method", func(t *testing.T) {
		calc := &mockCalculator{}
		calc.On("Add", 2, 3).Return(5).Once()

		logCalls, retryCalls := 0, 0
		logBefore := NewNamedInterception("LogBefore", func(ic InvocationContext) (any, error) {
			logCalls++
			return ic.Proceed()
		})
		retry := NewNamedInterception("Retry", func(ic InvocationContext) (any, error) {
			retryCalls++
			const maxAttempts = 1
			var lastErr error
			for attempt := 0; attempt < maxAttempts; attempt++ {
				result, err := ic.Proceed()
				if err == nil {
					return result, nil
				}
				lastErr = err
			}
			return nil, lastErr
		})

		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{logBefore, retry})
		result, err := stack.Invoke(context.Background(), 2, 3)

		require.NoError(t, err)
		assert.Equal(t, 5, result)
		assert.Equal(t, 1, logCalls)
		assert.Equal(t, 1, retryCalls)
		calc.AssertExpectations(t)
	})

	t.Run("rewritten arguments reach the method", func(t *testing.T) {
		calc := &mockCalculator{}
		calc.On("Add", 20, 30).Return(50).Once()

		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				if err := ic.SetParameters([]any{20, 30}); err != nil {
					return nil, err
				}
				return ic.Proceed()
			}),
		})

		result, err := stack.Invoke(context.Background(), 2, 3)

		require.NoError(t, err)
		assert.Equal(t, 50, result)
		calc.AssertExpectations(t)
	})

	t.Run("method error is returned as is", func(t *testing.T) {
		calc := &mockCalculator{}
		divErr := errors.New("div by zero")
		calc.On("Divide", 1, 0).Return(0, divErr)

		var seen error
		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Divide"), []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				result, err := ic.Proceed()
				seen = err
				return result, err
			}),
		})

		result, err := stack.Invoke(context.Background(), 1, 0)

		assert.Nil(t, result)
		assert.Same(t, divErr, err)
		assert.EqualError(t, err, "div by zero")
		assert.Same(t, divErr, seen)

		var targetErr *InvocationTargetError
		assert.False(t, errors.As(err, &targetErr))
	})

	t.Run("interception errors are not unwrapped", func(t *testing.T) {
		calc := &mockCalculator{}
		wrapped := &InvocationTargetError{Method: "Add", Cause: errors.New("inner")}

		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				return nil, wrapped
			}),
		})

		_, err := stack.Invoke(context.Background(), 1, 2)

		assert.Same(t, wrapped, err)
		calc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("runtime panic in the method is re-panicked unchanged", func(t *testing.T) {
		method := intMethod("Explode", func(a, b int) (int, error) {
			var m map[int]int
			m[a] = b
			return 0, nil
		})

		handlerSawError := false
		stack := NewInterceptorStack(&struct{}{}, method, []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				result, err := ic.Proceed()
				handlerSawError = err != nil
				return result, err
			}),
		})

		recovered := capturePanic(func() {
			_, _ = stack.Invoke(context.Background(), 1, 2)
		})

		_, isRuntime := recovered.(runtime.Error)
		assert.True(t, isRuntime, "expected runtime.Error, got %T", recovered)
		assert.False(t, handlerSawError)
	})

	t.Run("panicked error becomes a target fault", func(t *testing.T) {
		boom := errors.New("out of memory")
		method := intMethod("Allocate", func(a, b int) (int, error) {
			panic(boom)
		})

		stack := NewInterceptorStack(&struct{}{}, method, nil)
		recovered := capturePanic(func() {
			_, _ = stack.Invoke(context.Background(), 1, 2)
		})

		fault, ok := recovered.(*Fault)
		require.True(t, ok, "expected *Fault, got %T", recovered)
		assert.Equal(t, FaultTarget, fault.Kind)
		assert.ErrorIs(t, fault, boom)
	})

	t.Run("fault returned by the method is re-panicked", func(t *testing.T) {
		fatal := &Fault{Kind: FaultTarget, Op: "Add", Err: errors.New("assertion failed")}
		method := intMethod("Add", func(a, b int) (int, error) {
			return 0, fatal
		})

		stack := NewInterceptorStack(&struct{}{}, method, nil)
		recovered := capturePanic(func() {
			_, _ = stack.Invoke(context.Background(), 1, 2)
		})

		assert.Same(t, fatal, recovered)
	})

	t.Run("non-error panic is a contract violation", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) {
			panic(42)
		})

		stack := NewInterceptorStack(&struct{}{}, method, nil)
		recovered := capturePanic(func() {
			_, _ = stack.Invoke(context.Background(), 1, 2)
		})

		fault, ok := recovered.(*Fault)
		require.True(t, ok, "expected *Fault, got %T", recovered)
		assert.Equal(t, FaultContractViolation, fault.Kind)
		assert.Equal(t, 42, fault.Value)
		assert.ErrorIs(t, fault, ErrContractViolation)
	})

	t.Run("attributes flow forward and back through the chain", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) { return a + b, nil })

		var innerSaw any
		var outerSaw any
		stack := NewInterceptorStack(&struct{}{}, method, []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				ic.ContextData().Set("user", "alice")
				result, err := ic.Proceed()
				outerSaw, _ = ic.ContextData().Get("audited")
				return result, err
			}),
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				innerSaw, _ = ic.ContextData().Get("user")
				ic.ContextData().Set("audited", true)
				return ic.Proceed()
			}),
		})

		result, err := stack.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 3, result)
		assert.Equal(t, "alice", innerSaw)
		assert.Equal(t, true, outerSaw)
	})

	t.Run("incompatible arguments are rejected before the chain runs", func(t *testing.T) {
		calc := &mockCalculator{}
		var calls []string
		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{recording("first", &calls)})

		_, err := stack.Invoke(context.Background(), "two", 3)

		assert.ErrorIs(t, err, ErrParameterMismatch)
		assert.Empty(t, calls)
		calc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("wrongly typed value written into live parameters fails normally", func(t *testing.T) {
		calc := &mockCalculator{}
		stack := NewInterceptorStack(calc, mustMethod(t, calc, "Add"), []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				ic.Parameters()[0] = "oops"
				return ic.Proceed()
			}),
		})

		var err error
		assert.NotPanics(t, func() {
			_, err = stack.Invoke(context.Background(), 1, 2)
		})

		require.ErrorIs(t, err, ErrParameterMismatch)
		var mismatch *ParameterMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "Add", mismatch.Method)
		assert.Equal(t, 0, mismatch.Index)
		assert.Equal(t, "oops", mismatch.Value)
		calc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("nil written into a value parameter fails normally", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) { return a + b, nil })
		stack := NewInterceptorStack(&struct{}{}, method, []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				ic.Parameters()[1] = nil
				return ic.Proceed()
			}),
		})

		_, err := stack.Invoke(context.Background(), 1, 2)

		assert.ErrorIs(t, err, ErrParameterMismatch)
	})

	t.Run("typed nil fault returned by the method is a normal failure", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) {
			var fault *Fault
			return 0, fault
		})

		stack := NewInterceptorStack(&struct{}{}, method, nil)
		var err error
		assert.NotPanics(t, func() {
			_, err = stack.Invoke(context.Background(), 1, 2)
		})

		var targetErr *InvocationTargetError
		require.ErrorAs(t, err, &targetErr)
		assert.Equal(t, "Add", targetErr.Method)
	})

	t.Run("nil target is rejected", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) { return a + b, nil })
		stack := NewInterceptorStack(nil, method, nil)

		_, err := stack.Invoke(context.Background(), 1, 2)

		assert.ErrorIs(t, err, ErrNilTarget)
	})

	t.Run("each invocation gets its own context", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) { return a + b, nil })

		var ids sync.Map
		stack := NewInterceptorStack(&struct{}{}, method, []Interception{
			InterceptionFunc(func(ic InvocationContext) (any, error) {
				_, loaded := ids.LoadOrStore(ic.ID(), true)
				assert.False(t, loaded)
				assert.Equal(t, 0, ic.ContextData().Len())
				ic.ContextData().Set("n", ic.Parameters()[0])
				return ic.Proceed()
			}),
		})

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				result, err := stack.Invoke(context.Background(), n, n)
				assert.NoError(t, err)
				assert.Equal(t, 2*n, result)
			}(i)
		}
		wg.Wait()
	})

	t.Run("stack keeps its own copy of the interception list", func(t *testing.T) {
		method := intMethod("Add", func(a, b int) (int, error) { return a + b, nil })
		var calls []string
		list := []Interception{recording("first", &calls)}

		stack := NewInterceptorStack(&struct{}{}, method, list)
		list[0] = recording("replaced", &calls)

		_, err := stack.Invoke(context.Background(), 1, 2)

		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, calls)
		assert.Equal(t, 1, stack.Len())
	})
}
