// Package invocation runs a single method call through an ordered chain of
// interceptions.
//
// An InterceptorStack binds a target, a Method descriptor and a list of
// Interceptions. Every call to Invoke creates one InvocationContext. Each
// interception receives the context and decides what happens next:
//   - call ic.Proceed() to run the next interception, or the method itself
//     once the chain is exhausted
//   - return a value or an error without proceeding to short-circuit
//   - rewrite the arguments with ic.SetParameters before proceeding
//   - share attributes with later interceptions through ic.ContextData()
//
// Example usage:
//
//	method, _ := invocation.MethodByName(calc, "Add")
//	stack := invocation.NewInterceptorStack(calc, method, []invocation.Interception{
//		invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
//			ic.ContextData().Set("seen", true)
//			return ic.Proceed()
//		}),
//	})
//	result, err := stack.Invoke(ctx, 2, 3)
//
// Every interception runs at most once per invocation and the method is
// called at most once. Errors returned by the method reach the caller
// unwrapped. Panics raised by the method are faults: they are re-panicked
// and never turned into errors.
package invocation
