package invocation

import (
	"math"
	"reflect"
)

// Overwrite copies from into to, position by position, after checking every
// value against the declared types. Nothing is written unless all values are
// compatible. Integer values are accepted into integer slots they fit in,
// integer and float values into float slots; such values are converted to the
// declared type before they are stored.
func Overwrite(from, to []any, types []reflect.Type) error {
	if len(from) != len(types) || len(to) != len(types) {
		return &ParameterMismatchError{Index: -1, Expected: len(types), Got: len(from)}
	}

	converted := make([]any, len(from))
	for i, v := range from {
		cv, ok := coerce(v, types[i])
		if !ok {
			return &ParameterMismatchError{Index: i, Expected: len(types), Got: len(from), Want: types[i], Value: v}
		}
		converted[i] = cv
	}

	copy(to, converted)
	return nil
}

// conforms reports the first value in args that cannot be passed as is to
// a parameter of the declared types. No conversion is attempted.
func conforms(method string, args []any, types []reflect.Type) error {
	if len(args) != len(types) {
		return &ParameterMismatchError{Method: method, Index: -1, Expected: len(types), Got: len(args)}
	}
	for i, v := range args {
		if v == nil {
			if nillable(types[i].Kind()) {
				continue
			}
		} else if reflect.TypeOf(v).AssignableTo(types[i]) {
			continue
		}
		return &ParameterMismatchError{Method: method, Index: i, Expected: len(types), Got: len(args), Want: types[i], Value: v}
	}
	return nil
}

func coerce(v any, t reflect.Type) (any, bool) {
	if v == nil {
		return nil, nillable(t.Kind())
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return v, true
	}

	out := reflect.New(t).Elem()
	switch {
	case isSigned(t.Kind()):
		var x int64
		switch {
		case isSigned(rv.Kind()):
			x = rv.Int()
		case isUnsigned(rv.Kind()):
			if rv.Uint() > math.MaxInt64 {
				return nil, false
			}
			x = int64(rv.Uint())
		default:
			return nil, false
		}
		if out.OverflowInt(x) {
			return nil, false
		}
		out.SetInt(x)

	case isUnsigned(t.Kind()):
		var u uint64
		switch {
		case isSigned(rv.Kind()):
			if rv.Int() < 0 {
				return nil, false
			}
			u = uint64(rv.Int())
		case isUnsigned(rv.Kind()):
			u = rv.Uint()
		default:
			return nil, false
		}
		if out.OverflowUint(u) {
			return nil, false
		}
		out.SetUint(u)

	case isFloat(t.Kind()):
		var f float64
		switch {
		case isSigned(rv.Kind()):
			f = float64(rv.Int())
		case isUnsigned(rv.Kind()):
			f = float64(rv.Uint())
		case isFloat(rv.Kind()):
			f = rv.Float()
		default:
			return nil, false
		}
		if out.OverflowFloat(f) {
			return nil, false
		}
		out.SetFloat(f)

	default:
		return nil, false
	}
	return out.Interface(), true
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
