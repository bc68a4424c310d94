package template

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"
)

// Namespace maps names to values. It is threaded through evaluation and
// mutated by loop bindings and exec blocks within one render.
type Namespace map[string]any

// Reserved namespace keys.
const (
	// EscapeKey holds an optional escape hook applied to every interpolated
	// value: a func(string) string, a func(string) (string, error), or an
	// [Escaper].
	EscapeKey = "__escape__"

	// NoEscapeKey holds the constructor that wraps a value in [NoEscape].
	// It is installed whenever an escape hook is present.
	NoEscapeKey = "__nonescape__"
)

// Clone returns a shallow copy of ns. A nil receiver yields an empty,
// non-nil Namespace.
func (ns Namespace) Clone() Namespace {
	out := make(Namespace, len(ns))
	maps.Copy(out, ns)

	return out
}

// Merge copies every binding of src into ns, overwriting existing names.
func (ns Namespace) Merge(src Namespace) {
	maps.Copy(ns, src)
}

// NoEscape marks a value that must be interpolated without escaping.
type NoEscape struct {
	Value any
}

// Raw wraps v in [NoEscape]. It is the value installed under [NoEscapeKey].
func Raw(v any) NoEscape { return NoEscape{Value: v} }

// Escaper is an escape hook implemented by a type rather than a function.
type Escaper interface {
	Escape(s string) (string, error)
}

// EscaperFunc adapts a plain function to [Escaper].
type EscaperFunc func(string) string

// Escape implements [Escaper].
func (f EscaperFunc) Escape(s string) (string, error) { return f(s), nil }

// escaper returns the escape hook held by ns, if any.
func (ns Namespace) escaper() (Escaper, bool) {
	switch fn := ns[EscapeKey].(type) {
	case nil:
		return nil, false
	case Escaper:
		return fn, true
	case func(string) string:
		return EscaperFunc(fn), true
	case func(string) (string, error):
		return escaperErrFunc(fn), true
	default:
		return nil, false
	}
}

type escaperErrFunc func(string) (string, error)

func (f escaperErrFunc) Escape(s string) (string, error) { return f(s) }

// installRaw adds the [NoEscape] constructor when an escape hook is present
// and no constructor is bound yet.
func (ns Namespace) installRaw() {
	if _, ok := ns.escaper(); !ok {
		return
	}

	if _, ok := ns[NoEscapeKey]; !ok {
		ns[NoEscapeKey] = Raw
	}
}

// Stringify converts an evaluated value to its textual form.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case NoEscape:
		return Stringify(val.Value)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(val)
	}
}

// Truthy reports whether v counts as true in a condition: nil, false, zero
// numbers, and empty strings, slices, arrays and maps are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case NoEscape:
		return Truthy(val.Value)
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	default:
		return true
	}
}
