package script

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"slices"

	"go.starlark.net/starlark"

	"github.com/ardnew/stmpl/template"
)

// toStarlark converts a Go value to a Starlark value. Values with no
// Starlark counterpart are wrapped opaquely and unwrapped again by
// [fromStarlark].
func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case Func:
		return val.fn, nil
	case template.NoEscape:
		return &opaque{v: val}, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case []byte:
		return starlark.Bytes(val), nil
	case *big.Int:
		return starlark.MakeBigInt(val), nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return starlark.MakeUint64(rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return starlark.Float(rv.Float()), nil

	case reflect.String:
		return starlark.String(rv.String()), nil

	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, rv.Len())

		for i := range elems {
			e, err := toStarlark(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}

			elems[i] = e
		}

		return starlark.NewList(elems), nil

	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return compareStrings(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		})

		d := starlark.NewDict(len(keys))

		for _, k := range keys {
			sk, err := toStarlark(k.Interface())
			if err != nil {
				return nil, err
			}

			sv, err := toStarlark(rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}

			if err := d.SetKey(sk, sv); err != nil {
				return nil, err
			}
		}

		return d, nil

	case reflect.Func:
		if rv.IsNil() {
			return starlark.None, nil
		}

		return &goFunc{fn: rv}, nil
	}

	return &opaque{v: v}, nil
}

// fromStarlark converts a Starlark value to a Go value. Callables become
// [Func] values limited to maxSteps computation steps per call.
func fromStarlark(v starlark.Value, maxSteps uint64) any {
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return int(i)
		}

		return val.BigInt()
	case starlark.Float:
		return float64(val)
	case starlark.String:
		return string(val)
	case starlark.Bytes:
		return []byte(val)
	case *starlark.List:
		return fromIterable(val, maxSteps)
	case starlark.Tuple:
		return fromIterable(val, maxSteps)
	case *starlark.Set:
		return fromIterable(val, maxSteps)
	case *starlark.Dict:
		out := make(map[string]any, val.Len())

		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				out[item[0].String()] = fromStarlark(item[1], maxSteps)

				continue
			}

			out[string(key)] = fromStarlark(item[1], maxSteps)
		}

		return out
	case *opaque:
		return val.v
	case *goFunc:
		return val.fn.Interface()
	case starlark.Callable:
		return Func{fn: val, maxSteps: maxSteps}
	}

	return v
}

func fromIterable(it starlark.Iterable, maxSteps uint64) []any {
	var out []any

	iter := it.Iterate()
	defer iter.Done()

	var x starlark.Value
	for iter.Next(&x) {
		out = append(out, fromStarlark(x, maxSteps))
	}

	if out == nil {
		out = []any{}
	}

	return out
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

// Func is a Starlark callable carried in a namespace. It implements
// [template.Escaper], so a function defined in an exec block can be bound
// to the escape hook.
//
// Calls run on a fresh thread bounded by the step limit of the evaluator
// that produced the Func. They cannot be cancelled: [template.Escaper]
// carries no context.
type Func struct {
	fn       starlark.Callable
	maxSteps uint64
}

// Name returns the function name.
func (f Func) Name() string { return f.fn.Name() }

// String returns the Starlark representation of the function.
func (f Func) String() string { return f.fn.String() }

// Call calls the function with Go arguments.
func (f Func) Call(args ...any) (any, error) {
	sargs := make(starlark.Tuple, len(args))

	for i, a := range args {
		v, err := toStarlark(a)
		if err != nil {
			return nil, err
		}

		sargs[i] = v
	}

	th := &starlark.Thread{Name: f.fn.Name()}
	limitSteps(th, f.maxSteps)

	out, err := starlark.Call(th, f.fn, sargs, nil)
	if err != nil {
		return nil, err
	}

	return fromStarlark(out, f.maxSteps), nil
}

// Escape implements [template.Escaper].
func (f Func) Escape(s string) (string, error) {
	out, err := f.Call(s)
	if err != nil {
		return "", err
	}

	return template.Stringify(out), nil
}

// maxStepsLocal is the thread-local key holding a thread's step limit.
const maxStepsLocal = "stmpl.maxSteps"

// limitSteps bounds th to n computation steps. Zero means unbounded.
func limitSteps(th *starlark.Thread, n uint64) {
	if n > 0 {
		th.SetMaxExecutionSteps(n)
	}

	th.SetLocal(maxStepsLocal, n)
}

// stepLimit returns the limit set on th by [limitSteps].
func stepLimit(th *starlark.Thread) uint64 {
	n, _ := th.Local(maxStepsLocal).(uint64)

	return n
}

// opaque carries a Go value through Starlark unchanged.
type opaque struct {
	v any
}

func (o *opaque) String() string        { return template.Stringify(o.v) }
func (o *opaque) Type() string          { return fmt.Sprintf("%T", o.v) }
func (o *opaque) Freeze()               {}
func (o *opaque) Truth() starlark.Bool  { return starlark.Bool(template.Truthy(o.v)) }
func (o *opaque) Hash() (uint32, error) { return 0, errors.New("unhashable: " + o.Type()) }

// goFunc exposes a Go function to Starlark. Arguments are converted with
// [fromStarlark] and then to the parameter types by reflection.
type goFunc struct {
	fn reflect.Value
}

func (g *goFunc) Name() string          { return g.fn.Type().String() }
func (g *goFunc) String() string        { return "<go function " + g.Name() + ">" }
func (g *goFunc) Type() string          { return "go_function" }
func (g *goFunc) Freeze()               {}
func (g *goFunc) Truth() starlark.Bool  { return starlark.True }
func (g *goFunc) Hash() (uint32, error) { return 0, errors.New("unhashable: go_function") }

var errorType = reflect.TypeFor[error]()

func (g *goFunc) CallInternal(
	th *starlark.Thread,
	args starlark.Tuple,
	kwargs []starlark.Tuple,
) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, errors.New(g.Name() + ": unexpected keyword arguments")
	}

	ft := g.fn.Type()
	in := make([]reflect.Value, len(args))

	for i, a := range args {
		var pt reflect.Type

		switch {
		case ft.IsVariadic() && i >= ft.NumIn()-1:
			pt = ft.In(ft.NumIn() - 1).Elem()
		case i < ft.NumIn():
			pt = ft.In(i)
		default:
			return nil, fmt.Errorf("%s: too many arguments", g.Name())
		}

		v, err := goArg(fromStarlark(a, stepLimit(th)), pt)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", g.Name(), i+1, err)
		}

		in[i] = v
	}

	want := ft.NumIn()
	if ft.IsVariadic() {
		want--
	}

	if len(in) < want {
		return nil, fmt.Errorf("%s: missing arguments", g.Name())
	}

	out := g.fn.Call(in)

	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return nil, err
		}

		out = out[:n-1]
	}

	if len(out) == 0 {
		return starlark.None, nil
	}

	return toStarlark(out[0].Interface())
}

func goArg(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(v)

	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case t.Kind() == reflect.String && rv.Kind() != reflect.String:
	case rv.Type().ConvertibleTo(t):
		return rv.Convert(t), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}
