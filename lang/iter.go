package lang

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/ardnew/stmpl/template"
)

// bindings expands an evaluated iterable into one binding set per
// iteration:
//
//   - slices and arrays yield their elements; with several targets each
//     element must itself be a slice or array of matching length
//   - maps yield their keys in sorted order, or key and value for two targets
//   - strings yield their runes as strings
//   - integers n yield 0 through n-1
func bindings(targets []string, val any) ([]template.Namespace, error) {
	if val == nil {
		return nil, errNotIterable
	}

	rv := reflect.ValueOf(val)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		sets := make([]template.Namespace, 0, rv.Len())

		for i := range rv.Len() {
			set, err := bind(targets, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}

			sets = append(sets, set)
		}

		return sets, nil

	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, compareKeys)

		sets := make([]template.Namespace, 0, len(keys))

		for _, k := range keys {
			var (
				set template.Namespace
				err error
			)

			if len(targets) == 2 {
				set = template.Namespace{
					targets[0]: k.Interface(),
					targets[1]: rv.MapIndex(k).Interface(),
				}
			} else {
				set, err = bind(targets, k.Interface())
				if err != nil {
					return nil, err
				}
			}

			sets = append(sets, set)
		}

		return sets, nil

	case reflect.String:
		var sets []template.Namespace

		for _, r := range rv.String() {
			set, err := bind(targets, string(r))
			if err != nil {
				return nil, err
			}

			sets = append(sets, set)
		}

		return sets, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := int(rv.Int())
		sets := make([]template.Namespace, 0, max(n, 0))

		for i := range n {
			set, err := bind(targets, i)
			if err != nil {
				return nil, err
			}

			sets = append(sets, set)
		}

		return sets, nil
	}

	return nil, fmt.Errorf("%w: %T", errNotIterable, val)
}

// bind assigns elem to targets, unpacking it when there is more than one.
func bind(targets []string, elem any) (template.Namespace, error) {
	if len(targets) == 1 {
		return template.Namespace{targets[0]: elem}, nil
	}

	rv := reflect.ValueOf(elem)
	if !rv.IsValid() ||
		(rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: %T into %d names", errUnpack, elem, len(targets))
	}

	if rv.Len() != len(targets) {
		return nil, fmt.Errorf("%w: %d values into %d names",
			errUnpack, rv.Len(), len(targets))
	}

	set := make(template.Namespace, len(targets))
	for i, name := range targets {
		set[name] = rv.Index(i).Interface()
	}

	return set, nil
}

func compareKeys(a, b reflect.Value) int {
	switch {
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return cmp.Compare(a.String(), b.String())
	case a.CanInt() && b.CanInt():
		return cmp.Compare(a.Int(), b.Int())
	case a.CanUint() && b.CanUint():
		return cmp.Compare(a.Uint(), b.Uint())
	case a.CanFloat() && b.CanFloat():
		return cmp.Compare(a.Float(), b.Float())
	}

	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}
