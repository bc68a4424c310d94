package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/stmpl/template"
)

func TestEvaluate(t *testing.T) {
	ev := New()

	tests := []struct {
		name string
		src  string
		ns   template.Namespace
		want any
	}{
		{"string", `"a" + "b"`, nil, "ab"},
		{"int", `x * 2`, template.Namespace{"x": 21}, 42},
		{"float", `1.5 + y`, template.Namespace{"y": 1}, 2.5},
		{"bool", `len(xs) == 3`, template.Namespace{"xs": []string{"a", "b", "c"}}, true},
		{"dict", `d["k"]`, template.Namespace{"d": map[string]any{"k": "v"}}, "v"},
		{"none", `None`, nil, nil},
		{"go func", `up("x")`, template.Namespace{"up": strings.ToUpper}, "X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := ev.CompileExpression(tt.src)
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}

			got, err := ev.Evaluate(t.Context(), x, tt.ns)
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestCompileExpression_SyntaxError(t *testing.T) {
	_, err := New().CompileExpression(`1 +`)
	if !errors.Is(err, template.ErrFragmentSyntax) {
		t.Fatalf("expected ErrFragmentSyntax, got %v", err)
	}
}

func TestEvaluate_RuntimeError(t *testing.T) {
	ev := New()

	x, err := ev.CompileExpression(`undefined_name`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	_, err = ev.Evaluate(t.Context(), x, template.Namespace{})
	if !errors.Is(err, template.ErrFragmentRuntime) {
		t.Fatalf("expected ErrFragmentRuntime, got %v", err)
	}
}

func TestBindings(t *testing.T) {
	ev := New()

	x, err := ev.CompileIterable(`(i, s) in enumerate(["a", "b"])`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	sets, err := ev.Bindings(t.Context(), x, template.Namespace{})
	if err != nil {
		t.Fatalf("bindings error: %v", err)
	}

	if len(sets) != 2 {
		t.Fatalf("got %d binding sets, want 2", len(sets))
	}

	if sets[1]["i"] != 1 || sets[1]["s"] != "b" {
		t.Errorf("second set = %v, want i=1 s=b", sets[1])
	}
}

func TestBindings_NotIterable(t *testing.T) {
	ev := New()

	x, err := ev.CompileIterable(`x in 3`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	_, err = ev.Bindings(t.Context(), x, template.Namespace{})
	if !errors.Is(err, template.ErrFragmentRuntime) {
		t.Fatalf("expected ErrFragmentRuntime, got %v", err)
	}
}

func TestExecuteStatements(t *testing.T) {
	ev := New()
	ns := template.Namespace{"n": 3}

	src := `
total = 0
for i in range(n):
    total += i
n = n + 1
names = ["x", "y"]
`

	if err := ev.ExecuteStatements(t.Context(), src, ns); err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if ns["total"] != 3 {
		t.Errorf("total = %v, want 3", ns["total"])
	}

	if ns["n"] != 4 {
		t.Errorf("n = %v, want 4", ns["n"])
	}

	if names, ok := ns["names"].([]any); !ok || len(names) != 2 {
		t.Errorf("names = %v, want [x y]", ns["names"])
	}
}

func TestExecuteStatements_EscapeHook(t *testing.T) {
	ev := New()

	tmpl, err := template.CompileString(t.Context(),
		"{% exec %}\n"+
			"def shout(s):\n"+
			"    return s.upper()\n"+
			"__escape__ = shout\n"+
			"{% end %}{{ a }} {{ __nonescape__(a) }}",
		template.WithEvaluator(ev))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	got, err := tmpl.Render(t.Context(), template.Namespace{"a": "hi"})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if got != "HI hi" {
		t.Errorf("got %q, want %q", got, "HI hi")
	}
}

func TestMaxSteps(t *testing.T) {
	ev := New(WithMaxSteps(1000))

	err := ev.ExecuteStatements(t.Context(), "x = 0\nwhile True:\n    x += 1\n", template.Namespace{})
	if !errors.Is(err, template.ErrFragmentRuntime) {
		t.Fatalf("expected ErrFragmentRuntime, got %v", err)
	}
}

func TestMaxSteps_EscapeHook(t *testing.T) {
	ev := New(WithMaxSteps(1000))
	ns := template.Namespace{}

	err := ev.ExecuteStatements(t.Context(),
		"def spin(s):\n    while True:\n        pass\n    return s\n", ns)
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}

	fn, ok := ns["spin"].(Func)
	if !ok {
		t.Fatalf("spin = %T, want Func", ns["spin"])
	}

	if _, err := fn.Escape("x"); err == nil {
		t.Fatal("expected the step limit to stop the escape hook")
	}

	tmpl, err := template.CompileString(t.Context(), "{{ 'x' }}",
		template.WithEvaluator(ev), template.WithEscape(fn))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if _, err := tmpl.Render(t.Context()); !errors.Is(err, template.ErrFragmentRuntime) {
		t.Fatalf("expected ErrFragmentRuntime, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := New().ExecuteStatements(ctx, "x = 0\nwhile True:\n    x += 1\n", template.Namespace{})
	if !errors.Is(err, template.ErrFragmentRuntime) {
		t.Fatalf("expected ErrFragmentRuntime, got %v", err)
	}
}

func TestSyntaxError(t *testing.T) {
	err := New().ExecuteStatements(t.Context(), "def (", template.Namespace{})
	if !errors.Is(err, template.ErrFragmentSyntax) {
		t.Fatalf("expected ErrFragmentSyntax, got %v", err)
	}
}
