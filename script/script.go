package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ardnew/stmpl/log"
	"github.com/ardnew/stmpl/template"
)

// DefaultThreadName names the Starlark threads created by an [Evaluator].
const DefaultThreadName = "stmpl"

// fileOptions enables the statement forms useful in exec blocks: top-level
// if/for/while, set literals, and reassignment of globals.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Evaluator is a [template.Evaluator] backed by Starlark.
//
// An Evaluator is safe for concurrent use; every call runs on its own
// Starlark thread, which is cancelled when the call's context is done.
type Evaluator struct {
	name     string
	maxSteps uint64
	logger   log.Logger
}

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithMaxSteps bounds the number of Starlark computation steps per call.
// Zero means unbounded.
func WithMaxSteps(n uint64) Option {
	return func(e *Evaluator) {
		e.maxSteps = n
	}
}

// WithThreadName sets the name of the Starlark threads.
func WithThreadName(name string) Option {
	return func(e *Evaluator) {
		e.name = name
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New returns an Evaluator configured by opts.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{name: DefaultThreadName}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type expression struct {
	src string
}

func (x *expression) Source() string { return x.src }

type iterable struct {
	src     string
	targets []string
	expr    string
}

func (it *iterable) Source() string { return it.src }

// thread returns a thread for one call and a function releasing it.
func (e *Evaluator) thread(ctx context.Context) (*starlark.Thread, func() bool) {
	th := &starlark.Thread{Name: e.name}
	limitSteps(th, e.maxSteps)

	stop := context.AfterFunc(ctx, func() {
		th.Cancel(context.Cause(ctx).Error())
	})

	return th, stop
}

func parseExpr(src string) error {
	if _, err := fileOptions.ParseExpr("<expr>", src, 0); err != nil {
		return template.ErrFragmentSyntax.Wrap(err).
			With(slog.String("source", src))
	}

	return nil
}

// CompileExpression implements [template.Evaluator].
func (e *Evaluator) CompileExpression(src string) (template.Expr, error) {
	if err := parseExpr(src); err != nil {
		return nil, err
	}

	return &expression{src: src}, nil
}

// CompileIterable implements [template.Evaluator].
func (e *Evaluator) CompileIterable(src string) (template.Expr, error) {
	targets, expr, err := template.SplitIteration(src)
	if err != nil {
		return nil, err
	}

	if err := parseExpr(expr); err != nil {
		return nil, err
	}

	return &iterable{src: src, targets: targets, expr: expr}, nil
}

func (e *Evaluator) eval(
	ctx context.Context,
	src string,
	ns template.Namespace,
) (starlark.Value, error) {
	env, err := globals(ns)
	if err != nil {
		return nil, template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", src))
	}

	th, stop := e.thread(ctx)
	defer stop()

	v, err := starlark.EvalOptions(fileOptions, th, "<expr>", src, env)
	if err != nil {
		return nil, template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", src))
	}

	return v, nil
}

// Evaluate implements [template.Evaluator].
func (e *Evaluator) Evaluate(
	ctx context.Context,
	x template.Expr,
	ns template.Namespace,
) (any, error) {
	ex, ok := x.(*expression)
	if !ok {
		return nil, foreignExpr(x)
	}

	v, err := e.eval(ctx, ex.src, ns)
	if err != nil {
		return nil, err
	}

	return fromStarlark(v, e.maxSteps), nil
}

// Bindings implements [template.Evaluator]. The iterable follows Starlark
// iteration; with several target names each element is unpacked.
func (e *Evaluator) Bindings(
	ctx context.Context,
	x template.Expr,
	ns template.Namespace,
) ([]template.Namespace, error) {
	it, ok := x.(*iterable)
	if !ok {
		return nil, foreignExpr(x)
	}

	v, err := e.eval(ctx, it.expr, ns)
	if err != nil {
		return nil, err
	}

	sets, err := bindings(it.targets, v, e.maxSteps)
	if err != nil {
		return nil, template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", it.src))
	}

	return sets, nil
}

func bindings(targets []string, v starlark.Value, maxSteps uint64) ([]template.Namespace, error) {
	seq, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("%s value is not iterable", v.Type())
	}

	iter := seq.Iterate()
	defer iter.Done()

	sets := []template.Namespace{}

	var elem starlark.Value
	for iter.Next(&elem) {
		if len(targets) == 1 {
			sets = append(sets, template.Namespace{targets[0]: fromStarlark(elem, maxSteps)})

			continue
		}

		parts, ok := elem.(starlark.Indexable)
		if !ok {
			return nil, fmt.Errorf("cannot unpack %s into %d names",
				elem.Type(), len(targets))
		}

		if parts.Len() != len(targets) {
			return nil, fmt.Errorf("cannot unpack %d values into %d names",
				parts.Len(), len(targets))
		}

		set := make(template.Namespace, len(targets))
		for i, name := range targets {
			set[name] = fromStarlark(parts.Index(i), maxSteps)
		}

		sets = append(sets, set)
	}

	return sets, nil
}

// ExecuteStatements implements [template.Evaluator]. src runs as a Starlark
// chunk whose globals are the namespace; every global left after the chunk
// is written back to ns.
func (e *Evaluator) ExecuteStatements(
	ctx context.Context,
	src string,
	ns template.Namespace,
) error {
	f, err := fileOptions.Parse("<exec>", src, 0)
	if err != nil {
		return template.ErrFragmentSyntax.Wrap(err).
			With(slog.String("source", src))
	}

	g, err := globals(ns)
	if err != nil {
		return template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", src))
	}

	th, stop := e.thread(ctx)
	defer stop()

	if err := starlark.ExecREPLChunk(f, th, g); err != nil {
		return template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", src))
	}

	for _, name := range slices.Sorted(maps.Keys(g)) {
		ns[name] = fromStarlark(g[name], e.maxSteps)
	}

	e.logger.TraceContext(ctx, "exec",
		slog.Int("globals", len(g)),
		slog.Uint64("steps", th.ExecutionSteps()))

	return nil
}

// globals converts ns to a Starlark global environment.
func globals(ns template.Namespace) (starlark.StringDict, error) {
	g := make(starlark.StringDict, len(ns))

	for name, v := range ns {
		sv, err := toStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		g[name] = sv
	}

	return g, nil
}

var errForeignExpr = errors.New("expression was not compiled by this evaluator")

func foreignExpr(x template.Expr) error {
	return template.ErrFragmentRuntime.
		With(slog.String("source", x.Source())).
		Wrap(errForeignExpr)
}

var _ template.Evaluator = (*Evaluator)(nil)
