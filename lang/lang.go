package lang

import (
	"context"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/stmpl/log"
	"github.com/ardnew/stmpl/template"
)

// Evaluator is a [template.Evaluator] backed by expr-lang.
//
// An Evaluator is safe for concurrent use. Programs compiled for exec
// statements are cached by source text.
type Evaluator struct {
	opts   options
	logger log.Logger

	builtins []expr.Option
	programs sync.Map // string -> *vm.Program
}

type options struct {
	processEnv []string
	statements bool
}

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithProcessEnv sets the environment variables visible to env().
// The format is []string{"KEY=VALUE", ...}. If nil, os.Environ() is used.
func WithProcessEnv(env []string) Option {
	return func(e *Evaluator) {
		e.opts.processEnv = env
	}
}

// WithStatements enables exec blocks. When disabled, running any non-empty
// statement text fails with [template.ErrStatementsDisabled].
func WithStatements(enable bool) Option {
	return func(e *Evaluator) {
		e.opts.statements = enable
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
	e := &Evaluator{}

	for _, opt := range opts {
		opt(e)
	}

	e.builtins = builtins(buildProcessEnvMap(e.opts.processEnv))

	return e
}

// program is a compiled expression.
type program struct {
	src  string
	prog *vm.Program
}

func (p *program) Source() string { return p.src }

// iterable is a compiled for-block parameter.
type iterable struct {
	src     string
	targets []string
	prog    *vm.Program
}

func (it *iterable) Source() string { return it.src }

func (e *Evaluator) compile(src string) (*vm.Program, error) {
	prog, err := expr.Compile(src, e.builtins...)
	if err != nil {
		return nil, template.ErrFragmentSyntax.Wrap(err).
			With(slog.String("source", src))
	}

	return prog, nil
}

// CompileExpression implements [template.Evaluator].
func (e *Evaluator) CompileExpression(src string) (template.Expr, error) {
	prog, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	return &program{src: src, prog: prog}, nil
}

// CompileIterable implements [template.Evaluator].
func (e *Evaluator) CompileIterable(src string) (template.Expr, error) {
	targets, source, err := template.SplitIteration(src)
	if err != nil {
		return nil, err
	}

	prog, err := e.compile(source)
	if err != nil {
		return nil, err
	}

	return &iterable{src: src, targets: targets, prog: prog}, nil
}

func (e *Evaluator) run(
	ctx context.Context,
	prog *vm.Program,
	src string,
	ns template.Namespace,
) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := expr.Run(prog, map[string]any(ns))
	if err != nil {
		return nil, template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", src))
	}

	return out, nil
}

// Evaluate implements [template.Evaluator].
func (e *Evaluator) Evaluate(
	ctx context.Context,
	x template.Expr,
	ns template.Namespace,
) (any, error) {
	p, ok := x.(*program)
	if !ok {
		return nil, foreignExpr(x)
	}

	return e.run(ctx, p.prog, p.src, ns)
}

// Bindings implements [template.Evaluator].
func (e *Evaluator) Bindings(
	ctx context.Context,
	x template.Expr,
	ns template.Namespace,
) ([]template.Namespace, error) {
	it, ok := x.(*iterable)
	if !ok {
		return nil, foreignExpr(x)
	}

	val, err := e.run(ctx, it.prog, it.src, ns)
	if err != nil {
		return nil, err
	}

	sets, err := bindings(it.targets, val)
	if err != nil {
		return nil, template.ErrFragmentRuntime.Wrap(err).
			With(slog.String("source", it.src))
	}

	return sets, nil
}

// ExecuteStatements implements [template.Evaluator]. Each statement is
// either "name = expression", which binds name in ns, or a bare expression
// whose result is discarded.
func (e *Evaluator) ExecuteStatements(
	ctx context.Context,
	src string,
	ns template.Namespace,
) error {
	stmts, err := splitStatements(src)
	if err != nil {
		return template.ErrFragmentSyntax.Wrap(err).
			With(slog.String("source", src))
	}

	if len(stmts) == 0 {
		return nil
	}

	if !e.opts.statements {
		return template.ErrStatementsDisabled.
			With(slog.String("source", src))
	}

	for _, st := range stmts {
		prog, err := e.cached(st.expr)
		if err != nil {
			return err
		}

		val, err := e.run(ctx, prog, st.expr, ns)
		if err != nil {
			return err
		}

		if st.name != "" {
			ns[st.name] = val
		}

		e.logger.TraceContext(ctx, "statement",
			slog.String("name", st.name),
			slog.String("expr", st.expr))
	}

	return nil
}

func (e *Evaluator) cached(src string) (*vm.Program, error) {
	if v, ok := e.programs.Load(src); ok {
		return v.(*vm.Program), nil
	}

	prog, err := e.compile(src)
	if err != nil {
		return nil, err
	}

	e.programs.Store(src, prog)

	return prog, nil
}

func foreignExpr(x template.Expr) error {
	return template.ErrFragmentRuntime.
		With(slog.String("source", x.Source())).
		Wrap(errForeignExpr)
}

var _ template.Evaluator = (*Evaluator)(nil)
