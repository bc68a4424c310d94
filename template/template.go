package template

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ardnew/stmpl/log"
)

// Template is a compiled template. It is immutable after [Compile] returns
// and safe for concurrent use by multiple goroutines.
type Template struct {
	root      *Block
	namespace Namespace
	encoding  string
	source    string

	ev     Evaluator
	logger log.Logger
	opts   options
}

type options struct {
	namespace Namespace
	escape    any
}

// Option configures a [Template] at compile time.
type Option func(*Template)

// WithEvaluator sets the expression evaluator used to compile and run the
// fragments inside tags. It is required.
func WithEvaluator(ev Evaluator) Option {
	return func(t *Template) {
		t.ev = ev
	}
}

// WithNamespace seeds the default namespace. The map is copied.
func WithNamespace(ns Namespace) Option {
	return func(t *Template) {
		t.opts.namespace = ns
	}
}

// WithEscape installs an escape hook in the default namespace under
// [EscapeKey]. See [Namespace] for the accepted hook types.
func WithEscape(escape any) Option {
	return func(t *Template) {
		t.opts.escape = escape
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(t *Template) {
		t.logger = logger
	}
}

func applyOptions(t *Template, opts ...Option) {
	for _, opt := range opts {
		opt(t)
	}
}

// Compile compiles src into a [Template].
//
// Fragments are compiled by the evaluator as they are encountered, exec
// blocks run against the default namespace as soon as they close, and the
// first encoding block to close re-decodes the remaining source. No Template
// is returned on error.
func Compile(ctx context.Context, src []byte, opts ...Option) (*Template, error) {
	t := &Template{root: &Block{}}

	applyOptions(t, opts...)

	if t.ev == nil {
		return nil, ErrNoEvaluator
	}

	t.namespace = t.opts.namespace.Clone()
	if t.opts.escape != nil {
		t.namespace[EscapeKey] = t.opts.escape
	}

	t.logger.TraceContext(ctx, "compile",
		slog.Int("source_bytes", len(src)))

	b := newBuilder(ctx, t, src)
	if err := b.build(); err != nil {
		t.logger.DebugContext(ctx, "compile failed", slog.Any("error", err))

		return nil, err
	}

	t.source = b.src
	t.namespace.installRaw()

	t.logger.TraceContext(ctx, "compiled",
		slog.Int("nodes", len(t.root.Children)),
		slog.String("encoding", t.encoding))

	return t, nil
}

// CompileString compiles a string. See [Compile].
func CompileString(ctx context.Context, src string, opts ...Option) (*Template, error) {
	return Compile(ctx, []byte(src), opts...)
}

// Must panics if err is non-nil and otherwise returns t.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}

	return t
}

// Render renders the template.
//
// The default namespace is copied and each overlay is merged into the copy
// in order, later overlays taking precedence. The render mutates only that
// copy; the template and the overlays are never written.
func (t *Template) Render(ctx context.Context, overlays ...Namespace) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ns := t.namespace.Clone()
	for _, o := range overlays {
		ns.Merge(o)
	}

	ns.installRaw()

	var b strings.Builder

	err := t.root.render(&state{ctx: ctx, ev: t.ev, ns: ns}, &b)
	if err != nil {
		t.logger.DebugContext(ctx, "render failed", slog.Any("error", err))

		return "", err
	}

	return b.String(), nil
}

// Root returns the root node of the compiled tree.
func (t *Template) Root() *Block { return t.root }

// Namespace returns a copy of the default namespace, including the effects
// of exec blocks run during compilation.
func (t *Template) Namespace() Namespace { return t.namespace.Clone() }

// Source returns the template source as decoded for parsing.
func (t *Template) Source() string { return t.source }

// Encoding returns the encoding name declared by the template, or "" if it
// declared none.
func (t *Template) Encoding() string { return t.encoding }

// Encode converts rendered output to the declared encoding, or UTF-8 when
// none was declared.
func (t *Template) Encode(s string) ([]byte, error) {
	enc, err := lookupEncoding(t.encoding)
	if err != nil {
		return nil, err
	}

	return encode(enc, s)
}
