package template

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Node is one compiled unit of a template.
type Node interface {
	// Kind names the node variant.
	Kind() NodeKind

	// ToMap describes the node and its children as plain data.
	ToMap() map[string]any

	render(s *state, b *strings.Builder) error
}

// NodeKind identifies the variant of a [Node].
type NodeKind int

const (
	NodeText NodeKind = iota
	NodeVariable
	NodeBlock
	NodeConditional
	NodeLoop
	NodeExec
	NodeEncoding
)

// String returns the name of the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeText:
		return "text"
	case NodeVariable:
		return "variable"
	case NodeBlock:
		return "block"
	case NodeConditional:
		return "if"
	case NodeLoop:
		return "for"
	case NodeExec:
		return "exec"
	case NodeEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// state is the per-call evaluation context. Nodes never keep evaluation
// results; everything a render needs travels here.
type state struct {
	ctx context.Context
	ev  Evaluator
	ns  Namespace
}

// renderNodes appends the output of each node in order.
func renderNodes(s *state, b *strings.Builder, nodes []Node) error {
	for _, n := range nodes {
		if err := n.render(s, b); err != nil {
			return err
		}
	}

	return nil
}

// bodyText renders nodes into a fresh string.
func bodyText(s *state, nodes []Node) (string, error) {
	var b strings.Builder

	if err := renderNodes(s, &b, nodes); err != nil {
		return "", err
	}

	return b.String(), nil
}

func mapNodes(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.ToMap()
	}

	return out
}

// ---------------------------------------------------------------------------
// Text
// ---------------------------------------------------------------------------

// Text is literal output.
type Text struct {
	Value string
}

// escapes matches a line-leading backslash (with optional indentation) and
// a backslash-newline continuation.
var escapes = regexp.MustCompile(`(?m)^[ \t]*\\\n?|\\\n`)

// NewText returns a Text node for data with backslash escapes removed:
// indentation followed by a backslash at the start of a line is dropped
// unless the backslash ends the line, and a backslash-newline pair is
// dropped entirely.
func NewText(data string) *Text {
	return &Text{Value: unescape(data)}
}

func unescape(data string) string {
	return escapes.ReplaceAllStringFunc(data, func(m string) string {
		if len(m) >= 2 && strings.HasSuffix(m, "\\\n") {
			// Only the continuation is removed; indentation stays.
			return m[:len(m)-2]
		}

		return ""
	})
}

func (*Text) Kind() NodeKind { return NodeText }

func (t *Text) ToMap() map[string]any {
	return map[string]any{"kind": t.Kind().String(), "value": t.Value}
}

func (t *Text) render(_ *state, b *strings.Builder) error {
	b.WriteString(t.Value)

	return nil
}

// ---------------------------------------------------------------------------
// Variable
// ---------------------------------------------------------------------------

// Variable interpolates the value of an expression.
type Variable struct {
	Expr Expr
}

func (*Variable) Kind() NodeKind { return NodeVariable }

func (v *Variable) ToMap() map[string]any {
	return map[string]any{"kind": v.Kind().String(), "expr": v.Expr.Source()}
}

func (v *Variable) render(s *state, b *strings.Builder) error {
	val, err := s.ev.Evaluate(s.ctx, v.Expr, s.ns)
	if err != nil {
		return err
	}

	text := Stringify(val)

	if esc, ok := s.ns.escaper(); ok {
		if _, raw := val.(NoEscape); !raw {
			text, err = esc.Escape(text)
			if err != nil {
				return ErrFragmentRuntime.Wrap(err).
					With(slog.String("source", EscapeKey))
			}
		}
	}

	b.WriteString(text)

	return nil
}

// ---------------------------------------------------------------------------
// Block
// ---------------------------------------------------------------------------

// Block is an ordered sequence of child nodes.
type Block struct {
	Children []Node
}

func (*Block) Kind() NodeKind { return NodeBlock }

func (bl *Block) ToMap() map[string]any {
	return map[string]any{
		"kind":     bl.Kind().String(),
		"children": mapNodes(bl.Children),
	}
}

func (bl *Block) render(s *state, b *strings.Builder) error {
	return renderNodes(s, b, bl.Children)
}

// ---------------------------------------------------------------------------
// Conditional
// ---------------------------------------------------------------------------

// Branch is one condition of a [Conditional] with the body it guards.
type Branch struct {
	Cond Expr
	Body []Node
}

// Conditional renders the body of its first true branch, or its else-body.
type Conditional struct {
	Branches []Branch
	Else     []Node
}

func (*Conditional) Kind() NodeKind { return NodeConditional }

func (c *Conditional) ToMap() map[string]any {
	branches := make([]any, len(c.Branches))
	for i, br := range c.Branches {
		branches[i] = map[string]any{
			"cond": br.Cond.Source(),
			"body": mapNodes(br.Body),
		}
	}

	return map[string]any{
		"kind":     c.Kind().String(),
		"branches": branches,
		"else":     mapNodes(c.Else),
	}
}

// selectBody returns the body chosen for ns.
func (c *Conditional) selectBody(s *state) ([]Node, error) {
	for _, br := range c.Branches {
		val, err := s.ev.Evaluate(s.ctx, br.Cond, s.ns)
		if err != nil {
			return nil, err
		}

		if Truthy(val) {
			return br.Body, nil
		}
	}

	return c.Else, nil
}

func (c *Conditional) render(s *state, b *strings.Builder) error {
	body, err := c.selectBody(s)
	if err != nil {
		return err
	}

	return renderNodes(s, b, body)
}

// ---------------------------------------------------------------------------
// Loop
// ---------------------------------------------------------------------------

// Loop renders its body once per binding set of its iterable. Bindings are
// merged into the shared namespace and remain after the loop.
type Loop struct {
	Iter Expr
	Body []Node
}

func (*Loop) Kind() NodeKind { return NodeLoop }

func (l *Loop) ToMap() map[string]any {
	return map[string]any{
		"kind": l.Kind().String(),
		"iter": l.Iter.Source(),
		"body": mapNodes(l.Body),
	}
}

func (l *Loop) render(s *state, b *strings.Builder) error {
	sets, err := s.ev.Bindings(s.ctx, l.Iter, s.ns)
	if err != nil {
		return err
	}

	for _, set := range sets {
		if err := s.ctx.Err(); err != nil {
			return err
		}

		s.ns.Merge(set)

		if err := renderNodes(s, b, l.Body); err != nil {
			return err
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Exec
// ---------------------------------------------------------------------------

// Exec runs the rendered text of its body as statements. It produces no
// output.
type Exec struct {
	Body []Node
}

func (*Exec) Kind() NodeKind { return NodeExec }

func (e *Exec) ToMap() map[string]any {
	return map[string]any{"kind": e.Kind().String(), "body": mapNodes(e.Body)}
}

// execute renders the body and runs it against s.ns.
func (e *Exec) execute(s *state) error {
	code, err := bodyText(s, e.Body)
	if err != nil {
		return err
	}

	return s.ev.ExecuteStatements(s.ctx, code, s.ns)
}

func (e *Exec) render(s *state, _ *strings.Builder) error {
	return e.execute(s)
}

// ---------------------------------------------------------------------------
// EncodingDirective
// ---------------------------------------------------------------------------

// EncodingDirective declares the text encoding of the template source. Only
// the first one to close takes effect. It produces no output.
type EncodingDirective struct {
	Body []Node
}

func (*EncodingDirective) Kind() NodeKind { return NodeEncoding }

func (d *EncodingDirective) ToMap() map[string]any {
	return map[string]any{"kind": d.Kind().String(), "body": mapNodes(d.Body)}
}

// name renders the declared encoding name with an empty namespace.
func (d *EncodingDirective) name(s *state) (string, error) {
	text, err := bodyText(&state{ctx: s.ctx, ev: s.ev, ns: Namespace{}}, d.Body)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

func (*EncodingDirective) render(*state, *strings.Builder) error { return nil }
