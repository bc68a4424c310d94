package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// Directive keywords recognized in block tags.
const (
	keywordIf       = "if"
	keywordElif     = "elif"
	keywordElse     = "else"
	keywordFor      = "for"
	keywordExec     = "exec"
	keywordEncoding = "encoding"
	keywordEnd      = "end"
)

var keywords = []string{
	keywordIf, keywordElif, keywordElse, keywordFor,
	keywordExec, keywordEncoding, keywordEnd,
}

// frame is one open block on the parser stack. The body a new child goes
// into is parse-time state, so it lives here rather than on the node.
type frame struct {
	node    Node
	keyword string
	start   int // offset of the opening tag
	body    *[]Node
	branch  int  // index of the active branch of a Conditional
	inElse  bool // Conditional has switched to its else-body
}

func (f *frame) add(n Node) {
	if c, ok := f.node.(*Conditional); ok {
		if f.inElse {
			c.Else = append(c.Else, n)
		} else {
			c.Branches[f.branch].Body = append(c.Branches[f.branch].Body, n)
		}

		return
	}

	*f.body = append(*f.body, n)
}

// builder turns a token stream into the node tree of a Template.
type builder struct {
	t     *Template
	src   string
	raw   []byte
	stack []*frame
	exec  *state // compile-time state; exec blocks run against t.namespace

	// declared is set once the first encoding block closes, even when it
	// names no encoding.
	declared bool
}

func newBuilder(ctx context.Context, t *Template, raw []byte) *builder {
	return &builder{
		t:     t,
		src:   string(raw),
		raw:   raw,
		stack: []*frame{{node: t.root, body: &t.root.Children}},
		exec:  &state{ctx: ctx, ev: t.ev, ns: t.namespace},
	}
}

func (b *builder) top() *frame { return b.stack[len(b.stack)-1] }

// build consumes the whole source. The first closed encoding block
// re-decodes the source and resumes tokenizing at the equivalent offset;
// this happens at most once.
func (b *builder) build() error {
	ctx := b.exec.ctx

	for pos := 0; pos < len(b.src); {
		tok, err := Next(b.src, pos)
		if err != nil {
			return err
		}

		restart, err := b.handle(tok)
		if err != nil {
			return err
		}

		pos = tok.End

		if restart {
			pos, err = b.redecode(pos)
			if err != nil {
				return err
			}

			b.t.logger.TraceContext(ctx, "restart parse",
				slog.String("encoding", b.t.encoding),
				slog.Int("offset", pos))
		}
	}

	if len(b.stack) != 1 {
		f := b.top()

		return syntaxError(b.src, f.start, "unterminated block "+strconv.Quote(f.keyword))
	}

	return nil
}

// redecode decodes the raw source under the declared encoding and returns
// the offset in the decoded text equivalent to byte offset end of the raw
// source.
func (b *builder) redecode(end int) (int, error) {
	enc, err := lookupEncoding(b.t.encoding)
	if err != nil {
		return 0, err
	}

	head, err := decode(enc, b.raw[:end])
	if err != nil {
		return 0, err
	}

	tail, err := decode(enc, b.raw[end:])
	if err != nil {
		return 0, err
	}

	b.src = head + tail

	return len(head), nil
}

// handle applies one token. It reports whether the parse must restart
// because an encoding was declared.
func (b *builder) handle(tok Token) (bool, error) {
	switch tok.Kind {
	case KindText:
		b.top().add(NewText(tok.Expr))

	case KindComment:

	case KindVariable:
		e, err := b.compile(tok, b.t.ev.CompileExpression, tok.Expr)
		if err != nil {
			return false, err
		}

		b.top().add(&Variable{Expr: e})

	case KindBlock:
		return b.block(tok)
	}

	return false, nil
}

// compile runs an evaluator compile function, attaching the tag position to
// any error.
func (b *builder) compile(
	tok Token,
	fn func(string) (Expr, error),
	src string,
) (Expr, error) {
	e, err := fn(src)
	if err != nil {
		pos := PositionOf(b.src, tok.Start)

		return nil, ErrCompile.
			With(pos.attrs()...).
			With(slog.String("fragment", src)).
			Wrap(fmt.Errorf("%s: %w", pos, err))
	}

	return e, nil
}

func (b *builder) block(tok Token) (bool, error) {
	keyword, params := splitKeyword(tok.Expr)

	switch keyword {
	case "":
		return false, syntaxError(b.src, tok.Start, "empty block tag")

	case keywordIf:
		cond, err := b.compile(tok, b.t.ev.CompileExpression, params)
		if err != nil {
			return false, err
		}

		c := &Conditional{Branches: []Branch{{Cond: cond}}}
		b.push(tok, keyword, c, nil)

	case keywordElif:
		f, c, err := b.openConditional(tok, keyword)
		if err != nil {
			return false, err
		}

		cond, err := b.compile(tok, b.t.ev.CompileExpression, params)
		if err != nil {
			return false, err
		}

		c.Branches = append(c.Branches, Branch{Cond: cond})
		f.branch = len(c.Branches) - 1

	case keywordElse:
		f, _, err := b.openConditional(tok, keyword)
		if err != nil {
			return false, err
		}

		f.inElse = true

	case keywordFor:
		it, err := b.compile(tok, b.t.ev.CompileIterable, params)
		if err != nil {
			return false, err
		}

		l := &Loop{Iter: it}
		b.push(tok, keyword, l, &l.Body)

	case keywordExec:
		e := &Exec{}
		b.push(tok, keyword, e, &e.Body)

	case keywordEncoding:
		d := &EncodingDirective{}
		b.push(tok, keyword, d, &d.Body)

	case keywordEnd:
		return b.end(tok)

	default:
		reason := "unknown directive " + strconv.Quote(keyword)
		if s := suggest(keyword); s != "" {
			reason += " (did you mean " + strconv.Quote(s) + "?)"
		}

		return false, syntaxError(b.src, tok.Start, reason)
	}

	return false, nil
}

func (b *builder) push(tok Token, keyword string, n Node, body *[]Node) {
	b.top().add(n)
	b.stack = append(b.stack, &frame{
		node:    n,
		keyword: keyword,
		start:   tok.Start,
		body:    body,
	})
}

// openConditional returns the innermost frame if it is a Conditional that
// has not yet entered its else-body.
func (b *builder) openConditional(tok Token, keyword string) (*frame, *Conditional, error) {
	f := b.top()

	c, ok := f.node.(*Conditional)
	if !ok {
		return nil, nil, syntaxError(b.src, tok.Start, strconv.Quote(keyword)+" outside if block")
	}

	if f.inElse {
		return nil, nil, syntaxError(b.src, tok.Start, strconv.Quote(keyword)+" after else")
	}

	return f, c, nil
}

func (b *builder) end(tok Token) (bool, error) {
	if len(b.stack) == 1 {
		return false, syntaxError(b.src, tok.Start, "unexpected end")
	}

	f := b.top()
	b.stack = b.stack[:len(b.stack)-1]

	switch n := f.node.(type) {
	case *Exec:
		b.t.logger.TraceContext(b.exec.ctx, "exec",
			slog.Int("offset", f.start))

		if err := n.execute(b.exec); err != nil {
			return false, atPosition(err, PositionOf(b.src, f.start))
		}

	case *EncodingDirective:
		if b.declared {
			return false, nil
		}

		name, err := n.name(b.exec)
		if err != nil {
			return false, atPosition(err, PositionOf(b.src, f.start))
		}

		if _, err := lookupEncoding(name); err != nil {
			return false, atPosition(err, PositionOf(b.src, f.start))
		}

		b.t.encoding = name
		b.declared = true

		b.t.logger.TraceContext(b.exec.ctx, "encoding declared",
			slog.String("encoding", name))

		return true, nil
	}

	return false, nil
}

// splitKeyword splits a block expression into its leading word and the
// remaining parameter text.
func splitKeyword(expr string) (keyword, params string) {
	expr = strings.TrimSpace(expr)

	i := strings.IndexFunc(expr, unicode.IsSpace)
	if i < 0 {
		return expr, ""
	}

	return expr[:i], strings.TrimLeftFunc(expr[i:], unicode.IsSpace)
}

// suggest returns the directive keyword closest to an unknown one, or "".
func suggest(word string) string {
	if m := fuzzy.Find(word, keywords); len(m) > 0 {
		return m[0].Str
	}

	var (
		best  string
		score = -1
	)

	for _, kw := range keywords {
		m := fuzzy.Find(kw, []string{word})
		if len(m) == 0 {
			continue
		}

		if m[0].Score > score || (m[0].Score == score && len(kw) > len(best)) {
			best, score = kw, m[0].Score
		}
	}

	return best
}

// atPosition attaches a source position to err.
func atPosition(err error, pos Position) error {
	var e *Error
	if !errors.As(err, &e) {
		return ErrCompile.With(pos.attrs()...).Wrap(err)
	}

	return e.With(pos.attrs()...)
}
