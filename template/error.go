package template

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values). Derived errors created with
// [Error.Wrap] and [Error.With] still match their sentinel with [errors.Is].
var (
	ErrSyntax              = NewError("syntax error")
	ErrCompile             = NewError("compile error")
	ErrFragmentSyntax      = NewError("invalid fragment")
	ErrFragmentRuntime     = NewError("fragment failed")
	ErrEncodingDeclaration = NewError("unknown encoding")
	ErrNoEvaluator         = NewError("no expression evaluator")
	ErrStatementsDisabled  = NewError("statements disabled")
	ErrReadInput           = NewError("failed to read input")
)

// Error is an error with optional structured logging attributes.
// It implements both error and [slog.LogValuer].
type Error struct {
	kind  *Error // sentinel this error derives from
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError creates a new sentinel Error.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError returns err as an *Error, reusing it if err already is one.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface as "<msg>: <cause>".
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is e or the sentinel e derives from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e == t || (e.kind != nil && e.kind == t)
}

// LogValue implements [slog.LogValuer].
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Attrs returns a copy of the structured attributes attached to e.
func (e *Error) Attrs() []slog.Attr {
	return append([]slog.Attr(nil), e.attrs...)
}

func (e *Error) root() *Error {
	if e.kind != nil {
		return e.kind
	}

	return e
}

// Wrap returns a new Error with the same message and attributes wrapping err.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		kind:  e.root(),
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
	}
}

// With returns a new Error with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		kind:  e.root(),
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// Position is a 1-based line and column in template source.
type Position struct {
	Offset int
	Line   int
	Column int
}

// PositionOf converts a byte offset in src to a [Position]. Columns count
// bytes.
func PositionOf(src string, offset int) Position {
	offset = min(max(offset, 0), len(src))
	head := src[:offset]
	line := strings.Count(head, "\n") + 1
	col := offset - strings.LastIndexByte(head, '\n')

	return Position{Offset: offset, Line: line, Column: col}
}

// String returns "line L, column C".
func (p Position) String() string {
	return "line " + strconv.Itoa(p.Line) + ", column " + strconv.Itoa(p.Column)
}

// attrs returns the position as slog attributes.
func (p Position) attrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("offset", p.Offset),
		slog.Int("line", p.Line),
		slog.Int("column", p.Column),
	}
}

// syntaxError builds an [ErrSyntax] at offset in src.
func syntaxError(src string, offset int, reason string) *Error {
	pos := PositionOf(src, offset)

	return ErrSyntax.
		With(pos.attrs()...).
		Wrap(errors.New(reason + " at " + pos.String()))
}
