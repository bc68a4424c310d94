package template

import (
	"iter"
	"strings"
)

// Kind identifies the family of a [Token].
type Kind int

const (
	KindText Kind = iota
	KindBlock
	KindVariable
	KindComment
)

// String returns the name of the token kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBlock:
		return "block"
	case KindVariable:
		return "variable"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of template source.
//
// For text tokens Expr is the raw span Start:End. For tag tokens Expr is the
// text between the markers with surrounding whitespace trimmed, and Start:End
// covers the markers.
type Token struct {
	Kind  Kind
	Expr  string
	Start int
	End   int
}

// tag is a tag family with its opening and closing markers.
type tag struct {
	kind        Kind
	open, close string
}

// tagset lists the tag families in match priority order.
var tagset = []tag{
	{KindBlock, "{%", "%}"},
	{KindVariable, "{{", "}}"},
	{KindComment, "{#", "#}"},
}

// Next scans the token beginning at byte offset pos of src. The returned
// token's End is the position to resume from.
//
// An opening marker without a closing marker anywhere after it is an
// [ErrSyntax].
func Next(src string, pos int) (Token, error) {
	for _, t := range tagset {
		if !strings.HasPrefix(src[pos:], t.open) {
			continue
		}

		inner := pos + len(t.open)

		n := strings.Index(src[inner:], t.close)
		if n < 0 {
			return Token{}, syntaxError(src, pos, "unterminated tag "+t.open)
		}

		return Token{
			Kind:  t.kind,
			Expr:  strings.TrimSpace(src[inner : inner+n]),
			Start: pos,
			End:   inner + n + len(t.close),
		}, nil
	}

	end := len(src)
	if n := indexOpen(src[pos:]); n >= 0 {
		end = pos + n
	}

	return Token{Kind: KindText, Expr: src[pos:end], Start: pos, End: end}, nil
}

// indexOpen returns the index of the nearest opening marker of any tag
// family in s, or -1.
func indexOpen(s string) int {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '{' {
			continue
		}

		switch s[i+1] {
		case '%', '{', '#':
			return i
		}
	}

	return -1
}

// Tokens returns an iterator over the tokens of src starting at byte offset
// pos. Iteration stops after the first error.
func Tokens(src string, pos int) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for pos < len(src) {
			tok, err := Next(src, pos)
			if err != nil {
				yield(Token{}, err)

				return
			}

			if !yield(tok, nil) {
				return
			}

			pos = tok.End
		}
	}
}
