package template

import (
	"errors"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// lookupEncoding resolves a declared encoding name through the WHATWG
// encoding index, which also accepts the usual IANA aliases.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, ErrEncodingDeclaration.
			With(slog.String("encoding", name)).
			Wrap(errors.New(name))
	}

	return enc, nil
}

// CanonicalEncoding returns the canonical WHATWG name of an encoding name or
// alias, or an error matching [ErrEncodingDeclaration].
func CanonicalEncoding(name string) (string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}

	canon, err := htmlindex.Name(enc)
	if err != nil {
		return name, nil //nolint:nilerr // known encoding without a WHATWG name
	}

	return canon, nil
}

func decode(enc encoding.Encoding, b []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", ErrEncodingDeclaration.Wrap(err)
	}

	return string(out), nil
}

func encode(enc encoding.Encoding, s string) ([]byte, error) {
	out, err := enc.NewEncoder().String(s)
	if err != nil {
		return nil, ErrEncodingDeclaration.Wrap(err)
	}

	return []byte(out), nil
}
