package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ardnew/stmpl/template"
)

// Inspect shows the compiled tree or the token stream of a template.
type Inspect struct {
	JSON   InspectJSON   `cmd:"" default:"withargs" help:"Show the compiled tree as JSON (default)."`
	YAML   InspectYAML   `cmd:""                    help:"Show the compiled tree as YAML."`
	Tokens InspectTokens `cmd:""                    help:"Show the token stream."`
}

// InspectJSON writes the compiled tree of a template as JSON.
type InspectJSON struct {
	Language `embed:""`

	Indent int `default:"2" help:"Indent width for JSON output" short:"i"`

	Source string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"source"`
}

// Run executes the inspect json command.
func (j *InspectJSON) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	t, err := compileSource(ctx, j.Language, j.Source)
	if err != nil {
		return err
	}

	err = t.FormatJSON(ctx, stdout, j.Indent)
	if err != nil {
		return ErrWriteOutput.With(slog.String("format", "json")).Wrap(err)
	}

	return nil
}

// InspectYAML writes the compiled tree of a template as YAML.
type InspectYAML struct {
	Language `embed:""`

	Indent int `default:"2" help:"Indent width for YAML output (0 for flow style)" short:"i"`

	Source string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"source"`
}

// Run executes the inspect yaml command.
func (y *InspectYAML) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	t, err := compileSource(ctx, y.Language, y.Source)
	if err != nil {
		return err
	}

	err = t.FormatYAML(ctx, stdout, y.Indent)
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	return nil
}

// InspectTokens writes one line per token: kind, byte span and quoted text.
// The source is scanned as UTF-8 without compiling it.
type InspectTokens struct {
	Source string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"source"`
}

// Run executes the inspect tokens command.
func (k *InspectTokens) Run(ctx context.Context) (err error) {
	_, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	data, err := sourceFor(k.Source).read()
	if err != nil {
		return err
	}

	for tok, err := range template.Tokens(string(data), 0) {
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(stdout, "%-8s %d:%d %s\n",
			tok.Kind, tok.Start, tok.End, strconv.Quote(tok.Expr))
		if err != nil {
			return ErrWriteOutput.Wrap(err)
		}
	}

	return nil
}

func sourceFor(name string) source {
	if name == stdinSource {
		return source{name: name}
	}

	return source{name: name, path: name}
}

func compileSource(ctx context.Context, l Language, name string) (*template.Template, error) {
	data, err := sourceFor(name).read()
	if err != nil {
		return nil, err
	}

	return template.Compile(ctx, data, l.options(nil)...)
}
