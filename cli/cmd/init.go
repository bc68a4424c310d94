package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stmpl/log"
	"github.com/ardnew/stmpl/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// Init generates a default configuration file with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config namespace undefined")
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	data, err := yaml.MarshalContext(ctx, i.buildConfig(ctx),
		yaml.Indent(defaultConfigIndent))
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	err = os.WriteFile(confPath, data, 0o644) //nolint:gosec // user config
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// buildConfig maps every set flag to its current value under the
// [ConfigIdentifier] key.
func (i *Init) buildConfig(ctx context.Context) map[string]any {
	ktx := kongContextFrom(ctx)

	entries := make(map[string]any)

	prefixIgnore := []string{"help", "version", profile.Tag}

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if val := i.flagValue(ktx.FlagValue(flag)); val != nil {
			entries[flag.Name] = val
		}
	}

	return map[string]any{ConfigIdentifier: entries}
}

// flagValue converts a parsed flag value to plain YAML data, or nil if the
// value is empty.
func (i *Init) flagValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil

	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v

	case string:
		if v == "" {
			return nil
		}

		return v

	case fmt.Stringer:
		return i.flagValue(v.String())
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Slice {
		return fmt.Sprint(val)
	}

	if rv.Len() == 0 {
		return nil
	}

	out := make([]any, 0, rv.Len())
	for j := range rv.Len() {
		if elem := i.flagValue(rv.Index(j).Interface()); elem != nil {
			out = append(out, elem)
		}
	}

	return out
}
