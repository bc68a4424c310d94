package lang

// This file defines the builtin functions available to every expression.
// They are registered with expr.Function, so namespace entries of the
// same name cannot shadow them.

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"
)

// builtins returns the expr options registering each builtin. processEnv
// backs env().
func builtins(processEnv map[string]string) []expr.Option {
	return []expr.Option{
		expr.Function("env", func(params ...any) (any, error) {
			return processEnv[params[0].(string)], nil
		}, new(func(string) string)),

		expr.Function("cwd", func(...any) (any, error) {
			return getCwd(), nil
		}, new(func() string)),

		expr.Function("hostname", func(...any) (any, error) {
			return getHostname(), nil
		}, new(func() string)),

		expr.Function("platform", func(...any) (any, error) {
			return runtime.GOOS + "/" + runtime.GOARCH, nil
		}, new(func() string)),

		expr.Function("exists", func(params ...any) (any, error) {
			return fileExists(params[0].(string)), nil
		}, new(func(string) bool)),

		expr.Function("isdir", func(params ...any) (any, error) {
			return fileIsDir(params[0].(string)), nil
		}, new(func(string) bool)),

		expr.Function("abspath", func(params ...any) (any, error) {
			return pathAbs(params[0].(string)), nil
		}, new(func(string) string)),

		expr.Function("prefix", func(params ...any) (any, error) {
			items := make([]string, 0, len(params)-1)
			for _, p := range params[1:] {
				items = append(items, p.(string))
			}

			return mungPrefix(params[0].(string), items...), nil
		}, new(func(string, ...string) string)),
	}
}

// ---------------------------------------------------------------------------
// System information
// ---------------------------------------------------------------------------

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

// ---------------------------------------------------------------------------
// Filesystem
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

// ---------------------------------------------------------------------------
// PATH-like lists
// ---------------------------------------------------------------------------

// mungPrefix moves or inserts prefix at the front of the list, removing
// duplicates.
func mungPrefix(list string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

// ---------------------------------------------------------------------------
// Process environment
// ---------------------------------------------------------------------------

// buildProcessEnvMap converts a "KEY=VALUE" slice to a map.
// If envList is nil, os.Environ() is used.
func buildProcessEnvMap(envList []string) map[string]string {
	if envList == nil {
		envList = os.Environ()
	}

	result := make(map[string]string, len(envList))

	for _, entry := range envList {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			result[key] = value
		}
	}

	return result
}
