// Package cli contains the command line interface for stmpl.
//
// # Usage
//
//	stmpl [global flags] <command> [flags] [args]
//
// The render command is the default, so a bare template path renders it:
//
//	stmpl -d values.yaml page.tmpl
//	stmpl render --lang=starlark -e 'name = "world"' -o out.txt page.tmpl
//	stmpl inspect yaml page.tmpl
//	stmpl inspect tokens page.tmpl
//	stmpl init --force
//
// # Configuration Loader
//
// Flag defaults are read from config.yaml in the user configuration
// directory, under the top-level config key, and from config.json through
// [kong.JSON]. Command-line flags take precedence.
//
//	config:
//	  log-level: debug
//	  lang: starlark
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, none, etc.)
//   - --log-caller: Include caller information in log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o stmpl .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory
package cli
