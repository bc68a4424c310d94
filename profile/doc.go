// Package profile provides optional runtime profiling backed by
// [github.com/pkg/profile].
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//	stmpl --pprof-mode=cpu render big.tmpl
//
// Without the tag, [Profiler.Start] returns a no-op and [Modes] is empty.
package profile
