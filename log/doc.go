// Package log provides a small structured logging layer over [log/slog].
//
// A [Logger] is an immutable value. Configuration is applied at creation time
// with functional options and a derived logger is created with [Logger.Wrap]
// or [Logger.With]:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText))
//	logger.Info("template compiled", slog.Int("nodes", 12))
//
// The zero Logger discards everything, so library packages can hold one
// without checking whether the caller configured logging.
//
// A package-level default logger backs the [Info], [Debug], [Trace], [Warn]
// and [Error] functions. The command line reconfigures it with [Config].
package log
