// Package cmd provides the stmpl subcommands: render, inspect and init.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path
	// to the YAML configuration file. It is also the top-level key of the
	// flag mapping inside that file.
	ConfigIdentifier = "config"
)
