// Package lang provides the default expression evaluator for templates,
// backed by expr-lang (github.com/expr-lang/expr).
//
// Every fragment inside {{ }}, if, elif and the iterable of for is an
// expr-lang expression evaluated against the render namespace.
//
// # Builtins
//
//	env(name)              process environment (see WithProcessEnv)
//	cwd()                  working directory
//	hostname()             host name
//	platform()             "GOOS/GOARCH"
//	exists(path)           path exists
//	isdir(path)            path is a directory
//	abspath(path)          absolute path
//	prefix(list, items...) PATH-like list with items moved to the front
//
// # Iteration
//
// A for block iterates slices and arrays (elements), maps (sorted keys, or
// key and value with two names), strings (runes) and integers (0 to n-1).
//
// # Statements
//
// Exec blocks are disabled unless [WithStatements] is set. Statements are
// separated by newlines or semicolons and are either
//
//	name = expression
//
// which binds name in the namespace, or a bare expression evaluated for its
// side effects.
package lang
