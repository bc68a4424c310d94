// Package script provides a template evaluator backed by Starlark
// (go.starlark.net), a Python dialect with full statement support.
//
// Expressions are Starlark expressions. Exec blocks run as Starlark code
// whose globals are the render namespace, so
//
//	{% exec %}
//	def shout(s):
//	    return s.upper() + "!"
//	__escape__ = shout
//	{% end %}
//
// binds an escape hook for the rest of the render. Go values in the namespace
// are converted to their Starlark counterparts (lists, dicts, numbers,
// strings); Go functions become callable builtins; other values pass through
// unchanged.
package script
