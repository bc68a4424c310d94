package template

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Expr is a fragment compiled by an [Evaluator].
type Expr interface {
	// Source returns the fragment text the Expr was compiled from.
	Source() string
}

// Evaluator compiles and runs the code fragments found inside tags.
//
// Compile methods return errors matching [ErrFragmentSyntax]; run methods
// return errors matching [ErrFragmentRuntime].
type Evaluator interface {
	// CompileExpression compiles a value expression.
	CompileExpression(src string) (Expr, error)

	// CompileIterable compiles the parameter text of a for block,
	// "<targets> in <expression>" (see [SplitIteration]).
	CompileIterable(src string) (Expr, error)

	// Evaluate runs an expression from CompileExpression against ns.
	Evaluate(ctx context.Context, e Expr, ns Namespace) (any, error)

	// Bindings runs an iterable from CompileIterable against ns and returns
	// one binding set per iteration.
	Bindings(ctx context.Context, e Expr, ns Namespace) ([]Namespace, error)

	// ExecuteStatements runs src as statements, mutating ns in place.
	ExecuteStatements(ctx context.Context, src string, ns Namespace) error
}

var iterationPattern = regexp.MustCompile(
	`(?s)^\s*(\(?)\s*([A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*)\s*(,?)\s*(\)?)\s+in\s+(.*\S)\s*$`,
)

// SplitIteration parses the parameter text of a for block into its target
// names and iterable expression:
//
//	x in items           -> [x], "items"
//	k, v in pairs        -> [k v], "pairs"
//	(i, x) in enumerate(xs) -> [i x], "enumerate(xs)"
func SplitIteration(src string) (targets []string, iterable string, err error) {
	m := iterationPattern.FindStringSubmatch(src)
	if m == nil || (m[1] == "") != (m[4] == "") {
		return nil, "", ErrFragmentSyntax.Wrap(
			errors.New(`expected "<names> in <expression>": ` + strings.TrimSpace(src)),
		)
	}

	for name := range strings.SplitSeq(m[2], ",") {
		targets = append(targets, strings.TrimSpace(name))
	}

	return targets, m[5], nil
}
