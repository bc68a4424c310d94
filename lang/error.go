package lang

import "errors"

var (
	errForeignExpr   = errors.New("expression was not compiled by this evaluator")
	errNotIterable   = errors.New("value is not iterable")
	errUnpack        = errors.New("cannot unpack element")
	errUnbalanced    = errors.New("unbalanced brackets or quotes")
	errEmptyAssigned = errors.New("missing expression after '='")
)
