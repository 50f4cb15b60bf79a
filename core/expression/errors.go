package expression

import (
	"errors"
	"fmt"
)

// Failure categories, matchable with errors.Is
var (
	ErrSyntax            = errors.New("syntax error")
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrDivisionByZero    = errors.New("division by zero")
)

// Error is a parse or evaluation failure pinned to a sub-expression
type Error struct {
	// Err is one of the sentinel categories
	Err error

	// Expr is the offending sub-expression text
	Expr string

	// Pos is the byte offset of Expr in the source
	Pos int

	// Msg describes the failure
	Msg string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%v at offset %d in %q: %s", e.Err, e.Pos, e.Expr, e.Msg)
}

// Unwrap exposes the category
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, src string, span Span, format string, args ...interface{}) *Error {
	start, end := span.Start, span.End
	if start < 0 {
		start = 0
	}
	if end > len(src) {
		end = len(src)
	}
	if end < start {
		end = start
	}
	return &Error{
		Err:  kind,
		Expr: src[start:end],
		Pos:  start,
		Msg:  fmt.Sprintf(format, args...),
	}
}
