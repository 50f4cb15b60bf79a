// Package expression provides the restricted pricing expression language.
// Expressions are administrator-authored data: arithmetic, comparison,
// boolean and conditional operators over literals and named parameters.
// There are no loops, assignments or function calls.
package expression

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind represents the type of a value
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
	KindString
	KindDate
)

// String returns the kind name used in error messages
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the typed union every expression evaluates to
type Value struct {
	kind    ValueKind
	number  decimal.Decimal
	boolean bool
	str     string
	date    time.Time
}

// Number creates a numeric value
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, number: d}
}

// NumberFromInt creates a numeric value from an integer
func NumberFromInt(v int64) Value {
	return Value{kind: KindNumber, number: decimal.NewFromInt(v)}
}

// Bool creates a boolean value
func Bool(v bool) Value {
	return Value{kind: KindBool, boolean: v}
}

// String creates a string value
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Date creates a date value, normalized to UTC
func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t.UTC()}
}

// Kind returns the value kind
func (v Value) Kind() ValueKind {
	return v.kind
}

// AsNumber returns the decimal value
func (v Value) AsNumber() (decimal.Decimal, error) {
	if v.kind != KindNumber {
		return decimal.Zero, fmt.Errorf("value is %v, not number", v.kind)
	}
	return v.number, nil
}

// AsBool returns the boolean value
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("value is %v, not boolean", v.kind)
	}
	return v.boolean, nil
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.number.Equal(other.number)
	case KindBool:
		return v.boolean == other.boolean
	case KindString:
		return v.str == other.str
	case KindDate:
		return v.date.Equal(other.date)
	}
	return false
}

// String renders the value for diagnostics
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.number.String()
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindDate:
		return v.date.Format("2006-01-02")
	}
	return "<invalid>"
}
