// Package expression - Evaluation environment
package expression

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical textual date form
const DateLayout = "2006-01-02"

// Env provides named values for expression evaluation.
// Evaluation only reads from it.
type Env map[string]Value

// NewEnv creates an empty environment
func NewEnv() Env {
	return make(Env)
}

// Lookup returns a named value
func (e Env) Lookup(name string) (Value, bool) {
	v, ok := e[name]
	return v, ok
}

// Set binds a named value
func (e Env) Set(name string, v Value) {
	e[name] = v
}

// Coerce converts raw text into a value of the named data type
// ("string", "number", "boolean", "date").
func Coerce(raw, dataType string) (Value, error) {
	switch dataType {
	case "string":
		return String(raw), nil
	case "number":
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("cannot coerce %q to number", raw)
		}
		return Number(d), nil
	case "boolean":
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("cannot coerce %q to boolean", raw)
		}
		return Bool(b), nil
	case "date":
		t, err := ParseDate(raw)
		if err != nil {
			return Value{}, err
		}
		return Date(t), nil
	}
	return Value{}, fmt.Errorf("unknown data type %q", dataType)
}

// CoerceValue converts an existing value to the named data type
func CoerceValue(v Value, dataType string) (Value, error) {
	switch dataType {
	case "string":
		switch v.kind {
		case KindString:
			return v, nil
		case KindNumber:
			return String(v.number.String()), nil
		case KindBool:
			return String(strconv.FormatBool(v.boolean)), nil
		case KindDate:
			return String(v.date.Format(DateLayout)), nil
		}
	case "number":
		if v.kind == KindNumber {
			return v, nil
		}
		if v.kind == KindString {
			return Coerce(v.str, dataType)
		}
	case "boolean":
		if v.kind == KindBool {
			return v, nil
		}
		if v.kind == KindString {
			return Coerce(v.str, dataType)
		}
	case "date":
		if v.kind == KindDate {
			return v, nil
		}
		if v.kind == KindString {
			return Coerce(v.str, dataType)
		}
	default:
		return Value{}, fmt.Errorf("unknown data type %q", dataType)
	}
	return Value{}, fmt.Errorf("cannot coerce %v to %s", v.kind, dataType)
}

// ParseDate accepts YYYY-MM-DD or RFC3339
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot coerce %q to date", raw)
}

// CoerceDefault is Coerce for parameter defaults: an empty default becomes
// the zero value of the data type.
func CoerceDefault(raw, dataType string) (Value, error) {
	if strings.TrimSpace(raw) != "" {
		return Coerce(raw, dataType)
	}
	switch dataType {
	case "string":
		return String(""), nil
	case "number":
		return Number(decimal.Zero), nil
	case "boolean":
		return Bool(false), nil
	case "date":
		return Date(time.Time{}), nil
	}
	return Value{}, fmt.Errorf("unknown data type %q", dataType)
}
