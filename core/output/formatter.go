// Package output provides output formatting for calculations.
// This package produces human and machine-readable outputs.
package output

import (
	"io"
	"sort"

	"vat-cost/core/engine"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for a calculation
	Render(w io.Writer, calc *types.Calculation) error

	// RenderComparison produces output for a scenario comparison
	RenderComparison(w io.Writer, cmp *engine.Comparison) error
}

// Registry manages formatter registration
type Registry struct {
	formatters map[Format]Formatter
}

// NewRegistry creates a registry holding the built-in formatters
func NewRegistry(places int32) *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	r.Register(NewTableFormatter(places))
	r.Register(NewJSONFormatter())
	return r
}

// Register adds a formatter, replacing any with the same format
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Format()] = f
}

// Get returns the formatter for a format name
func (r *Registry) Get(format string) (Formatter, error) {
	f, ok := r.formatters[Format(format)]
	if !ok {
		return nil, errors.Validation("format", "unsupported output format "+format)
	}
	return f, nil
}

// Formats lists the registered format names
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.formatters))
	for f := range r.formatters {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}
