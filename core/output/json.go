package output

import (
	"encoding/json"
	"io"

	"vat-cost/core/engine"
	"vat-cost/core/types"
)

// JSONFormatter renders indented JSON
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format returns the format type
func (f *JSONFormatter) Format() Format {
	return FormatJSON
}

// Render writes the calculation as JSON
func (f *JSONFormatter) Render(w io.Writer, calc *types.Calculation) error {
	return encode(w, calc)
}

// RenderComparison writes the comparison as JSON
func (f *JSONFormatter) RenderComparison(w io.Writer, cmp *engine.Comparison) error {
	return encode(w, cmp)
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
