package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"vat-cost/core/determinism"
	"vat-cost/core/engine"
	"vat-cost/core/types"
)

const (
	labelWidth  = 46
	amountWidth = 22
)

var (
	ruleTop    = "┌" + strings.Repeat("─", labelWidth+amountWidth+3) + "┐"
	ruleMiddle = "├" + strings.Repeat("─", labelWidth+amountWidth+3) + "┤"
	ruleBottom = "└" + strings.Repeat("─", labelWidth+amountWidth+3) + "┘"
)

// TableFormatter renders boxed text tables
type TableFormatter struct {
	places int32
}

// NewTableFormatter creates a table formatter showing places decimal places
func NewTableFormatter(places int32) *TableFormatter {
	return &TableFormatter{places: places}
}

// Format returns the format type
func (f *TableFormatter) Format() Format {
	return FormatCLI
}

// Render writes the calculation summary with one block per country
func (f *TableFormatter) Render(w io.Writer, calc *types.Calculation) error {
	p := &printer{w: w, places: f.places, currency: calc.Currency}

	p.line(ruleTop)
	p.title("VAT FILING QUOTE")
	p.line(ruleMiddle)
	p.row("Service", string(calc.ServiceType))
	p.row("Filing frequency", string(calc.FilingFrequency))
	p.row("Transactions", fmt.Sprint(calc.TransactionVolume))
	if len(calc.AdditionalServices) > 0 {
		p.row("Add-ons", strings.Join(calc.AdditionalServices, ", "))
	}
	p.row("Rules as of", calc.AsOf.Format("2006-01-02"))

	for _, b := range calc.Breakdowns {
		p.line(ruleMiddle)
		p.money(fmt.Sprintf("%s %s", b.CountryCode, b.CountryName), b.TotalCost)
		p.money("  base", b.BaseCost)
		for _, adj := range b.Adjustments {
			p.money(fmt.Sprintf("  └─ %s (%s)", adj.Name, adj.RuleID), adj.Adjustment)
		}
	}

	p.line(ruleMiddle)
	p.money("SUBTOTAL", calc.Subtotal)
	determinism.RangeMapSorted(calc.Discounts, func(name string, amount decimal.Decimal) bool {
		p.money(name, amount.Neg())
		return true
	})
	p.money("TOTAL", calc.Total)
	p.line(ruleBottom)

	p.printf("\nCalculation %s\n", calc.ID)
	return p.err
}

// RenderComparison writes one row per scenario and marks the cheapest
func (f *TableFormatter) RenderComparison(w io.Writer, cmp *engine.Comparison) error {
	p := &printer{w: w, places: f.places}

	p.line(ruleTop)
	p.title("SCENARIO COMPARISON")
	p.line(ruleMiddle)
	for _, r := range cmp.Results {
		label := r.Name
		if r.Name == cmp.Cheapest {
			label += " *"
		}
		p.currency = r.Calculation.Currency
		p.money(label, r.Calculation.Total)
	}
	p.line(ruleMiddle)
	p.money("SPREAD", cmp.Spread)
	p.line(ruleBottom)

	p.printf("\n* cheapest scenario: %s\n", cmp.Cheapest)
	return p.err
}

// printer remembers the first write error so rendering code stays linear
type printer struct {
	w        io.Writer
	places   int32
	currency types.Currency
	err      error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func (p *printer) title(s string) {
	width := labelWidth + amountWidth + 1
	pad := (width - len(s)) / 2
	p.printf("│ %-*s │\n", width, strings.Repeat(" ", pad)+s)
}

func (p *printer) row(label, value string) {
	p.printf("│ %-*s %*s │\n", labelWidth, truncate(label, labelWidth), amountWidth, truncate(value, amountWidth))
}

func (p *printer) money(label string, amount decimal.Decimal) {
	p.row(label, determinism.NewMoney(amount, p.currency).Format(p.places))
}

func truncate(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
