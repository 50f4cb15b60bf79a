// Package guards - Runtime assertion guards
// Arithmetic invariants every Calculation must satisfy before it leaves the engine.
package guards

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// CheckBreakdown verifies a single country breakdown is internally consistent
func CheckBreakdown(b *types.CountryBreakdown) error {
	var errs error

	sum := decimal.Zero
	for i, adj := range b.Adjustments {
		sum = sum.Add(adj.Adjustment)
		if i >= len(b.AppliedRules) || b.AppliedRules[i] != adj.RuleID {
			errs = multierr.Append(errs, fmt.Errorf("%s: applied rule %d is not %s", b.CountryCode, i, adj.RuleID))
		}
		if !adj.RunningTotal.Equal(b.BaseCost.Add(sum)) {
			errs = multierr.Append(errs, fmt.Errorf("%s: running total after %s is %s, want %s",
				b.CountryCode, adj.RuleID, adj.RunningTotal, b.BaseCost.Add(sum)))
		}
	}
	if len(b.AppliedRules) != len(b.Adjustments) {
		errs = multierr.Append(errs, fmt.Errorf("%s: %d applied rules but %d adjustments",
			b.CountryCode, len(b.AppliedRules), len(b.Adjustments)))
	}
	if !b.AdditionalCost.Equal(sum) {
		errs = multierr.Append(errs, fmt.Errorf("%s: additional cost %s does not equal adjustments %s",
			b.CountryCode, b.AdditionalCost, sum))
	}
	if !b.TotalCost.Equal(b.BaseCost.Add(b.AdditionalCost)) {
		errs = multierr.Append(errs, fmt.Errorf("%s: total %s does not equal base %s + additional %s",
			b.CountryCode, b.TotalCost, b.BaseCost, b.AdditionalCost))
	}
	return errs
}

// CheckCalculation verifies every aggregate of a calculation.
// Violations are reported together as an internal error.
func CheckCalculation(calc *types.Calculation) error {
	var errs error

	subtotal := decimal.Zero
	for i := range calc.Breakdowns {
		errs = multierr.Append(errs, CheckBreakdown(&calc.Breakdowns[i]))
		subtotal = subtotal.Add(calc.Breakdowns[i].TotalCost)
	}
	if !calc.Subtotal.Equal(subtotal) {
		errs = multierr.Append(errs, fmt.Errorf("subtotal %s does not equal country totals %s", calc.Subtotal, subtotal))
	}

	discounts := decimal.Zero
	for name, amount := range calc.Discounts {
		if amount.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("discount %q is negative", name))
		}
		discounts = discounts.Add(amount)
	}
	if !calc.TotalDiscount.Equal(discounts) {
		errs = multierr.Append(errs, fmt.Errorf("total discount %s does not equal discounts %s", calc.TotalDiscount, discounts))
	}
	if !calc.Total.Equal(calc.Subtotal.Sub(calc.TotalDiscount)) {
		errs = multierr.Append(errs, fmt.Errorf("total %s does not equal subtotal %s - discount %s",
			calc.Total, calc.Subtotal, calc.TotalDiscount))
	}
	if calc.Subtotal.IsPositive() && calc.Total.IsNegative() {
		errs = multierr.Append(errs, fmt.Errorf("total %s is negative", calc.Total))
	}

	if errs != nil {
		return errors.Internal("calculation invariant violated", errs).
			WithContext("calculation_id", calc.ID)
	}
	return nil
}
