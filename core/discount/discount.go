// Package discount computes cross-country discounts over a set of country breakdowns.
package discount

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
	"vat-cost/internal/logging"
)

// Discount names as reported in a Calculation
const (
	VolumeDiscount       = "Volume Discount"
	MultiCountryDiscount = "Multi-country Discount"
)

var hundred = decimal.NewFromInt(100)

// Config holds discount thresholds and percentages (10 means 10%)
type Config struct {
	// VolumeThreshold is exceeded to trigger the volume discount
	VolumeThreshold int

	// VolumePercent is the volume discount rate
	VolumePercent decimal.Decimal

	// MultiCountryMinimum is the country count that triggers the multi-country discount
	MultiCountryMinimum int

	// MultiCountryPercent is the multi-country discount rate
	MultiCountryPercent decimal.Decimal
}

// DefaultConfig returns the standard discount schedule
func DefaultConfig() Config {
	return Config{
		VolumeThreshold:     1000,
		VolumePercent:       decimal.NewFromInt(5),
		MultiCountryMinimum: 3,
		MultiCountryPercent: decimal.NewFromInt(10),
	}
}

// Validate checks thresholds are non-negative and percentages within [0, 100]
func (c Config) Validate() error {
	if c.VolumeThreshold < 0 {
		return errors.Validation("volume_threshold", "must not be negative")
	}
	if c.MultiCountryMinimum < 0 {
		return errors.Validation("multi_country_minimum", "must not be negative")
	}
	if !validPercent(c.VolumePercent) {
		return errors.Validation("volume_percent", "must be between 0 and 100")
	}
	if !validPercent(c.MultiCountryPercent) {
		return errors.Validation("multi_country_percent", "must be between 0 and 100")
	}
	return nil
}

func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// Engine computes discounts
type Engine struct {
	config Config
	places int32
	logger *zap.Logger
}

// NewEngine creates a discount engine rounding amounts to places decimal places
func NewEngine(config Config, places int32, logger *zap.Logger) *Engine {
	return &Engine{
		config: config,
		places: places,
		logger: logging.OrDefault(logger),
	}
}

// Subtotal sums the breakdown totals
func Subtotal(breakdowns []types.CountryBreakdown) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range breakdowns {
		sum = sum.Add(b.TotalCost)
	}
	return sum
}

// ComputeDiscounts returns each triggered discount by name.
// Both discounts are computed on the pre-discount subtotal; each amount is
// clamped to the subtotal not yet discounted, so their sum never exceeds it.
func (e *Engine) ComputeDiscounts(breakdowns []types.CountryBreakdown, req *types.CalculationContext) map[string]decimal.Decimal {
	discounts := make(map[string]decimal.Decimal)

	subtotal := Subtotal(breakdowns)
	if !subtotal.IsPositive() {
		return discounts
	}
	remaining := subtotal

	apply := func(name string, percent decimal.Decimal) {
		amount := subtotal.Mul(percent).Div(hundred).Round(e.places)
		amount = clamp(amount, remaining)
		remaining = remaining.Sub(amount)
		discounts[name] = amount

		e.logger.Debug("discount applied",
			zap.String("discount", name),
			zap.String("percent", percent.String()),
			zap.String("amount", amount.String()),
		)
	}

	if req.TransactionVolume > e.config.VolumeThreshold {
		apply(VolumeDiscount, e.config.VolumePercent)
	}
	if len(req.CountryCodes) >= e.config.MultiCountryMinimum {
		apply(MultiCountryDiscount, e.config.MultiCountryPercent)
	}

	return discounts
}

// Total sums discount amounts
func Total(discounts map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range discounts {
		sum = sum.Add(amount)
	}
	return sum
}

func clamp(amount, upper decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(upper) {
		return upper
	}
	return amount
}
