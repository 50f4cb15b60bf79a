// Package types - Calculation input and result types
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationContext is the transient input of one pricing request
type CalculationContext struct {
	// ServiceType selects the base price
	ServiceType ServiceType `json:"service_type"`

	// TransactionVolume is the number of transactions per period (>= 1)
	TransactionVolume int `json:"transaction_volume"`

	// FilingFrequency must be supported by every requested country
	FilingFrequency FilingFrequency `json:"filing_frequency"`

	// CountryCodes are the requested countries, in request order
	CountryCodes []string `json:"country_codes"`

	// AdditionalServices are optional add-on identifiers
	AdditionalServices []string `json:"additional_services,omitempty"`

	// AsOf selects the effective rule set; zero means now
	AsOf time.Time `json:"as_of,omitempty"`
}

// HasAdditionalService reports whether id was requested as an add-on
func (c *CalculationContext) HasAdditionalService(id string) bool {
	for _, s := range c.AdditionalServices {
		if s == id {
			return true
		}
	}
	return false
}

// AppliedRule records one rule's contribution to a country cost
type AppliedRule struct {
	// RuleID identifies the rule
	RuleID string `json:"rule_id"`

	// Name is the rule's label
	Name string `json:"name"`

	// Type is the rule category
	Type RuleType `json:"type"`

	// Combination is how the adjustment was folded in
	Combination Combination `json:"combination"`

	// Adjustment is the signed amount the rule added
	Adjustment decimal.Decimal `json:"adjustment"`

	// RunningTotal is the country cost after this rule
	RunningTotal decimal.Decimal `json:"running_total"`
}

// CountryBreakdown is the per-country cost decomposition
type CountryBreakdown struct {
	// CountryCode is the ISO code
	CountryCode string `json:"country_code"`

	// CountryName is the display name
	CountryName string `json:"country_name"`

	// BaseCost is the service base price
	BaseCost decimal.Decimal `json:"base_cost"`

	// AdditionalCost is the sum of all rule adjustments
	AdditionalCost decimal.Decimal `json:"additional_cost"`

	// TotalCost is BaseCost + AdditionalCost
	TotalCost decimal.Decimal `json:"total_cost"`

	// AppliedRules are the provenance rule ids in application order
	AppliedRules []string `json:"applied_rules"`

	// Adjustments details each applied rule
	Adjustments []AppliedRule `json:"adjustments,omitempty"`
}

// Calculation is the immutable result of one pricing request
type Calculation struct {
	// ID uniquely identifies the calculation
	ID string `json:"id"`

	// InputHash fingerprints the inputs for reproducibility checks
	InputHash string `json:"input_hash"`

	// ServiceType is the requested tier
	ServiceType ServiceType `json:"service_type"`

	// TransactionVolume is the requested volume
	TransactionVolume int `json:"transaction_volume"`

	// FilingFrequency is the requested frequency
	FilingFrequency FilingFrequency `json:"filing_frequency"`

	// AdditionalServices are the requested add-ons
	AdditionalServices []string `json:"additional_services,omitempty"`

	// Currency is the single quote currency
	Currency Currency `json:"currency"`

	// AsOf is the instant the rule set was resolved at
	AsOf time.Time `json:"as_of"`

	// CreatedAt is when the calculation was produced
	CreatedAt time.Time `json:"created_at"`

	// Breakdowns has one entry per requested country, in request order
	Breakdowns []CountryBreakdown `json:"breakdowns"`

	// Subtotal is the sum of breakdown totals before discounts
	Subtotal decimal.Decimal `json:"subtotal"`

	// Discounts maps discount name to amount
	Discounts map[string]decimal.Decimal `json:"discounts"`

	// TotalDiscount is the sum of all discount amounts
	TotalDiscount decimal.Decimal `json:"total_discount"`

	// Total is Subtotal - TotalDiscount
	Total decimal.Decimal `json:"total"`
}
