// Package types - Catalog entities (countries and services)
package types

import "github.com/shopspring/decimal"

// Country is a jurisdiction a VAT filing can be quoted for
type Country struct {
	// Code is the ISO 3166-1 alpha-2 code (unique key)
	Code string `json:"code"`

	// Name is the display name
	Name string `json:"name"`

	// StandardVATRate is the standard VAT rate in percent
	StandardVATRate decimal.Decimal `json:"standard_vat_rate"`

	// Currency is the local currency code
	Currency Currency `json:"currency"`

	// FilingFrequencies lists the frequencies the country accepts
	FilingFrequencies []FilingFrequency `json:"filing_frequencies"`

	// Active marks the country as quotable
	Active bool `json:"active"`
}

// Supports reports whether the country accepts the given filing frequency
func (c *Country) Supports(f FilingFrequency) bool {
	for _, supported := range c.FilingFrequencies {
		if supported == f {
			return true
		}
	}
	return false
}

// Service is a priced entry of the service catalog
type Service struct {
	// Type is the tier this entry prices
	Type ServiceType `json:"type"`

	// Name is the display name
	Name string `json:"name"`

	// BasePrice is the per-country base cost before rules
	BasePrice decimal.Decimal `json:"base_price"`

	// Description is optional marketing text
	Description string `json:"description,omitempty"`
}
