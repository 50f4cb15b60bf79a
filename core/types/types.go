// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions.
package types

import (
	"fmt"
	"strings"
)

// ServiceType identifies the VAT filing service tier
type ServiceType string

const (
	ServiceBasic    ServiceType = "basic"
	ServiceStandard ServiceType = "standard"
	ServiceComplex  ServiceType = "complex"
)

// String returns the string representation of the service type
func (s ServiceType) String() string {
	return string(s)
}

// IsValid checks if the service type is a known tier
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceBasic, ServiceStandard, ServiceComplex:
		return true
	default:
		return false
	}
}

// ParseServiceType parses a case-insensitive service type
func ParseServiceType(s string) (ServiceType, error) {
	st := ServiceType(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown service type %q", s)
	}
	return st, nil
}

// FilingFrequency is how often VAT returns are filed
type FilingFrequency string

const (
	FrequencyMonthly    FilingFrequency = "monthly"
	FrequencyQuarterly  FilingFrequency = "quarterly"
	FrequencyBiannually FilingFrequency = "biannually"
	FrequencyAnnually   FilingFrequency = "annually"
)

// String returns the string representation of the frequency
func (f FilingFrequency) String() string {
	return string(f)
}

// IsValid checks if the frequency is known
func (f FilingFrequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyBiannually, FrequencyAnnually:
		return true
	default:
		return false
	}
}

// ParseFilingFrequency parses a case-insensitive filing frequency
func ParseFilingFrequency(s string) (FilingFrequency, error) {
	f := FilingFrequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("unknown filing frequency %q", s)
	}
	return f, nil
}

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}
