// Package api - Request and response shapes for the HTTP layer
package api

import (
	"strings"

	"vat-cost/core/catalog"
	"vat-cost/core/engine"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// QuoteRequest is the input to POST /v1/quote
type QuoteRequest struct {
	ServiceType        string   `json:"service_type"`
	TransactionVolume  int      `json:"transaction_volume"`
	FilingFrequency    string   `json:"filing_frequency"`
	CountryCodes       []string `json:"country_codes"`
	AdditionalServices []string `json:"additional_services,omitempty"`

	// AsOf is a YYYY-MM-DD or RFC3339 date; empty means now
	AsOf string `json:"as_of,omitempty"`

	// Save stores the calculation in history when a store is configured
	Save bool `json:"save,omitempty"`
}

// CompareRequest is the input to POST /v1/compare
type CompareRequest struct {
	Scenarios []ScenarioRequest `json:"scenarios"`
}

// ScenarioRequest is one named quote inside a comparison
type ScenarioRequest struct {
	Name  string       `json:"name"`
	Quote QuoteRequest `json:"quote"`
}

// CountryResponse is one entry of GET /v1/countries
type CountryResponse struct {
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	StandardVATRate      string   `json:"standard_vat_rate"`
	SupportedFrequencies []string `json:"supported_frequencies"`
	Active               bool     `json:"active"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure
type ErrorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Context converts the request into an engine input
func (q *QuoteRequest) Context() (types.CalculationContext, error) {
	service, err := types.ParseServiceType(q.ServiceType)
	if err != nil {
		return types.CalculationContext{}, errors.Validation("service_type", err.Error())
	}
	freq, err := types.ParseFilingFrequency(q.FilingFrequency)
	if err != nil {
		return types.CalculationContext{}, errors.Validation("filing_frequency", err.Error())
	}
	asOf, err := catalog.ParseAsOf(q.AsOf)
	if err != nil {
		return types.CalculationContext{}, errors.Validation("as_of", err.Error())
	}

	return types.CalculationContext{
		ServiceType:        service,
		TransactionVolume:  q.TransactionVolume,
		FilingFrequency:    freq,
		CountryCodes:       q.CountryCodes,
		AdditionalServices: q.AdditionalServices,
		AsOf:               asOf,
	}, nil
}

// scenarios converts the request into engine scenarios
func (c *CompareRequest) scenarios() ([]engine.Scenario, error) {
	out := make([]engine.Scenario, 0, len(c.Scenarios))
	for _, s := range c.Scenarios {
		req, err := s.Quote.Context()
		if err != nil {
			return nil, errors.Wrap(errors.TypeValidation, "invalid scenario "+s.Name, err).
				WithContext("scenario", s.Name)
		}
		out = append(out, engine.Scenario{Name: s.Name, Request: req})
	}
	return out, nil
}

func countryResponse(c types.Country) CountryResponse {
	freqs := make([]string, len(c.FilingFrequencies))
	for i, f := range c.FilingFrequencies {
		freqs[i] = string(f)
	}
	return CountryResponse{
		Code:                 c.Code,
		Name:                 c.Name,
		StandardVATRate:      c.StandardVATRate.String(),
		SupportedFrequencies: freqs,
		Active:               c.Active,
	}
}

func upper(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	return out
}
