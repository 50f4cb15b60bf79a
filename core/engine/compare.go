package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// Scenario is one named pricing request in a comparison
type Scenario struct {
	// Name labels the scenario
	Name string `json:"name"`

	// Request is the pricing input
	Request types.CalculationContext `json:"request"`
}

// ScenarioResult pairs a scenario name with its calculation
type ScenarioResult struct {
	Name        string             `json:"name"`
	Calculation *types.Calculation `json:"calculation"`
}

// Comparison is a side-by-side view of several calculations
type Comparison struct {
	// Results are in scenario order
	Results []ScenarioResult `json:"results"`

	// Cheapest names the scenario with the lowest total (first on ties)
	Cheapest string `json:"cheapest"`

	// Spread is the difference between the highest and lowest totals
	Spread decimal.Decimal `json:"spread"`
}

// Compare calculates each scenario in turn. A failing scenario fails the comparison.
func (e *Engine) Compare(ctx context.Context, scenarios []Scenario) (*Comparison, error) {
	if len(scenarios) == 0 {
		return nil, errors.Validation("scenarios", "at least one scenario is required")
	}

	seen := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		if s.Name == "" {
			return nil, errors.Validation("scenarios", "scenario name is required")
		}
		if seen[s.Name] {
			return nil, errors.Validation("scenarios", "duplicate scenario "+s.Name)
		}
		seen[s.Name] = true
	}

	cmp := &Comparison{Results: make([]ScenarioResult, 0, len(scenarios))}
	var lowest, highest decimal.Decimal

	for i, s := range scenarios {
		calc, err := e.Calculate(ctx, s.Request)
		if err != nil {
			if de, ok := err.(*errors.Error); ok {
				return nil, de.WithContext("scenario", s.Name)
			}
			return nil, err
		}
		cmp.Results = append(cmp.Results, ScenarioResult{Name: s.Name, Calculation: calc})

		if i == 0 || calc.Total.LessThan(lowest) {
			lowest = calc.Total
			cmp.Cheapest = s.Name
		}
		if i == 0 || calc.Total.GreaterThan(highest) {
			highest = calc.Total
		}
	}

	cmp.Spread = highest.Sub(lowest)
	return cmp, nil
}
