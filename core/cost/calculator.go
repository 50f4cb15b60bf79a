// Package cost - Country cost calculation
// Base service cost plus rule adjustments, applied in a fixed type order,
// produce one CountryBreakdown with the rules that contributed to it.
package cost

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vat-cost/core/expression"
	"vat-cost/core/rules"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
	"vat-cost/internal/logging"
)

// Catalog is the read-only pricing data a calculator needs
type Catalog interface {
	rules.Source
	rules.Programs

	// Country returns a country by ISO code
	Country(code string) (types.Country, bool)

	// Service returns the catalog entry for a service type
	Service(t types.ServiceType) (types.Service, bool)
}

// Calculator computes the cost of one country
type Calculator struct {
	catalog  Catalog
	resolver *rules.Resolver
	applier  *rules.Applier
	places   int32
	logger   *zap.Logger
}

// NewCalculator creates a calculator rounding money to places decimal places
func NewCalculator(catalog Catalog, places int32, logger *zap.Logger) *Calculator {
	logger = logging.OrDefault(logger)
	return &Calculator{
		catalog:  catalog,
		resolver: rules.NewResolver(catalog, logger),
		applier:  rules.NewApplier(catalog, places, logger),
		places:   places,
		logger:   logger,
	}
}

// Compute prices one country for the request.
// The request's AsOf selects the rule set; zero means now.
func (c *Calculator) Compute(ctx context.Context, countryCode string, req *types.CalculationContext) (types.CountryBreakdown, error) {
	country, err := c.country(countryCode, req.FilingFrequency)
	if err != nil {
		return types.CountryBreakdown{}, err
	}

	base, err := c.baseCost(countryCode, req.ServiceType)
	if err != nil {
		return types.CountryBreakdown{}, err
	}
	asOf := asOfOrNow(req.AsOf)

	state := rules.NewState(country, req, base, asOf)
	breakdown := types.CountryBreakdown{
		CountryCode:  country.Code,
		CountryName:  country.Name,
		BaseCost:     base,
		AppliedRules: []string{},
	}

	additional := decimal.Zero
	for _, ruleType := range rules.TypeOrder() {
		for _, rule := range c.resolver.Resolve(country.Code, &ruleType, asOf) {
			if err := ctx.Err(); err != nil {
				return types.CountryBreakdown{}, errors.Canceled(err).WithContext("country", countryCode)
			}

			res, err := c.applier.Apply(rule, state)
			if err != nil {
				return types.CountryBreakdown{}, wrapCountry(err, countryCode)
			}
			if !res.Applied {
				continue
			}

			state.Fold(res.Adjustment, res.Combination)
			additional = additional.Add(res.Adjustment)
			breakdown.AppliedRules = append(breakdown.AppliedRules, rule.ID)
			breakdown.Adjustments = append(breakdown.Adjustments, types.AppliedRule{
				RuleID:       rule.ID,
				Name:         rule.Name,
				Type:         rule.Type,
				Combination:  res.Combination,
				Adjustment:   res.Adjustment,
				RunningTotal: state.RunningCost,
			})
		}
	}

	breakdown.AdditionalCost = additional
	breakdown.TotalCost = base.Add(additional)

	c.logger.Debug("country priced",
		zap.String("country", country.Code),
		zap.String("base", base.String()),
		zap.String("additional", additional.String()),
		zap.Strings("rules", breakdown.AppliedRules),
	)

	return breakdown, nil
}

// country looks up a country and checks it can serve the filing frequency
func (c *Calculator) country(code string, freq types.FilingFrequency) (types.Country, error) {
	country, ok := c.catalog.Country(code)
	if !ok {
		return country, errors.Wrap(errors.TypeDataIntegrity, "unknown country", errors.NotFound("country", code)).
			WithContext("country", code)
	}
	if !country.Active {
		return country, errors.Newf(errors.TypeDataIntegrity, "country %s is not active", code).
			WithContext("country", code)
	}
	if !country.Supports(freq) {
		return country, errors.Newf(errors.TypeDataIntegrity, "country %s does not support %s filing", code, freq).
			WithContext("country", code).
			WithContext("filing_frequency", string(freq))
	}
	return country, nil
}

// baseCost returns the rounded catalog price of a service
func (c *Calculator) baseCost(countryCode string, t types.ServiceType) (decimal.Decimal, error) {
	service, ok := c.catalog.Service(t)
	if !ok {
		return decimal.Zero, errors.Newf(errors.TypeDataIntegrity, "no service priced for type %q", t).
			WithContext("country", countryCode)
	}
	return service.BasePrice.Round(c.places), nil
}

func asOfOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func wrapCountry(err error, code string) error {
	if de, ok := err.(*errors.Error); ok {
		return de.WithContext("country", code)
	}
	return errors.Evaluation("country calculation failed", err).WithContext("country", code)
}

// Preview evaluates one expression in the environment a rule would see for
// the given country, without needing a stored rule
func (c *Calculator) Preview(countryCode string, req *types.CalculationContext, src string) (expression.Value, error) {
	country, ok := c.catalog.Country(countryCode)
	if !ok {
		return expression.Value{}, errors.NotFound("country", countryCode)
	}
	base, err := c.baseCost(countryCode, req.ServiceType)
	if err != nil {
		return expression.Value{}, err
	}

	probe := &types.Rule{ID: "preview", CountryCode: countryCode, Expression: src}
	env, err := c.applier.Environment(probe, rules.NewState(country, req, base, asOfOrNow(req.AsOf)))
	if err != nil {
		return expression.Value{}, err
	}
	v, err := expression.Evaluate(src, env)
	if err != nil {
		return expression.Value{}, errors.Evaluation("expression failed", err).WithContext("expression", src)
	}
	return v, nil
}
