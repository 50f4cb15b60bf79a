// Package catalog - Catalog validation
// Ensures catalog integrity and enforces invariants.
package catalog

import (
	"fmt"
	"regexp"

	"go.uber.org/multierr"

	"vat-cost/core/expression"
	"vat-cost/core/types"
)

var (
	countryCodePattern   = regexp.MustCompile(`^[A-Z]{2}$`)
	parameterNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// ValidationRule is a rule-level validation
type ValidationRule func(*types.Rule) error

// DefaultValidationRules returns the standard rule validations
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateRuleType,
		validateEffectiveWindow,
		validateParameters,
		validateConditions,
		validateExpression,
	}
}

// validate collects every problem in the catalog instead of stopping at the first
func validate(countries []types.Country, services []types.Service, rules []*types.Rule, index map[string]*types.Country) error {
	var errs error

	seenCountries := make(map[string]bool, len(countries))
	for i := range countries {
		c := &countries[i]
		if seenCountries[c.Code] {
			errs = multierr.Append(errs, fmt.Errorf("country %s: duplicate code", c.Code))
		}
		seenCountries[c.Code] = true
		errs = multierr.Append(errs, validateCountry(c))
	}

	seenServices := make(map[types.ServiceType]bool, len(services))
	for i := range services {
		svc := &services[i]
		if seenServices[svc.Type] {
			errs = multierr.Append(errs, fmt.Errorf("service %s: duplicate type", svc.Type))
		}
		seenServices[svc.Type] = true
		errs = multierr.Append(errs, validateService(svc))
	}

	seenRules := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("rule #%d: missing id", r.Sequence))
			continue
		}
		if seenRules[r.ID] {
			errs = multierr.Append(errs, fmt.Errorf("rule %s: duplicate id", r.ID))
		}
		seenRules[r.ID] = true

		if _, ok := index[r.CountryCode]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("rule %s: unknown country %q", r.ID, r.CountryCode))
		}
		for _, check := range DefaultValidationRules() {
			if err := check(r); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("rule %s: %w", r.ID, err))
			}
		}
	}

	return errs
}

func validateCountry(c *types.Country) error {
	var errs error
	if !countryCodePattern.MatchString(c.Code) {
		errs = multierr.Append(errs, fmt.Errorf("country %q: code must be ISO 3166-1 alpha-2", c.Code))
	}
	if c.Name == "" {
		errs = multierr.Append(errs, fmt.Errorf("country %s: missing name", c.Code))
	}
	if c.StandardVATRate.IsNegative() {
		errs = multierr.Append(errs, fmt.Errorf("country %s: negative VAT rate", c.Code))
	}
	for _, f := range c.FilingFrequencies {
		if !f.IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("country %s: unknown filing frequency %q", c.Code, f))
		}
	}
	return errs
}

func validateService(svc *types.Service) error {
	var errs error
	if !svc.Type.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("service %q: unknown service type", svc.Type))
	}
	if svc.BasePrice.IsNegative() {
		errs = multierr.Append(errs, fmt.Errorf("service %s: negative base price", svc.Type))
	}
	return errs
}

// validateRuleType ensures the rule has a known category
func validateRuleType(r *types.Rule) error {
	if !r.Type.IsValid() {
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

// validateEffectiveWindow ensures effective-to is strictly after effective-from
func validateEffectiveWindow(r *types.Rule) error {
	if r.EffectiveTo != nil && !r.EffectiveFrom.IsZero() && !r.EffectiveTo.After(r.EffectiveFrom) {
		return fmt.Errorf("effective_to %s is not after effective_from %s",
			r.EffectiveTo.Format(expression.DateLayout), r.EffectiveFrom.Format(expression.DateLayout))
	}
	return nil
}

// validateParameters ensures names, types and defaults are well formed
func validateParameters(r *types.Rule) error {
	var errs error
	seen := make(map[string]bool, len(r.Parameters))
	for _, p := range r.Parameters {
		if !parameterNamePattern.MatchString(p.Name) {
			errs = multierr.Append(errs, fmt.Errorf("parameter %q: name must start with a letter and use only letters, digits and underscore", p.Name))
			continue
		}
		if seen[p.Name] {
			errs = multierr.Append(errs, fmt.Errorf("parameter %s: declared twice", p.Name))
		}
		seen[p.Name] = true
		if !p.DataType.IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("parameter %s: unknown data type %q", p.Name, p.DataType))
			continue
		}
		if _, err := expression.CoerceDefault(p.DefaultValue, string(p.DataType)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("parameter %s: default: %w", p.Name, err))
		}
	}
	return errs
}

// validateConditions ensures operators are known and values fit declared parameters
func validateConditions(r *types.Rule) error {
	declared := make(map[string]types.DataType, len(r.Parameters))
	for _, p := range r.Parameters {
		declared[p.Name] = p.DataType
	}

	var errs error
	for i, c := range r.Conditions {
		if c.Parameter == "" {
			errs = multierr.Append(errs, fmt.Errorf("condition %d: missing parameter", i))
		}
		if !c.Operator.IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("condition %d: unknown operator %q", i, c.Operator))
		}
		if dt, ok := declared[c.Parameter]; ok && dt.IsValid() {
			if _, err := expression.Coerce(c.Value, string(dt)); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("condition %d: value: %w", i, err))
			}
		}
	}
	return errs
}

// validateExpression ensures the expression compiles
func validateExpression(r *types.Rule) error {
	if _, err := expression.Parse(r.Expression); err != nil {
		return fmt.Errorf("expression: %w", err)
	}
	return nil
}
