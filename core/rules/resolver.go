package rules

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"vat-cost/core/types"
	"vat-cost/internal/logging"
)

// Source provides a country's rules in creation order
type Source interface {
	// RulesForCountry returns the rules owned by a country
	RulesForCountry(code string) []*types.Rule
}

// Resolver selects the rules in effect for a country at a point in time
type Resolver struct {
	source Source
	logger *zap.Logger
}

// NewResolver creates a resolver over a rule source
func NewResolver(source Source, logger *zap.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logging.OrDefault(logger),
	}
}

// Resolve returns the active rules of a country that are effective at asOf,
// ordered by ascending priority with creation order breaking ties.
// A nil ruleType selects every type. No match yields an empty slice.
func (r *Resolver) Resolve(countryCode string, ruleType *types.RuleType, asOf time.Time) []*types.Rule {
	candidates := r.source.RulesForCountry(countryCode)

	resolved := make([]*types.Rule, 0, len(candidates))
	for _, rule := range candidates {
		if rule.CountryCode != countryCode || !rule.Active {
			continue
		}
		if ruleType != nil && rule.Type != *ruleType {
			continue
		}
		if !rule.EffectiveAt(asOf) {
			continue
		}
		resolved = append(resolved, rule)
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].Priority != resolved[j].Priority {
			return resolved[i].Priority < resolved[j].Priority
		}
		return resolved[i].Sequence < resolved[j].Sequence
	})

	if ce := r.logger.Check(zap.DebugLevel, "resolved rules"); ce != nil {
		ids := make([]string, len(resolved))
		for i, rule := range resolved {
			ids[i] = rule.ID
		}
		typ := "all"
		if ruleType != nil {
			typ = string(*ruleType)
		}
		ce.Write(
			zap.String("country", countryCode),
			zap.String("type", typ),
			zap.Time("as_of", asOf),
			zap.Strings("rules", ids),
		)
	}

	return resolved
}
