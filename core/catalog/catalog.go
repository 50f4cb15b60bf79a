// Package catalog - Read-only pricing catalog snapshot
// Countries, services and rules are loaded once, validated, and handed to the
// engine. Nothing in a Snapshot changes after NewSnapshot returns, so one
// snapshot can serve any number of concurrent calculations.
package catalog

import (
	"sort"

	"vat-cost/core/expression"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// Snapshot is an immutable, validated view of the pricing catalog
type Snapshot struct {
	countries      map[string]*types.Country
	services       map[types.ServiceType]*types.Service
	rules          []*types.Rule
	rulesByCountry map[string][]*types.Rule
	programs       map[string]*expression.Program
}

// NewSnapshot validates and indexes the given records.
// Rule creation order is the order of the rules slice.
func NewSnapshot(countries []types.Country, services []types.Service, rules []types.Rule) (*Snapshot, error) {
	s := &Snapshot{
		countries:      make(map[string]*types.Country, len(countries)),
		services:       make(map[types.ServiceType]*types.Service, len(services)),
		rules:          make([]*types.Rule, 0, len(rules)),
		rulesByCountry: make(map[string][]*types.Rule),
		programs:       make(map[string]*expression.Program, len(rules)),
	}

	for i := range countries {
		c := copyCountry(countries[i])
		s.countries[c.Code] = &c
	}
	for i := range services {
		svc := services[i]
		s.services[svc.Type] = &svc
	}
	for i := range rules {
		r := copyRule(rules[i])
		r.Sequence = i
		s.rules = append(s.rules, &r)
	}

	if err := validate(countries, services, s.rules, s.countries); err != nil {
		return nil, errors.DataIntegrity("invalid pricing catalog", err)
	}

	for _, r := range s.rules {
		// expressions were parsed during validation; parse again to keep the compiled form
		s.programs[r.ID] = expression.MustParse(r.Expression)
		s.rulesByCountry[r.CountryCode] = append(s.rulesByCountry[r.CountryCode], r)
	}

	return s, nil
}

// Country returns a country by ISO code
func (s *Snapshot) Country(code string) (types.Country, bool) {
	c, ok := s.countries[code]
	if !ok {
		return types.Country{}, false
	}
	return copyCountry(*c), true
}

// Countries returns all countries sorted by code
func (s *Snapshot) Countries() []types.Country {
	out := make([]types.Country, 0, len(s.countries))
	for _, c := range s.countries {
		out = append(out, copyCountry(*c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Service returns the catalog entry for a service type
func (s *Snapshot) Service(t types.ServiceType) (types.Service, bool) {
	svc, ok := s.services[t]
	if !ok {
		return types.Service{}, false
	}
	return *svc, true
}

// Services returns all services sorted by type
func (s *Snapshot) Services() []types.Service {
	out := make([]types.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, *svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Rules returns every rule in creation order
func (s *Snapshot) Rules() []types.Rule {
	out := make([]types.Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = copyRule(*r)
	}
	return out
}

// RulesForCountry returns the country's rules in creation order.
// The returned rules are shared and must not be modified.
func (s *Snapshot) RulesForCountry(code string) []*types.Rule {
	return s.rulesByCountry[code]
}

// Program returns the compiled expression of a rule
func (s *Snapshot) Program(ruleID string) (*expression.Program, bool) {
	p, ok := s.programs[ruleID]
	return p, ok
}

// Stats summarizes the snapshot contents
func (s *Snapshot) Stats() (countries, services, rules int) {
	return len(s.countries), len(s.services), len(s.rules)
}

func copyCountry(c types.Country) types.Country {
	c.FilingFrequencies = append([]types.FilingFrequency(nil), c.FilingFrequencies...)
	return c
}

func copyRule(r types.Rule) types.Rule {
	r.Parameters = append([]types.RuleParameter(nil), r.Parameters...)
	r.Conditions = append([]types.RuleCondition(nil), r.Conditions...)
	if r.EffectiveTo != nil {
		to := *r.EffectiveTo
		r.EffectiveTo = &to
	}
	return r
}
