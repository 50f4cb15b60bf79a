// Package catalog - HCL catalog files
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"vat-cost/core/expression"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// FileExtension is the extension of catalog files inside a directory
const FileExtension = ".hcl"

type catalogFile struct {
	Countries []countryBlock `hcl:"country,block"`
	Services  []serviceBlock `hcl:"service,block"`
	Rules     []ruleBlock    `hcl:"rule,block"`
}

type countryBlock struct {
	Code              string   `hcl:"code,label"`
	Name              string   `hcl:"name"`
	VATRate           string   `hcl:"vat_rate"`
	Currency          string   `hcl:"currency,optional"`
	FilingFrequencies []string `hcl:"filing_frequencies"`
	Active            *bool    `hcl:"active,optional"`
}

type serviceBlock struct {
	Type        string `hcl:"type,label"`
	Name        string `hcl:"name"`
	BasePrice   string `hcl:"base_price"`
	Description string `hcl:"description,optional"`
}

type ruleBlock struct {
	ID            string           `hcl:"id,label"`
	Country       string           `hcl:"country"`
	Type          string           `hcl:"type"`
	Name          string           `hcl:"name,optional"`
	Expression    string           `hcl:"expression"`
	Priority      int              `hcl:"priority,optional"`
	EffectiveFrom string           `hcl:"effective_from,optional"`
	EffectiveTo   string           `hcl:"effective_to,optional"`
	Active        *bool            `hcl:"active,optional"`
	Parameters    []parameterBlock `hcl:"parameter,block"`
	Conditions    []conditionBlock `hcl:"condition,block"`
}

type parameterBlock struct {
	Name    string    `hcl:"name,label"`
	Type    string    `hcl:"type"`
	Default cty.Value `hcl:"default,optional"`
}

type conditionBlock struct {
	Parameter string    `hcl:"parameter"`
	Operator  string    `hcl:"operator"`
	Value     cty.Value `hcl:"value"`
}

// Records is the raw content of one or more catalog files
type Records struct {
	Countries []types.Country
	Services  []types.Service
	Rules     []types.Rule
}

// Append adds other's records after r's, keeping order
func (r *Records) Append(other Records) {
	r.Countries = append(r.Countries, other.Countries...)
	r.Services = append(r.Services, other.Services...)
	r.Rules = append(r.Rules, other.Rules...)
}

// Snapshot validates the records into a Snapshot
func (r Records) Snapshot() (*Snapshot, error) {
	return NewSnapshot(r.Countries, r.Services, r.Rules)
}

// LoadHCL reads catalog files or directories (every *.hcl file, sorted by name)
// and builds a validated snapshot.
func LoadHCL(paths ...string) (*Snapshot, error) {
	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	var all Records
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err, "failed to read catalog file %s", file)
		}
		recs, err := parseWith(parser, src, file)
		if err != nil {
			return nil, err
		}
		all.Append(recs)
	}

	return all.Snapshot()
}

// ParseHCL decodes a single catalog document without validating it
func ParseHCL(src []byte, filename string) (Records, error) {
	return parseWith(hclparse.NewParser(), src, filename)
}

func parseWith(parser *hclparse.Parser, src []byte, filename string) (Records, error) {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Records{}, errors.DataIntegrity("failed to parse catalog "+filename, diags)
	}

	var doc catalogFile
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return Records{}, errors.DataIntegrity("failed to decode catalog "+filename, diags)
	}

	recs, err := doc.records()
	if err != nil {
		return Records{}, errors.DataIntegrity("invalid catalog "+filename, err)
	}
	return recs, nil
}

func (doc *catalogFile) records() (Records, error) {
	var out Records

	for _, cb := range doc.Countries {
		rate, err := decimal.NewFromString(cb.VATRate)
		if err != nil {
			return out, fmt.Errorf("country %s: vat_rate: %w", cb.Code, err)
		}
		country := types.Country{
			Code:            strings.ToUpper(cb.Code),
			Name:            cb.Name,
			StandardVATRate: rate,
			Currency:        types.Currency(strings.ToUpper(cb.Currency)),
			Active:          cb.Active == nil || *cb.Active,
		}
		for _, f := range cb.FilingFrequencies {
			country.FilingFrequencies = append(country.FilingFrequencies, types.FilingFrequency(strings.ToLower(f)))
		}
		out.Countries = append(out.Countries, country)
	}

	for _, sb := range doc.Services {
		price, err := decimal.NewFromString(sb.BasePrice)
		if err != nil {
			return out, fmt.Errorf("service %s: base_price: %w", sb.Type, err)
		}
		out.Services = append(out.Services, types.Service{
			Type:        types.ServiceType(strings.ToLower(sb.Type)),
			Name:        sb.Name,
			BasePrice:   price,
			Description: sb.Description,
		})
	}

	for _, rb := range doc.Rules {
		rule, err := rb.rule()
		if err != nil {
			return out, fmt.Errorf("rule %s: %w", rb.ID, err)
		}
		out.Rules = append(out.Rules, rule)
	}

	return out, nil
}

func (rb *ruleBlock) rule() (types.Rule, error) {
	rule := types.Rule{
		ID:          rb.ID,
		CountryCode: strings.ToUpper(rb.Country),
		Type:        types.RuleType(rb.Type),
		Name:        rb.Name,
		Expression:  rb.Expression,
		Priority:    rb.Priority,
		Active:      rb.Active == nil || *rb.Active,
	}
	if rule.Name == "" {
		rule.Name = rb.ID
	}

	if rb.EffectiveFrom != "" {
		from, err := expression.ParseDate(rb.EffectiveFrom)
		if err != nil {
			return rule, fmt.Errorf("effective_from: %w", err)
		}
		rule.EffectiveFrom = from
	}
	if rb.EffectiveTo != "" {
		to, err := expression.ParseDate(rb.EffectiveTo)
		if err != nil {
			return rule, fmt.Errorf("effective_to: %w", err)
		}
		rule.EffectiveTo = &to
	}

	for _, pb := range rb.Parameters {
		def, err := ctyToString(pb.Default)
		if err != nil {
			return rule, fmt.Errorf("parameter %s: default: %w", pb.Name, err)
		}
		rule.Parameters = append(rule.Parameters, types.RuleParameter{
			Name:         pb.Name,
			DataType:     types.DataType(pb.Type),
			DefaultValue: def,
		})
	}

	for i, cb := range rb.Conditions {
		val, err := ctyToString(cb.Value)
		if err != nil {
			return rule, fmt.Errorf("condition %d: value: %w", i, err)
		}
		rule.Conditions = append(rule.Conditions, types.RuleCondition{
			Parameter: cb.Parameter,
			Operator:  types.Operator(cb.Operator),
			Value:     val,
		})
	}

	return rule, nil
}

// ctyToString renders a primitive HCL value in the textual form rule
// parameters and conditions are stored in. Null renders as "".
func ctyToString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("value must be known")
	}
	if !v.Type().IsPrimitiveType() {
		return "", fmt.Errorf("value must be a string, number or bool, got %s", v.Type().FriendlyName())
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err, "catalog path %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*"+FileExtension))
		if err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err, "catalog path %s", p)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, errors.Config("no catalog files found")
	}
	return files, nil
}

// ParseAsOf parses a date flag or field, returning zero for an empty string
func ParseAsOf(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return expression.ParseDate(raw)
}
