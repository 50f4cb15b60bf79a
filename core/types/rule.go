// Package types - Pricing rule records
package types

import "time"

// RuleType is the category of a pricing rule
type RuleType string

const (
	RuleTypeVATRate            RuleType = "vat_rate"
	RuleTypeThreshold          RuleType = "threshold"
	RuleTypeComplexity         RuleType = "complexity"
	RuleTypeSpecialRequirement RuleType = "special_requirement"
)

// String returns the string representation
func (t RuleType) String() string {
	return string(t)
}

// IsValid checks if the rule type is known
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeVATRate, RuleTypeThreshold, RuleTypeComplexity, RuleTypeSpecialRequirement:
		return true
	default:
		return false
	}
}

// Combination is how a rule's result is folded into the running cost
type Combination string

const (
	// CombineCompounding adds the result to the running cost and the compounded base
	CombineCompounding Combination = "compounding"

	// CombineFlat adds the result to the running cost only
	CombineFlat Combination = "flat"
)

// DataType is the declared type of a rule parameter
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeDate    DataType = "date"
)

// IsValid checks if the data type is known
func (d DataType) IsValid() bool {
	switch d {
	case DataTypeString, DataTypeNumber, DataTypeBoolean, DataTypeDate:
		return true
	default:
		return false
	}
}

// Operator is a comparison used by rule conditions
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
)

// IsValid checks if the operator is supported
func (o Operator) IsValid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual:
		return true
	default:
		return false
	}
}

// RuleParameter binds a named value inside a rule expression
type RuleParameter struct {
	// Name must start with a letter; letters, digits and underscore only
	Name string `json:"name"`

	// DataType is the declared type values are coerced to
	DataType DataType `json:"data_type"`

	// DefaultValue is used when the calculation context has no value
	DefaultValue string `json:"default_value"`
}

// RuleCondition gates whether a rule applies
type RuleCondition struct {
	// Parameter names the environment value to compare
	Parameter string `json:"parameter"`

	// Operator is the comparison
	Operator Operator `json:"operator"`

	// Value is the comparison value, parsed as the parameter's type
	Value string `json:"value"`
}

// Rule is a stored, time-bounded, prioritized pricing expression
type Rule struct {
	// ID uniquely identifies the rule
	ID string `json:"id"`

	// CountryCode is the owning country
	CountryCode string `json:"country_code"`

	// Type is the rule category
	Type RuleType `json:"type"`

	// Name is a human-readable label
	Name string `json:"name"`

	// Expression is the pricing expression source
	Expression string `json:"expression"`

	// EffectiveFrom is the inclusive start; zero means open-ended
	EffectiveFrom time.Time `json:"effective_from"`

	// EffectiveTo is the exclusive end; nil means open-ended
	EffectiveTo *time.Time `json:"effective_to,omitempty"`

	// Priority orders application; higher is applied later
	Priority int `json:"priority"`

	// Active disables the rule when false
	Active bool `json:"active"`

	// Parameters are owned by this rule, in declaration order
	Parameters []RuleParameter `json:"parameters,omitempty"`

	// Conditions are owned by this rule; all must hold
	Conditions []RuleCondition `json:"conditions,omitempty"`

	// Sequence is the creation order, used to break priority ties
	Sequence int `json:"sequence"`
}

// EffectiveAt reports whether asOf falls inside the rule's window
func (r *Rule) EffectiveAt(asOf time.Time) bool {
	if !r.EffectiveFrom.IsZero() && asOf.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(asOf) {
		return false
	}
	return true
}
