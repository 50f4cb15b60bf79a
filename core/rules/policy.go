// Package rules resolves the rules that apply to a country and folds their
// adjustments into a running country cost.
package rules

import (
	"vat-cost/core/types"
)

// combinations is the fixed combination policy per rule type
var combinations = map[types.RuleType]types.Combination{
	types.RuleTypeVATRate:            types.CombineCompounding,
	types.RuleTypeThreshold:          types.CombineFlat,
	types.RuleTypeComplexity:         types.CombineCompounding,
	types.RuleTypeSpecialRequirement: types.CombineFlat,
}

// typeOrder is the order rule types are applied in
var typeOrder = []types.RuleType{
	types.RuleTypeVATRate,
	types.RuleTypeThreshold,
	types.RuleTypeComplexity,
	types.RuleTypeSpecialRequirement,
}

// CombinationFor returns how a rule type's adjustment is folded into the running cost.
// Unknown types are treated as flat.
func CombinationFor(t types.RuleType) types.Combination {
	if c, ok := combinations[t]; ok {
		return c
	}
	return types.CombineFlat
}

// TypeOrder returns the rule types in application order
func TypeOrder() []types.RuleType {
	out := make([]types.RuleType, len(typeOrder))
	copy(out, typeOrder)
	return out
}
