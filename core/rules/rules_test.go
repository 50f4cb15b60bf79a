package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-cost/core/expression"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

type ruleList []*types.Rule

func (l ruleList) RulesForCountry(code string) []*types.Rule {
	var out []*types.Rule
	for _, r := range l {
		if r.CountryCode == code {
			out = append(out, r)
		}
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var gb = types.Country{
	Code:              "GB",
	Name:              "United Kingdom",
	StandardVATRate:   dec("20"),
	Currency:          types.CurrencyGBP,
	FilingFrequencies: []types.FilingFrequency{types.FrequencyMonthly},
	Active:            true,
}

func gbRules() ruleList {
	return ruleList{
		{
			ID: "gb-vat", CountryCode: "GB", Type: types.RuleTypeVATRate, Name: "VAT",
			Expression: "basePrice * 0.20", Priority: 10, Active: true, Sequence: 0,
		},
		{
			ID: "gb-threshold", CountryCode: "GB", Type: types.RuleTypeThreshold, Name: "High volume",
			Expression: "basePrice * 0.1", Priority: 10, Active: true, Sequence: 1,
			Parameters: []types.RuleParameter{{Name: "transactionVolume", DataType: types.DataTypeNumber, DefaultValue: "0"}},
			Conditions: []types.RuleCondition{{Parameter: "transactionVolume", Operator: types.OpGreater, Value: "1000"}},
		},
	}
}

// run applies every resolved rule in type order, as the country calculator does
func run(t *testing.T, rules ruleList, req *types.CalculationContext) (*State, []string) {
	t.Helper()
	resolver := NewResolver(rules, nil)
	applier := NewApplier(nil, 2, nil)
	state := NewState(gb, req, dec("800"), date(2025, 6, 1))

	var applied []string
	for _, rt := range TypeOrder() {
		for _, rule := range resolver.Resolve("GB", &rt, state.AsOf) {
			res, err := applier.Apply(rule, state)
			require.NoError(t, err)
			if res.Applied {
				state.Fold(res.Adjustment, res.Combination)
				applied = append(applied, rule.ID)
			}
		}
	}
	return state, applied
}

func TestGBScenario(t *testing.T) {
	tests := []struct {
		name    string
		volume  int
		total   string
		applied []string
	}{
		{"threshold not met", 500, "960", []string{"gb-vat"}},
		{"threshold met", 1500, "1056", []string{"gb-vat", "gb-threshold"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &types.CalculationContext{
				ServiceType:       types.ServiceStandard,
				TransactionVolume: tt.volume,
				FilingFrequency:   types.FrequencyMonthly,
				CountryCodes:      []string{"GB"},
			}
			state, applied := run(t, gbRules(), req)
			assert.True(t, state.RunningCost.Equal(dec(tt.total)), "got %s", state.RunningCost)
			assert.Equal(t, tt.applied, applied)
		})
	}
}

func TestPriorityOrderChangesResult(t *testing.T) {
	req := &types.CalculationContext{TransactionVolume: 1, CountryCodes: []string{"GB"}}
	build := func(halfPriority, flatPriority int) ruleList {
		return ruleList{
			{ID: "half", CountryCode: "GB", Type: types.RuleTypeComplexity, Expression: "basePrice * 0.5", Priority: halfPriority, Active: true, Sequence: 0},
			{ID: "flat", CountryCode: "GB", Type: types.RuleTypeComplexity, Expression: "100", Priority: flatPriority, Active: true, Sequence: 1},
		}
	}

	multiplierFirst, order1 := run(t, build(1, 2), req)
	flatFirst, order2 := run(t, build(2, 1), req)

	assert.Equal(t, []string{"half", "flat"}, order1)
	assert.Equal(t, []string{"flat", "half"}, order2)
	assert.True(t, multiplierFirst.RunningCost.Equal(dec("1300")), "got %s", multiplierFirst.RunningCost)
	assert.True(t, flatFirst.RunningCost.Equal(dec("1350")), "got %s", flatFirst.RunningCost)
}

func TestPriorityOrderChangesFlatResult(t *testing.T) {
	req := &types.CalculationContext{TransactionVolume: 1, CountryCodes: []string{"GB"}}
	build := func(pctPriority, flatPriority int) ruleList {
		return ruleList{
			{ID: "pct", CountryCode: "GB", Type: types.RuleTypeThreshold, Expression: "basePrice * 0.1", Priority: pctPriority, Active: true, Sequence: 0},
			{ID: "flat", CountryCode: "GB", Type: types.RuleTypeThreshold, Expression: "50", Priority: flatPriority, Active: true, Sequence: 1},
		}
	}

	pctFirst, order1 := run(t, build(1, 2), req)
	flatFirst, order2 := run(t, build(2, 1), req)

	assert.Equal(t, []string{"pct", "flat"}, order1)
	assert.Equal(t, []string{"flat", "pct"}, order2)
	assert.True(t, pctFirst.RunningCost.Equal(dec("930")), "got %s", pctFirst.RunningCost)
	assert.True(t, flatFirst.RunningCost.Equal(dec("935")), "got %s", flatFirst.RunningCost)
}

func TestLaterTypesSeeFlatAdjustments(t *testing.T) {
	req := &types.CalculationContext{TransactionVolume: 1, CountryCodes: []string{"GB"}}
	build := func(complexity string) ruleList {
		return ruleList{
			{ID: "vat", CountryCode: "GB", Type: types.RuleTypeVATRate, Expression: "basePrice * 0.20", Active: true, Sequence: 0},
			{ID: "thr", CountryCode: "GB", Type: types.RuleTypeThreshold, Expression: "100", Active: true, Sequence: 1},
			{ID: "cx", CountryCode: "GB", Type: types.RuleTypeComplexity, Expression: complexity, Active: true, Sequence: 2},
		}
	}

	state, applied := run(t, build("basePrice * 0.5"), req)
	assert.Equal(t, []string{"vat", "thr", "cx"}, applied)
	assert.True(t, state.RunningCost.Equal(dec("1590")), "got %s", state.RunningCost)
	assert.True(t, state.CompoundedBase.Equal(dec("1490")), "got %s", state.CompoundedBase)

	state, _ = run(t, build("compoundedBase * 0.5"), req)
	assert.True(t, state.RunningCost.Equal(dec("1540")), "got %s", state.RunningCost)
}

func TestResolveFiltersAndOrders(t *testing.T) {
	end := date(2025, 1, 1)
	vat := types.RuleTypeVATRate
	rules := ruleList{
		{ID: "late", CountryCode: "GB", Type: vat, Priority: 5, Active: true, Sequence: 0},
		{ID: "early-b", CountryCode: "GB", Type: vat, Priority: 1, Active: true, Sequence: 2},
		{ID: "early-a", CountryCode: "GB", Type: vat, Priority: 1, Active: true, Sequence: 1},
		{ID: "inactive", CountryCode: "GB", Type: vat, Active: false, Sequence: 3},
		{ID: "expired", CountryCode: "GB", Type: vat, Active: true, EffectiveTo: &end, Sequence: 4},
		{ID: "future", CountryCode: "GB", Type: vat, Active: true, EffectiveFrom: date(2030, 1, 1), Sequence: 5},
		{ID: "other-type", CountryCode: "GB", Type: types.RuleTypeThreshold, Active: true, Sequence: 6},
		{ID: "other-country", CountryCode: "DE", Type: vat, Active: true, Sequence: 7},
	}
	resolver := NewResolver(rules, nil)

	ids := func(rs []*types.Rule) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	assert.Equal(t, []string{"early-a", "early-b", "late"}, ids(resolver.Resolve("GB", &vat, date(2025, 6, 1))))
	assert.Equal(t, []string{"expired", "early-a", "early-b", "late"}, ids(resolver.Resolve("GB", &vat, date(2024, 6, 1))))
	assert.Len(t, resolver.Resolve("GB", nil, date(2025, 6, 1)), 4)
	assert.Empty(t, resolver.Resolve("FR", &vat, date(2025, 6, 1)))
}

func TestEffectiveWindowBoundaries(t *testing.T) {
	from := date(2025, 1, 1)
	to := date(2025, 7, 1)
	rule := &types.Rule{ID: "r", CountryCode: "GB", Type: types.RuleTypeVATRate, Active: true, EffectiveFrom: from, EffectiveTo: &to}
	resolver := NewResolver(ruleList{rule}, nil)

	assert.Len(t, resolver.Resolve("GB", nil, from), 1, "effective-from is inclusive")
	assert.Empty(t, resolver.Resolve("GB", nil, to), "effective-to is exclusive")
	assert.Empty(t, resolver.Resolve("GB", nil, from.Add(-time.Second)))
}

func TestEnvironmentBinding(t *testing.T) {
	rule := &types.Rule{
		ID: "env", CountryCode: "GB", Type: types.RuleTypeSpecialRequirement, Expression: "0",
		Parameters: []types.RuleParameter{
			{Name: "transactionVolume", DataType: types.DataTypeString},
			{Name: "fiscalRep", DataType: types.DataTypeBoolean, DefaultValue: "false"},
			{Name: "translation", DataType: types.DataTypeBoolean, DefaultValue: "false"},
			{Name: "surcharge", DataType: types.DataTypeNumber, DefaultValue: "12.5"},
			{Name: "note", DataType: types.DataTypeString},
		},
	}
	req := &types.CalculationContext{
		ServiceType:        types.ServiceBasic,
		TransactionVolume:  42,
		FilingFrequency:    types.FrequencyQuarterly,
		CountryCodes:       []string{"GB", "DE"},
		AdditionalServices: []string{"fiscalRep"},
	}
	state := NewState(gb, req, dec("100"), date(2025, 3, 1))

	env, err := NewApplier(nil, 2, nil).Environment(rule, state)
	require.NoError(t, err)

	assert.Equal(t, expression.String("42"), env[VarTransactionVolume])
	assert.Equal(t, expression.Bool(true), env["fiscalRep"])
	assert.Equal(t, expression.Bool(false), env["translation"])
	assert.Equal(t, expression.Number(dec("12.5")), env["surcharge"])
	assert.Equal(t, expression.String(""), env["note"])
	assert.Equal(t, expression.NumberFromInt(2), env[VarCountryCount])
	assert.Equal(t, expression.String("quarterly"), env[VarFilingFrequency])
	assert.Equal(t, expression.Number(dec("20")), env[VarStandardVATRate])
	assert.Equal(t, expression.Date(date(2025, 3, 1)), env[VarAsOf])
}

func TestAddOnDrivenRule(t *testing.T) {
	rule := &types.Rule{
		ID: "fiscal", CountryCode: "GB", Type: types.RuleTypeSpecialRequirement,
		Expression: "fiscalRep ? 150 : 0",
		Parameters: []types.RuleParameter{{Name: "fiscalRep", DataType: types.DataTypeBoolean, DefaultValue: "false"}},
		Conditions: []types.RuleCondition{{Parameter: "fiscalRep", Operator: types.OpEqual, Value: "true"}},
	}
	applier := NewApplier(nil, 2, nil)

	with := NewState(gb, &types.CalculationContext{AdditionalServices: []string{"fiscalRep"}}, dec("100"), time.Now())
	res, err := applier.Apply(rule, with)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.Adjustment.Equal(dec("150")))
	assert.Equal(t, types.CombineFlat, res.Combination)

	without := NewState(gb, &types.CalculationContext{}, dec("100"), time.Now())
	res, err = applier.Apply(rule, without)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.True(t, res.Adjustment.IsZero())
}

func TestApplyRoundsAdjustment(t *testing.T) {
	rule := &types.Rule{ID: "third", CountryCode: "GB", Type: types.RuleTypeComplexity, Expression: "basePrice / 3"}
	res, err := NewApplier(nil, 2, nil).Apply(rule, NewState(gb, &types.CalculationContext{}, dec("100"), time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "33.33", res.Adjustment.StringFixed(2))
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		rule    types.Rule
		errType errors.Type
	}{
		{
			name:    "unknown identifier",
			rule:    types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "basePrice * rate"},
			errType: errors.TypeEvaluation,
		},
		{
			name:    "division by zero",
			rule:    types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "basePrice / 0"},
			errType: errors.TypeEvaluation,
		},
		{
			name:    "non numeric result",
			rule:    types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "basePrice > 0"},
			errType: errors.TypeEvaluation,
		},
		{
			name:    "malformed expression",
			rule:    types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "basePrice *"},
			errType: errors.TypeDataIntegrity,
		},
		{
			name: "default coercion",
			rule: types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "1",
				Parameters: []types.RuleParameter{{Name: "rate", DataType: types.DataTypeNumber, DefaultValue: "abc"}}},
			errType: errors.TypeDataIntegrity,
		},
		{
			name: "condition on unknown parameter",
			rule: types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "1",
				Conditions: []types.RuleCondition{{Parameter: "missing", Operator: types.OpEqual, Value: "1"}}},
			errType: errors.TypeEvaluation,
		},
		{
			name: "condition value coercion",
			rule: types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "1",
				Conditions: []types.RuleCondition{{Parameter: "transactionVolume", Operator: types.OpGreater, Value: "lots"}}},
			errType: errors.TypeDataIntegrity,
		},
		{
			name: "ordering booleans",
			rule: types.Rule{ID: "x", Type: types.RuleTypeVATRate, Expression: "1",
				Parameters: []types.RuleParameter{{Name: "flag", DataType: types.DataTypeBoolean}},
				Conditions: []types.RuleCondition{{Parameter: "flag", Operator: types.OpGreater, Value: "true"}}},
			errType: errors.TypeEvaluation,
		},
	}

	applier := NewApplier(nil, 2, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState(gb, &types.CalculationContext{TransactionVolume: 10}, dec("100"), time.Now())
			_, err := applier.Apply(&tt.rule, state)
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.TypeOf(err))

			ctx := errors.ContextOf(err)
			assert.Equal(t, "x", ctx["rule_id"])
			assert.Equal(t, tt.rule.Expression, ctx["expression"])
		})
	}
}

func TestEvaluationErrorKeepsSubExpression(t *testing.T) {
	rule := &types.Rule{ID: "div", Type: types.RuleTypeVATRate, Expression: "basePrice + (10 / (basePrice - basePrice))"}
	_, err := NewApplier(nil, 2, nil).Apply(rule, NewState(gb, &types.CalculationContext{}, dec("100"), time.Now()))
	require.Error(t, err)

	var exprErr *expression.Error
	require.ErrorAs(t, err, &exprErr)
	assert.ErrorIs(t, err, expression.ErrDivisionByZero)
	assert.Equal(t, "(10 / (basePrice - basePrice))", exprErr.Expr)
}

func TestPolicyTable(t *testing.T) {
	assert.Equal(t, types.CombineCompounding, CombinationFor(types.RuleTypeVATRate))
	assert.Equal(t, types.CombineFlat, CombinationFor(types.RuleTypeThreshold))
	assert.Equal(t, types.CombineCompounding, CombinationFor(types.RuleTypeComplexity))
	assert.Equal(t, types.CombineFlat, CombinationFor(types.RuleTypeSpecialRequirement))

	order := TypeOrder()
	order[0] = "mutated"
	assert.Equal(t, types.RuleTypeVATRate, TypeOrder()[0])
}
