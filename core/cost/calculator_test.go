package cost

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-cost/core/catalog"
	"vat-cost/core/expression"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog(t *testing.T, extra ...types.Rule) *catalog.Snapshot {
	t.Helper()
	countries := []types.Country{
		{Code: "GB", Name: "United Kingdom", StandardVATRate: dec("20"), Currency: types.CurrencyGBP,
			FilingFrequencies: []types.FilingFrequency{types.FrequencyMonthly, types.FrequencyQuarterly}, Active: true},
		{Code: "DE", Name: "Germany", StandardVATRate: dec("19"), Currency: types.CurrencyEUR,
			FilingFrequencies: []types.FilingFrequency{types.FrequencyMonthly}, Active: false},
		{Code: "FR", Name: "France", StandardVATRate: dec("20"), Currency: types.CurrencyEUR,
			FilingFrequencies: []types.FilingFrequency{types.FrequencyAnnually}, Active: true},
	}
	services := []types.Service{
		{Type: types.ServiceStandard, Name: "Standard Filing", BasePrice: dec("800")},
	}
	rules := append([]types.Rule{
		{ID: "gb-vat", CountryCode: "GB", Type: types.RuleTypeVATRate, Name: "VAT", Expression: "basePrice * 0.20", Priority: 10, Active: true},
		{ID: "gb-threshold", CountryCode: "GB", Type: types.RuleTypeThreshold, Name: "High volume", Expression: "basePrice * 0.1", Priority: 10, Active: true,
			Parameters: []types.RuleParameter{{Name: "transactionVolume", DataType: types.DataTypeNumber, DefaultValue: "0"}},
			Conditions: []types.RuleCondition{{Parameter: "transactionVolume", Operator: types.OpGreater, Value: "1000"}}},
	}, extra...)

	snap, err := catalog.NewSnapshot(countries, services, rules)
	require.NoError(t, err)
	return snap
}

func request(volume int) *types.CalculationContext {
	return &types.CalculationContext{
		ServiceType:       types.ServiceStandard,
		TransactionVolume: volume,
		FilingFrequency:   types.FrequencyMonthly,
		CountryCodes:      []string{"GB"},
		AsOf:              time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeGB(t *testing.T) {
	calc := NewCalculator(testCatalog(t), 2, nil)

	low, err := calc.Compute(context.Background(), "GB", request(500))
	require.NoError(t, err)
	assert.Equal(t, "United Kingdom", low.CountryName)
	assert.True(t, low.BaseCost.Equal(dec("800")))
	assert.True(t, low.AdditionalCost.Equal(dec("160")))
	assert.True(t, low.TotalCost.Equal(dec("960")))
	assert.Equal(t, []string{"gb-vat"}, low.AppliedRules)

	high, err := calc.Compute(context.Background(), "GB", request(1500))
	require.NoError(t, err)
	assert.True(t, high.AdditionalCost.Equal(dec("256")), "got %s", high.AdditionalCost)
	assert.True(t, high.TotalCost.Equal(dec("1056")))
	assert.Equal(t, []string{"gb-vat", "gb-threshold"}, high.AppliedRules)

	require.Len(t, high.Adjustments, 2)
	assert.Equal(t, types.CombineCompounding, high.Adjustments[0].Combination)
	assert.True(t, high.Adjustments[0].RunningTotal.Equal(dec("960")))
	assert.Equal(t, types.CombineFlat, high.Adjustments[1].Combination)
	assert.True(t, high.Adjustments[1].Adjustment.Equal(dec("96")))
	assert.True(t, high.Adjustments[1].RunningTotal.Equal(dec("1056")))
}

func TestComputeAdditivity(t *testing.T) {
	calc := NewCalculator(testCatalog(t,
		types.Rule{ID: "gb-complex", CountryCode: "GB", Type: types.RuleTypeComplexity, Expression: "basePrice / 7", Active: true},
		types.Rule{ID: "gb-special", CountryCode: "GB", Type: types.RuleTypeSpecialRequirement, Expression: "runningCost * 0.013", Active: true},
		types.Rule{ID: "gb-credit", CountryCode: "GB", Type: types.RuleTypeSpecialRequirement, Expression: "-12.345", Active: true},
	), 2, nil)

	b, err := calc.Compute(context.Background(), "GB", request(2000))
	require.NoError(t, err)

	sum := decimal.Zero
	for _, adj := range b.Adjustments {
		sum = sum.Add(adj.Adjustment)
		assert.Contains(t, b.AppliedRules, adj.RuleID)
	}
	assert.Len(t, b.AppliedRules, len(b.Adjustments))
	assert.True(t, b.AdditionalCost.Equal(sum))
	assert.True(t, b.TotalCost.Equal(b.BaseCost.Add(b.AdditionalCost)))
	assert.True(t, b.TotalCost.Equal(b.Adjustments[len(b.Adjustments)-1].RunningTotal))
	assert.Equal(t, []string{"gb-vat", "gb-threshold", "gb-complex", "gb-special", "gb-credit"}, b.AppliedRules)
	assert.Equal(t, "-12.35", b.Adjustments[4].Adjustment.StringFixed(2))
}

func TestComputeCountryErrors(t *testing.T) {
	calc := NewCalculator(testCatalog(t), 2, nil)

	tests := []struct {
		name    string
		country string
		mutate  func(*types.CalculationContext)
	}{
		{"unknown country", "XX", nil},
		{"inactive country", "DE", nil},
		{"unsupported frequency", "FR", nil},
		{"unpriced service", "GB", func(r *types.CalculationContext) { r.ServiceType = types.ServiceComplex }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(10)
			if tt.mutate != nil {
				tt.mutate(req)
			}
			_, err := calc.Compute(context.Background(), tt.country, req)
			require.Error(t, err)
			assert.Equal(t, errors.TypeDataIntegrity, errors.TypeOf(err))
			assert.Equal(t, tt.country, errors.ContextOf(err)["country"])
		})
	}
}

func TestComputeRuleFailureSurfaces(t *testing.T) {
	calc := NewCalculator(testCatalog(t,
		types.Rule{ID: "gb-broken", CountryCode: "GB", Type: types.RuleTypeComplexity, Expression: "basePrice / (transactionVolume - 10)", Active: true},
	), 2, nil)

	_, err := calc.Compute(context.Background(), "GB", request(10))
	require.Error(t, err)
	assert.Equal(t, errors.TypeEvaluation, errors.TypeOf(err))
	assert.ErrorIs(t, err, expression.ErrDivisionByZero)

	ctx := errors.ContextOf(err)
	assert.Equal(t, "gb-broken", ctx["rule_id"])
	assert.Equal(t, "GB", ctx["country"])
}

func TestComputeCanceled(t *testing.T) {
	calc := NewCalculator(testCatalog(t), 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.Compute(ctx, "GB", request(10))
	require.Error(t, err)
	assert.Equal(t, errors.TypeCanceled, errors.TypeOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreview(t *testing.T) {
	calc := NewCalculator(testCatalog(t), 2, nil)

	v, err := calc.Preview("GB", request(1200), "transactionVolume > 1000 ? serviceBaseCost * standardVatRate / 100 : 0")
	require.NoError(t, err)
	assert.True(t, v.Equal(expression.Number(dec("160"))))

	_, err = calc.Preview("GB", request(1), "nope + 1")
	assert.Equal(t, errors.TypeEvaluation, errors.TypeOf(err))

	_, err = calc.Preview("XX", request(1), "1")
	assert.Equal(t, errors.TypeNotFound, errors.TypeOf(err))
}

func TestPreviewMatchesComputeBase(t *testing.T) {
	snap, err := catalog.NewSnapshot(
		[]types.Country{{Code: "GB", Name: "United Kingdom", StandardVATRate: dec("20"), Currency: types.CurrencyGBP,
			FilingFrequencies: []types.FilingFrequency{types.FrequencyMonthly}, Active: true}},
		[]types.Service{{Type: types.ServiceBasic, Name: "Basic Filing", BasePrice: dec("499.999")}},
		nil,
	)
	require.NoError(t, err)
	calc := NewCalculator(snap, 2, nil)

	req := request(1)
	req.ServiceType = types.ServiceBasic
	b, err := calc.Compute(context.Background(), "GB", req)
	require.NoError(t, err)

	v, err := calc.Preview("GB", req, "basePrice")
	require.NoError(t, err)
	assert.True(t, v.Equal(expression.Number(b.BaseCost)), "got %v", v)
	assert.True(t, b.BaseCost.Equal(dec("500")))

	_, err = calc.Preview("GB", request(1), "basePrice")
	require.Error(t, err)
	assert.Equal(t, errors.TypeDataIntegrity, errors.TypeOf(err))
	assert.Equal(t, "GB", errors.ContextOf(err)["country"])
}
