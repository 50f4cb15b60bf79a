package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func breakdowns(totals ...string) []types.CountryBreakdown {
	out := make([]types.CountryBreakdown, len(totals))
	for i, total := range totals {
		out[i] = types.CountryBreakdown{TotalCost: dec(total)}
	}
	return out
}

func req(volume int, countries ...string) *types.CalculationContext {
	return &types.CalculationContext{TransactionVolume: volume, CountryCodes: countries}
}

func TestComputeDiscounts(t *testing.T) {
	engine := NewEngine(DefaultConfig(), 2, nil)

	tests := []struct {
		name       string
		breakdowns []types.CountryBreakdown
		req        *types.CalculationContext
		want       map[string]string
	}{
		{
			name:       "none",
			breakdowns: breakdowns("960"),
			req:        req(500, "GB"),
			want:       map[string]string{},
		},
		{
			name:       "volume at threshold does not trigger",
			breakdowns: breakdowns("960"),
			req:        req(1000, "GB"),
			want:       map[string]string{},
		},
		{
			name:       "volume",
			breakdowns: breakdowns("960"),
			req:        req(1001, "GB"),
			want:       map[string]string{VolumeDiscount: "48"},
		},
		{
			name:       "multi-country at minimum",
			breakdowns: breakdowns("960", "900", "1140"),
			req:        req(10, "GB", "DE", "FR"),
			want:       map[string]string{MultiCountryDiscount: "300"},
		},
		{
			name:       "both",
			breakdowns: breakdowns("1000", "1000", "1000", "1000"),
			req:        req(5000, "GB", "DE", "FR", "IT"),
			want:       map[string]string{VolumeDiscount: "200", MultiCountryDiscount: "400"},
		},
		{
			name:       "rounded to cents",
			breakdowns: breakdowns("333.33"),
			req:        req(2000, "GB"),
			want:       map[string]string{VolumeDiscount: "16.67"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.ComputeDiscounts(tt.breakdowns, tt.req)
			require.Len(t, got, len(tt.want))
			for name, amount := range tt.want {
				require.Contains(t, got, name)
				assert.True(t, got[name].Equal(dec(amount)), "%s: got %s want %s", name, got[name], amount)
			}
		})
	}
}

func TestDiscountsNeverExceedSubtotal(t *testing.T) {
	cfg := Config{
		VolumeThreshold:     0,
		VolumePercent:       dec("80"),
		MultiCountryMinimum: 1,
		MultiCountryPercent: dec("70"),
	}
	engine := NewEngine(cfg, 2, nil)
	bs := breakdowns("100", "50")

	got := engine.ComputeDiscounts(bs, req(1, "GB", "DE"))
	assert.True(t, got[VolumeDiscount].Equal(dec("120")))
	assert.True(t, got[MultiCountryDiscount].Equal(dec("30")))
	assert.True(t, Total(got).Equal(Subtotal(bs)))
}

func TestDiscountsOnZeroSubtotal(t *testing.T) {
	engine := NewEngine(DefaultConfig(), 2, nil)
	got := engine.ComputeDiscounts(breakdowns("0", "0", "0"), req(5000, "GB", "DE", "FR"))
	assert.Empty(t, got)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.VolumePercent = dec("100.01")
	err := bad.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.TypeValidation, errors.TypeOf(err))
	assert.Equal(t, "volume_percent", errors.ContextOf(err)["field"])

	bad = DefaultConfig()
	bad.MultiCountryPercent = dec("-1")
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.VolumeThreshold = -5
	assert.Error(t, bad.Validate())
}
