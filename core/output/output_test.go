package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-cost/core/discount"
	"vat-cost/core/engine"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleCalculation() *types.Calculation {
	return &types.Calculation{
		ID:                "calc-1",
		ServiceType:       types.ServiceStandard,
		TransactionVolume: 1500,
		FilingFrequency:   types.FrequencyMonthly,
		Currency:          types.CurrencyGBP,
		AsOf:              time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Breakdowns: []types.CountryBreakdown{{
			CountryCode:    "GB",
			CountryName:    "United Kingdom",
			BaseCost:       dec("800"),
			AdditionalCost: dec("256"),
			TotalCost:      dec("1056"),
			AppliedRules:   []string{"gb-vat", "gb-threshold"},
			Adjustments: []types.AppliedRule{
				{RuleID: "gb-vat", Name: "UK VAT", Adjustment: dec("160"), RunningTotal: dec("960")},
				{RuleID: "gb-threshold", Name: "High volume", Adjustment: dec("96"), RunningTotal: dec("1056")},
			},
		}},
		Subtotal:      dec("1056"),
		Discounts:     map[string]decimal.Decimal{discount.VolumeDiscount: dec("52.8")},
		TotalDiscount: dec("52.8"),
		Total:         dec("1003.2"),
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(2).Render(&buf, sampleCalculation()))
	out := buf.String()

	assert.Contains(t, out, "VAT FILING QUOTE")
	assert.Contains(t, out, "GB United Kingdom")
	assert.Contains(t, out, "1056.00 GBP")
	assert.Contains(t, out, "└─ High volume (gb-threshold)")
	assert.Contains(t, out, "-52.80 GBP")
	assert.Contains(t, out, "1003.20 GBP")
	assert.Contains(t, out, "Calculation calc-1")

	var width int
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "│") {
			n := len([]rune(line))
			if width == 0 {
				width = n
			}
			assert.Equal(t, width, n, "misaligned row %q", line)
		}
	}
}

func TestJSONRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Render(&buf, sampleCalculation()))

	var decoded types.Calculation
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "calc-1", decoded.ID)
	assert.True(t, decoded.Total.Equal(dec("1003.2")))
	assert.Equal(t, []string{"gb-vat", "gb-threshold"}, decoded.Breakdowns[0].AppliedRules)
}

func TestRenderComparison(t *testing.T) {
	cheap := sampleCalculation()
	cheap.Total = dec("600")
	cmp := &engine.Comparison{
		Results: []engine.ScenarioResult{
			{Name: "standard", Calculation: sampleCalculation()},
			{Name: "basic", Calculation: cheap},
		},
		Cheapest: "basic",
		Spread:   dec("403.2"),
	}

	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(2).RenderComparison(&buf, cmp))
	assert.Contains(t, buf.String(), "basic *")
	assert.Contains(t, buf.String(), "403.20")

	buf.Reset()
	require.NoError(t, NewJSONFormatter().RenderComparison(&buf, cmp))
	assert.Contains(t, buf.String(), `"cheapest": "basic"`)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(2)
	assert.Equal(t, []string{"cli", "json"}, r.Formats())

	f, err := r.Get("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f.Format())

	_, err = r.Get("pdf")
	assert.Equal(t, errors.TypeValidation, errors.TypeOf(err))
}
