package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	eng := cfg.Engine()
	assert.Equal(t, types.CurrencyEUR, eng.Currency)
	assert.Equal(t, int32(2), eng.RoundingPlaces)
	assert.Equal(t, 4, eng.Workers)
	assert.Equal(t, 50, eng.MaxCountries)
	assert.Equal(t, 1000, eng.Discounts.VolumeThreshold)
	assert.True(t, eng.Discounts.MultiCountryPercent.Equal(decimal.NewFromInt(10)))
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "pricing": {"currency": "GBP", "workers": 2},
  "discounts": {"multi_country_percent": "12.5"}
}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.CurrencyGBP, cfg.Pricing.Currency)
	assert.Equal(t, 2, cfg.Pricing.Workers)
	assert.Equal(t, 50, cfg.Pricing.MaxCountries)
	assert.True(t, cfg.Discounts.MultiCountryPercent.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, cfg.Discounts.VolumePercent.Equal(decimal.NewFromInt(5)))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().Pricing, cfg.Pricing)
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pricing": `), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.TypeConfig, errors.TypeOf(err))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Catalog.Path = "/srv/catalog"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/catalog", loaded.Catalog.Path)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"VATCOST_CURRENCY":              "gbp",
		"VATCOST_WORKERS":               "8",
		"VATCOST_MULTI_COUNTRY_PERCENT": "15",
		"VATCOST_CATALOG_PATH":          "/etc/vat-cost/catalog",
		"VATCOST_STORAGE_ENABLED":       "false",
		"VATCOST_ALLOWED_ORIGINS":       "https://a.example,https://b.example",
		"VATCOST_LOG_LEVEL":             "debug",
		"VATCOST_SERVER_ADDR":           " ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, types.CurrencyGBP, cfg.Pricing.Currency)
	assert.Equal(t, 8, cfg.Pricing.Workers)
	assert.True(t, cfg.Discounts.MultiCountryPercent.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "/etc/vat-cost/catalog", cfg.Catalog.Path)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr, "blank values are ignored")
}

func TestApplyEnvReportsBadValues(t *testing.T) {
	env := map[string]string{
		"VATCOST_WORKERS":       "many",
		"VATCOST_VOLUME_PERCENT": "five",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VATCOST_WORKERS")
	assert.Contains(t, err.Error(), "VATCOST_VOLUME_PERCENT")
	assert.Equal(t, 4, cfg.Pricing.Workers)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("VATCOST_MAX_COUNTRIES=12\nVATCOST_OUTPUT_FORMAT=json\n"), 0644))
	t.Setenv("VATCOST_OUTPUT_FORMAT", "cli")
	t.Setenv("VATCOST_MAX_COUNTRIES", "")
	os.Unsetenv("VATCOST_MAX_COUNTRIES")

	cfg := Default()
	require.NoError(t, cfg.LoadEnv(dotenv, filepath.Join(dir, "missing.env")))
	assert.Equal(t, 12, cfg.Pricing.MaxCountries)
	assert.Equal(t, "cli", cfg.Output.DefaultFormat, "process environment wins over .env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"currency", func(c *Config) { c.Pricing.Currency = "euro" }, "pricing.currency"},
		{"places", func(c *Config) { c.Pricing.RoundingPlaces = -1 }, "pricing.rounding_places"},
		{"workers", func(c *Config) { c.Pricing.Workers = 0 }, "pricing.workers"},
		{"max countries", func(c *Config) { c.Pricing.MaxCountries = 0 }, "pricing.max_countries"},
		{"percent", func(c *Config) { c.Discounts.VolumePercent = decimal.NewFromInt(101) }, "discounts.volume_percent"},
		{"threshold", func(c *Config) { c.Discounts.MultiCountryMinimum = -1 }, "discounts.multi_country_minimum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.TypeConfig, errors.TypeOf(err))
			assert.Equal(t, tt.field, errors.ContextOf(err)["field"])
		})
	}
}
