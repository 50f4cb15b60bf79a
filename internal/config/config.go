// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"vat-cost/core/discount"
	"vat-cost/core/engine"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
	"vat-cost/internal/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "VATCOST_"

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Pricing contains engine settings
	Pricing PricingConfig `json:"pricing"`

	// Discounts contains the discount schedule
	Discounts DiscountConfig `json:"discounts"`

	// Catalog locates the pricing catalog
	Catalog CatalogConfig `json:"catalog"`

	// Storage contains calculation history settings
	Storage StorageConfig `json:"storage"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// Currency is the quote currency
	Currency types.Currency `json:"currency"`

	// RoundingPlaces is the number of decimal places money is rounded to
	RoundingPlaces int32 `json:"rounding_places"`

	// Workers bounds concurrent country computations per request
	Workers int `json:"workers"`

	// MaxCountries bounds the countries in one request
	MaxCountries int `json:"max_countries"`
}

// DiscountConfig contains discount thresholds; percentages are in percent
type DiscountConfig struct {
	VolumeThreshold     int             `json:"volume_threshold"`
	VolumePercent       decimal.Decimal `json:"volume_percent"`
	MultiCountryMinimum int             `json:"multi_country_minimum"`
	MultiCountryPercent decimal.Decimal `json:"multi_country_percent"`
}

// CatalogConfig locates catalog files
type CatalogConfig struct {
	// Path is a catalog file or a directory of *.hcl files
	Path string `json:"path"`
}

// StorageConfig contains calculation history settings
type StorageConfig struct {
	// Enabled turns on calculation history
	Enabled bool `json:"enabled"`

	// Path is the SQLite database file
	Path string `json:"path"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`

	// RequestTimeoutSeconds bounds one request
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// AllowedOrigins are the CORS origins
	AllowedOrigins []string `json:"allowed_origins"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `json:"default_format"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".vat-cost", "calculations.db")

	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			Currency:       types.CurrencyEUR,
			RoundingPlaces: 2,
			Workers:        4,
			MaxCountries:   50,
		},
		Discounts: DiscountConfig{
			VolumeThreshold:     1000,
			VolumePercent:       decimal.NewFromInt(5),
			MultiCountryMinimum: 3,
			MultiCountryPercent: decimal.NewFromInt(10),
		},
		Catalog: CatalogConfig{
			Path: "catalog",
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    dbPath,
		},
		Server: ServerConfig{
			Addr:                  ":8080",
			RequestTimeoutSeconds: 30,
			AllowedOrigins:        []string{"*"},
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(errors.TypeConfig, err, "failed to read config %s", path)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(errors.TypeConfig, err, "failed to parse config %s", path)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadEnv reads optional .env files (missing files are skipped) and then
// applies VATCOST_* environment overrides. Variables already set in the
// process environment win over .env values.
func (c *Config) LoadEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return errors.Wrap(errors.TypeConfig, "failed to load .env", err)
		}
	}
	return c.ApplyEnv(os.LookupEnv)
}

// ApplyEnv applies VATCOST_* overrides read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	var errs error
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(errors.TypeConfig, err, "%s%s", EnvPrefix, name))
				return
			}
			*dst = n
		}
	}
	setDecimal := func(name string, dst *decimal.Decimal) {
		if v, ok := get(name); ok {
			d, err := decimal.NewFromString(v)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(errors.TypeConfig, err, "%s%s", EnvPrefix, name))
				return
			}
			*dst = d
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	if v, ok := get("CURRENCY"); ok {
		c.Pricing.Currency = types.Currency(strings.ToUpper(v))
	}
	places := int(c.Pricing.RoundingPlaces)
	setInt("ROUNDING_PLACES", &places)
	c.Pricing.RoundingPlaces = int32(places)
	setInt("WORKERS", &c.Pricing.Workers)
	setInt("MAX_COUNTRIES", &c.Pricing.MaxCountries)

	setInt("VOLUME_THRESHOLD", &c.Discounts.VolumeThreshold)
	setDecimal("VOLUME_PERCENT", &c.Discounts.VolumePercent)
	setInt("MULTI_COUNTRY_MINIMUM", &c.Discounts.MultiCountryMinimum)
	setDecimal("MULTI_COUNTRY_PERCENT", &c.Discounts.MultiCountryPercent)

	setString("CATALOG_PATH", &c.Catalog.Path)
	setString("STORAGE_PATH", &c.Storage.Path)
	if v, ok := get("STORAGE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(errors.TypeConfig, err, "%sSTORAGE_ENABLED", EnvPrefix))
		} else {
			c.Storage.Enabled = b
		}
	}
	setString("SERVER_ADDR", &c.Server.Addr)
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	setString("OUTPUT_FORMAT", &c.Output.DefaultFormat)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	return errs
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if !currencyPattern.MatchString(string(c.Pricing.Currency)) {
		return errors.Config("pricing.currency must be a three-letter ISO 4217 code").
			WithContext("field", "pricing.currency")
	}
	if c.Pricing.RoundingPlaces < 0 || c.Pricing.RoundingPlaces > 8 {
		return errors.Config("pricing.rounding_places must be between 0 and 8").
			WithContext("field", "pricing.rounding_places")
	}
	if c.Pricing.Workers < 1 {
		return errors.Config("pricing.workers must be at least 1").
			WithContext("field", "pricing.workers")
	}
	if c.Pricing.MaxCountries < 1 {
		return errors.Config("pricing.max_countries must be at least 1").
			WithContext("field", "pricing.max_countries")
	}
	if err := c.DiscountSchedule().Validate(); err != nil {
		return errors.Wrap(errors.TypeConfig, "invalid discount schedule", err).
			WithContext("field", "discounts."+fieldOf(err))
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return errors.Config("server.request_timeout_seconds must not be negative").
			WithContext("field", "server.request_timeout_seconds")
	}
	return nil
}

// DiscountSchedule converts the discount section for the discount engine
func (c *Config) DiscountSchedule() discount.Config {
	return discount.Config{
		VolumeThreshold:     c.Discounts.VolumeThreshold,
		VolumePercent:       c.Discounts.VolumePercent,
		MultiCountryMinimum: c.Discounts.MultiCountryMinimum,
		MultiCountryPercent: c.Discounts.MultiCountryPercent,
	}
}

// Engine converts the pricing and discount sections for the pricing engine
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Currency:       c.Pricing.Currency,
		RoundingPlaces: c.Pricing.RoundingPlaces,
		Workers:        c.Pricing.Workers,
		MaxCountries:   c.Pricing.MaxCountries,
		Discounts:      c.DiscountSchedule(),
	}
}

func fieldOf(err error) string {
	if f, ok := errors.ContextOf(err)["field"].(string); ok {
		return f
	}
	return ""
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
