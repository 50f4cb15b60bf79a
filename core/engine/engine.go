// Package engine provides the API-primary pricing engine.
// CLI and HTTP server are thin wrappers around this engine.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vat-cost/core/cost"
	"vat-cost/core/determinism"
	"vat-cost/core/discount"
	"vat-cost/core/guards"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
	"vat-cost/internal/logging"
)

// Config configures the pricing engine
type Config struct {
	// Currency is the single currency every quote is expressed in
	Currency types.Currency

	// RoundingPlaces is the number of decimal places money is rounded to
	RoundingPlaces int32

	// Workers bounds concurrent country computations
	Workers int

	// MaxCountries bounds the countries in one request
	MaxCountries int

	// Discounts configures the discount engine
	Discounts discount.Config
}

// DefaultConfig returns the standard engine configuration
func DefaultConfig() Config {
	return Config{
		Currency:       types.CurrencyEUR,
		RoundingPlaces: 2,
		Workers:        4,
		MaxCountries:   50,
		Discounts:      discount.DefaultConfig(),
	}
}

// Engine is the primary API for pricing requests.
// It holds no per-request state; one Engine serves concurrent calls.
type Engine struct {
	calculator *cost.Calculator
	discounts  *discount.Engine
	config     Config
	logger     *zap.Logger

	clock func() time.Time
	newID func() string
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock replaces the clock used for zero AsOf and CreatedAt
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDGenerator replaces the calculation id generator
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates a pricing engine over a catalog snapshot
func New(catalog cost.Catalog, config Config, logger *zap.Logger, opts ...Option) *Engine {
	logger = logging.OrDefault(logger)
	if config.Workers < 1 {
		config.Workers = 1
	}

	e := &Engine{
		calculator: cost.NewCalculator(catalog, config.RoundingPlaces, logger),
		discounts:  discount.NewEngine(config.Discounts, config.RoundingPlaces, logger),
		config:     config,
		logger:     logger,
		clock:      time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Calculator exposes the per-country calculator
func (e *Engine) Calculator() *cost.Calculator {
	return e.calculator
}

// Calculate prices a request across all of its countries.
// Any country failure fails the whole calculation.
func (e *Engine) Calculate(ctx context.Context, req types.CalculationContext) (*types.Calculation, error) {
	start := time.Now()

	normalized, err := e.Normalize(req)
	if err != nil {
		return nil, err
	}
	if normalized.AsOf.IsZero() {
		normalized.AsOf = e.clock().UTC()
	}

	breakdowns, err := e.computeCountries(ctx, &normalized)
	if err != nil {
		e.logger.Warn("calculation failed",
			zap.Strings("countries", normalized.CountryCodes),
			zap.String("error_type", string(errors.TypeOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	subtotal := discount.Subtotal(breakdowns)
	discounts := e.discounts.ComputeDiscounts(breakdowns, &normalized)
	totalDiscount := discount.Total(discounts)

	calc := &types.Calculation{
		ID:                 e.newID(),
		InputHash:          determinism.InputHash(&normalized, normalized.AsOf, e.config.Currency),
		ServiceType:        normalized.ServiceType,
		TransactionVolume:  normalized.TransactionVolume,
		FilingFrequency:    normalized.FilingFrequency,
		AdditionalServices: normalized.AdditionalServices,
		Currency:           e.config.Currency,
		AsOf:               normalized.AsOf,
		CreatedAt:          e.clock().UTC(),
		Breakdowns:         breakdowns,
		Subtotal:           subtotal,
		Discounts:          discounts,
		TotalDiscount:      totalDiscount,
		Total:              subtotal.Sub(totalDiscount),
	}
	if err := guards.CheckCalculation(calc); err != nil {
		e.logger.Error("calculation rejected", zap.String("id", calc.ID), zap.Error(err))
		return nil, err
	}

	e.logger.Info("calculation complete",
		zap.String("id", calc.ID),
		zap.Strings("countries", normalized.CountryCodes),
		zap.String("total", calc.Total.String()),
		zap.Duration("duration", time.Since(start)),
	)

	return calc, nil
}

// computeCountries fans out one computation per country, bounded by the
// worker count, and collects results by request position
func (e *Engine) computeCountries(ctx context.Context, req *types.CalculationContext) ([]types.CountryBreakdown, error) {
	results := make([]types.CountryBreakdown, len(req.CountryCodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i, code := range req.CountryCodes {
		i, code := i, code
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Canceled(err).WithContext("country", code)
			}
			b, err := e.calculator.Compute(gctx, code, req)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// the loop may have stopped early without any worker failing
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}
	return results, nil
}

// Normalize validates a request and returns a copy with trimmed, upper-case
// country codes and trimmed add-on identifiers
func (e *Engine) Normalize(req types.CalculationContext) (types.CalculationContext, error) {
	out := req

	if !req.ServiceType.IsValid() {
		return out, errors.Validation("service_type", "unknown service type "+string(req.ServiceType))
	}
	if !req.FilingFrequency.IsValid() {
		return out, errors.Validation("filing_frequency", "unknown filing frequency "+string(req.FilingFrequency))
	}
	if req.TransactionVolume < 1 {
		return out, errors.Validation("transaction_volume", "must be at least 1")
	}
	if len(req.CountryCodes) == 0 {
		return out, errors.Validation("country_codes", "at least one country is required")
	}
	if e.config.MaxCountries > 0 && len(req.CountryCodes) > e.config.MaxCountries {
		return out, errors.Validation("country_codes", "too many countries").
			WithContext("max", e.config.MaxCountries)
	}

	out.CountryCodes = make([]string, 0, len(req.CountryCodes))
	seen := make(map[string]bool, len(req.CountryCodes))
	for _, raw := range req.CountryCodes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			return out, errors.Validation("country_codes", "empty country code")
		}
		if seen[code] {
			return out, errors.Validation("country_codes", "duplicate country "+code)
		}
		seen[code] = true
		out.CountryCodes = append(out.CountryCodes, code)
	}

	out.AdditionalServices = nil
	for _, raw := range req.AdditionalServices {
		if id := strings.TrimSpace(raw); id != "" {
			out.AdditionalServices = append(out.AdditionalServices, id)
		}
	}

	return out, nil
}
