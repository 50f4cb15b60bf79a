// Package storage provides calculation history persistence.
// Backends: SQLite for durable history, memory for tests and ephemeral servers.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Store is the storage interface
type Store interface {
	// Save stores a calculation; saving the same ID twice is an error
	Save(ctx context.Context, calc *types.Calculation) error

	// Get retrieves a calculation by ID
	Get(ctx context.Context, id string) (*types.Calculation, error)

	// List lists calculations newest first
	List(ctx context.Context, filter *ListFilter) ([]*types.Calculation, error)

	// Delete removes a calculation
	Delete(ctx context.Context, id string) error

	// Compare compares two stored calculations
	Compare(ctx context.Context, oldID, newID string) (*CompareResult, error)

	// Close closes the store
	Close() error
}

// ListFilter filters result listing
type ListFilter struct {
	InputHash string
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// CompareResult is the delta between two stored calculations
type CompareResult struct {
	OldID        string          `json:"old_id"`
	NewID        string          `json:"new_id"`
	OldTotal     decimal.Decimal `json:"old_total"`
	NewTotal     decimal.Decimal `json:"new_total"`
	Delta        decimal.Decimal `json:"delta"`
	DeltaPercent decimal.Decimal `json:"delta_percent"`
	SameInputs   bool            `json:"same_inputs"`
}

func compare(oldCalc, newCalc *types.Calculation) (*CompareResult, error) {
	if oldCalc.Currency != newCalc.Currency {
		return nil, errors.Validation("currency",
			"cannot compare "+string(oldCalc.Currency)+" with "+string(newCalc.Currency))
	}

	delta := newCalc.Total.Sub(oldCalc.Total)
	deltaPercent := decimal.Zero
	if oldCalc.Total.IsPositive() {
		deltaPercent = delta.Div(oldCalc.Total).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &CompareResult{
		OldID:        oldCalc.ID,
		NewID:        newCalc.ID,
		OldTotal:     oldCalc.Total,
		NewTotal:     newCalc.Total,
		Delta:        delta,
		DeltaPercent: deltaPercent,
		SameInputs:   oldCalc.InputHash != "" && oldCalc.InputHash == newCalc.InputHash,
	}, nil
}

func (f *ListFilter) matches(calc *types.Calculation) bool {
	if f == nil {
		return true
	}
	if f.InputHash != "" && calc.InputHash != f.InputHash {
		return false
	}
	if !f.Since.IsZero() && calc.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && calc.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// Open creates a store by backend type
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported storage backend: %s", backend)
	}
}
