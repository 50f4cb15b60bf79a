package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

func calculation(id, hash string, total string, created time.Time) *types.Calculation {
	return &types.Calculation{
		ID:                id,
		InputHash:         hash,
		ServiceType:       types.ServiceStandard,
		TransactionVolume: 500,
		FilingFrequency:   types.FrequencyMonthly,
		Currency:          types.CurrencyEUR,
		CreatedAt:         created,
		Breakdowns: []types.CountryBreakdown{{
			CountryCode:  "GB",
			TotalCost:    decimal.RequireFromString(total),
			AppliedRules: []string{"gb-vat"},
		}},
		Subtotal:  decimal.RequireFromString(total),
		Discounts: map[string]decimal.Decimal{},
		Total:     decimal.RequireFromString(total),
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	memSQL, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	fileSQL, err := Open(BackendSQLite, filepath.Join(t.TempDir(), "db", "calc.db"))
	require.NoError(t, err)
	mem, err := Open(BackendMemory, "")
	require.NoError(t, err)

	stores := map[string]Store{"sqlite-memory": memSQL, "sqlite-file": fileSQL, "memory": mem}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, calculation("a", "h1", "960", now)))

			got, err := store.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "h1", got.InputHash)
			assert.True(t, got.Total.Equal(decimal.NewFromInt(960)))
			assert.True(t, got.CreatedAt.Equal(now))
			assert.Equal(t, []string{"gb-vat"}, got.Breakdowns[0].AppliedRules)

			err = store.Save(ctx, calculation("a", "h1", "960", now))
			assert.Equal(t, errors.TypeValidation, errors.TypeOf(err))

			_, err = store.Get(ctx, "missing")
			assert.Equal(t, errors.TypeNotFound, errors.TypeOf(err))
		})
	}
}

func TestListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, calculation("old", "h1", "100", base)))
			require.NoError(t, store.Save(ctx, calculation("mid", "h2", "200", base.Add(time.Hour))))
			require.NoError(t, store.Save(ctx, calculation("new", "h1", "300", base.Add(2*time.Hour))))

			all, err := store.List(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"new", "mid", "old"}, ids(all))

			byHash, err := store.List(ctx, &ListFilter{InputHash: "h1"})
			require.NoError(t, err)
			assert.Equal(t, []string{"new", "old"}, ids(byHash))

			page, err := store.List(ctx, &ListFilter{Limit: 1, Offset: 1})
			require.NoError(t, err)
			assert.Equal(t, []string{"mid"}, ids(page))

			since, err := store.List(ctx, &ListFilter{Since: base.Add(time.Hour)})
			require.NoError(t, err)
			assert.Equal(t, []string{"new", "mid"}, ids(since))
		})
	}
}

func TestDeleteAndCompare(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, calculation("a", "h1", "800", now)))
			require.NoError(t, store.Save(ctx, calculation("b", "h1", "1000", now)))

			cmp, err := store.Compare(ctx, "a", "b")
			require.NoError(t, err)
			assert.True(t, cmp.Delta.Equal(decimal.NewFromInt(200)))
			assert.True(t, cmp.DeltaPercent.Equal(decimal.NewFromInt(25)))
			assert.True(t, cmp.SameInputs)

			require.NoError(t, store.Delete(ctx, "a"))
			assert.Equal(t, errors.TypeNotFound, errors.TypeOf(store.Delete(ctx, "a")))

			_, err = store.Compare(ctx, "a", "b")
			assert.Equal(t, errors.TypeNotFound, errors.TypeOf(err))
		})
	}
}

func TestCompareRejectsMixedCurrencies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gbp := calculation("b", "h", "1", time.Now())
	gbp.Currency = types.CurrencyGBP
	require.NoError(t, store.Save(ctx, calculation("a", "h", "1", time.Now())))
	require.NoError(t, store.Save(ctx, gbp))

	_, err := store.Compare(ctx, "a", "b")
	assert.Equal(t, errors.TypeValidation, errors.TypeOf(err))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("s3", "")
	assert.Equal(t, errors.TypeConfig, errors.TypeOf(err))
}

func ids(calcs []*types.Calculation) []string {
	out := make([]string, len(calcs))
	for i, c := range calcs {
		out[i] = c.ID
	}
	return out
}
