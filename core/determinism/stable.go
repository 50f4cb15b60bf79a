// Package determinism provides primitives for reproducible output.
// Map iteration, fingerprints and money rendering go through here so that
// identical inputs always produce identical bytes.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vat-cost/core/types"
)

// Hasher builds a stable SHA-256 fingerprint from ordered parts
type Hasher struct {
	namespace string
	parts     []string
}

// NewHasher creates a hasher with a namespace
func NewHasher(namespace string) *Hasher {
	return &Hasher{namespace: namespace}
}

// Add appends parts to the fingerprint
func (h *Hasher) Add(parts ...string) *Hasher {
	h.parts = append(h.parts, parts...)
	return h
}

// Sum returns the hex fingerprint
func (h *Hasher) Sum() string {
	d := sha256.New()
	d.Write([]byte(h.namespace))
	d.Write([]byte{0}) // Separator
	for _, part := range h.parts {
		d.Write([]byte(part))
		d.Write([]byte{0}) // Separator
	}
	return hex.EncodeToString(d.Sum(nil))
}

// InputHash fingerprints a calculation request at a resolved instant.
// Add-on order does not matter; country order does, since it fixes output order.
func InputHash(req *types.CalculationContext, asOf time.Time, currency types.Currency) string {
	addOns := append([]string(nil), req.AdditionalServices...)
	sort.Strings(addOns)

	return NewHasher("calculation").
		Add(
			string(req.ServiceType),
			fmt.Sprint(req.TransactionVolume),
			string(req.FilingFrequency),
			strings.Join(req.CountryCodes, ","),
			strings.Join(addOns, ","),
			asOf.UTC().Format(time.RFC3339Nano),
			string(currency),
		).
		Sum()
}

// Money is an amount in a currency, rendered with fixed decimal places
type Money struct {
	amount   decimal.Decimal
	currency types.Currency
}

// NewMoney creates Money from a decimal amount
func NewMoney(amount decimal.Decimal, currency types.Currency) Money {
	return Money{amount: amount, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() types.Currency {
	return m.currency
}

// Format renders the amount with places decimal places and the currency code
func (m Money) Format(places int32) string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(places), m.currency)
}

// String returns formatted money (2 decimal places)
func (m Money) String() string {
	return m.Format(2)
}

// SortedKeys returns a sorted copy of map keys
func SortedKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}

// RangeMapSorted iterates over a map in sorted key order
func RangeMapSorted[K comparable, V any](m map[K]V, fn func(K, V) bool) {
	for _, k := range SortedKeys(m) {
		if !fn(k, m[k]) {
			break
		}
	}
}
