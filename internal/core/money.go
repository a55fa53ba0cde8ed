// Package core provides money parsing and handling utilities.
//
// Amounts are stored as float64 magnitudes to keep the persisted JSON a plain
// number. Arithmetic on them goes through shopspring/decimal so sums of
// two-decimal values stay exact.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up to two decimals.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).InexactFloat64(), nil
}

// IsFinite reports whether a is neither NaN nor infinite.
func IsFinite(a float64) bool {
	return !math.IsNaN(a) && !math.IsInf(a, 0)
}

// toDecimal converts a to a decimal; non-finite values have no decimal form
// and convert to zero.
func toDecimal(a float64) decimal.Decimal {
	if !IsFinite(a) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(a)
}

// FormatAmount renders an amount with exactly two decimals. NaN and
// infinities render as 0.00.
func FormatAmount(a float64) string {
	return toDecimal(a).StringFixed(2)
}

// accumulator sums amounts without float drift. Non-finite amounts are
// skipped.
type accumulator struct {
	sum decimal.Decimal
}

func (a *accumulator) add(v float64) {
	a.sum = a.sum.Add(toDecimal(v))
}

func (a *accumulator) sub(v float64) {
	a.sum = a.sum.Sub(toDecimal(v))
}

func (a accumulator) value() float64 {
	return a.sum.InexactFloat64()
}
