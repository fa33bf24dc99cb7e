// Package money converts between display amounts and the int64 minor units
// the ledger stores. One display unit is 100 minor units.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits in a display amount.
const Scale = 2

// MaxAmount is the largest amount a single request may carry:
// 1,000,000,000.00 in display units.
const MaxAmount int64 = 100_000_000_000

var (
	ErrTooPrecise = errors.New("amount has more than 2 decimal places")
	ErrOutOfRange = errors.New("amount out of range")
)

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// FromMinor converts minor units to a display decimal.
func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -Scale)
}

// ToMinor converts a display decimal to minor units without rounding.
func ToMinor(d decimal.Decimal) (int64, error) {
	if !d.Round(Scale).Equal(d) {
		return 0, ErrTooPrecise
	}
	minor := d.Shift(Scale)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrOutOfRange
	}
	return minor.IntPart(), nil
}

// Parse reads a display amount such as "12.50".
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return ToMinor(d)
}

// Format renders minor units with exactly two decimals.
func Format(v int64) string {
	return FromMinor(v).StringFixed(Scale)
}
