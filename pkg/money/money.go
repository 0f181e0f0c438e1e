// Package money converts between decimal amounts on the wire and int64 minor
// units (1/100 of the currency unit) used in storage.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const minorExp = 2

// MaxAmount is the largest magnitude, in minor units, accepted for a price,
// a line total or an order total.
const MaxAmount int64 = 10_000_000_000_000

var maxDecimal = decimal.NewFromInt(MaxAmount)

// FromDecimal converts a decimal amount to minor units, rounding half away
// from zero. Amounts beyond MaxAmount saturate at MaxAmount+1 so they fail
// InRange instead of wrapping around.
func FromDecimal(d decimal.Decimal) int64 {
	minor := d.Shift(minorExp).Round(0)
	if minor.Abs().GreaterThan(maxDecimal) {
		if minor.Sign() < 0 {
			return -(MaxAmount + 1)
		}
		return MaxAmount + 1
	}
	return minor.IntPart()
}

// InRange reports whether minor is within [-MaxAmount, MaxAmount].
func InRange(minor int64) bool {
	return minor >= -MaxAmount && minor <= MaxAmount
}

// MulQty returns minor*qty. ok is false when either operand or the product
// falls outside the accepted range.
func MulQty(minor int64, qty int) (total int64, ok bool) {
	if !InRange(minor) || qty < 0 {
		return 0, false
	}
	if minor == 0 || qty == 0 {
		return 0, true
	}
	if Abs(minor) > MaxAmount/int64(qty) {
		return 0, false
	}
	return minor * int64(qty), true
}

// Add returns a+b. ok is false when an operand or the sum is out of range.
func Add(a, b int64) (sum int64, ok bool) {
	if !InRange(a) || !InRange(b) {
		return 0, false
	}
	sum = a + b
	return sum, InRange(sum)
}

// FromOptional converts an optional decimal, returning nil when absent.
func FromOptional(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	v := FromDecimal(*d)
	return &v
}

// ToDecimal converts minor units back into a decimal amount.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorExp)
}

// Float renders minor units as a float for JSON responses.
func Float(minor int64) float64 {
	return ToDecimal(minor).InexactFloat64()
}

// FloatPtr is Float for nullable columns.
func FloatPtr(minor *int64) *float64 {
	if minor == nil {
		return nil
	}
	f := Float(*minor)
	return &f
}

// Format renders minor units with two decimals, e.g. "280.00".
func Format(minor int64) string {
	return ToDecimal(minor).StringFixed(minorExp)
}

// FormatWithCurrency prefixes the formatted amount with a currency label.
func FormatWithCurrency(currency string, minor int64) string {
	if currency == "" {
		return Format(minor)
	}
	return fmt.Sprintf("%s %s", currency, Format(minor))
}

// Abs returns the absolute value of a minor-unit amount.
func Abs(minor int64) int64 {
	if minor < 0 {
		return -minor
	}
	return minor
}
