package billing

import "github.com/shopspring/decimal"

// Gateway amounts arrive as integer minor units (cents). They are converted
// to major-unit decimals exactly once, at the persistence boundary; nothing
// past that boundary works in cents.

// FromMinorUnits converts integer cents to a major-unit decimal:
// 12345 -> 123.45.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToMinorUnits converts a major-unit decimal back to integer cents. It is the
// exact inverse of FromMinorUnits for any amount with at most two fractional
// digits.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}
