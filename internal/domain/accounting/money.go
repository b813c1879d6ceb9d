package accounting

import "github.com/shopspring/decimal"

// FromMinor converts integer minor units (cents) to a currency amount
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitScale)
}

// ToMinor converts an amount to minor units, rounding half away from zero
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(MinorUnitScale).Round(0).IntPart()
}

// RoundMoney rounds to the currency scale
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorUnitScale)
}
