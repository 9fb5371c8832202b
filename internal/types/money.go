// README: Common value objects (ids, coordinates, money) shared across modules.
package types

import "github.com/shopspring/decimal"

// Currency is the settlement currency of every order.
const Currency = "INR"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a rupee amount to paise, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
