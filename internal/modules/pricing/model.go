// README: Pricing inputs and the totals attached to an order.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoLines         = errors.New("order has no items")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
)

// DefaultTaxRate is the flat tax applied to every order subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.05")

type LineInput struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}
