// README: Checkout lines. A persistent cart row and a buy-now product share one interface.
package cart

import (
	"github.com/shopspring/decimal"

	"vetrimart/internal/modules/pricing"
	"vetrimart/internal/types"
)

type ProductRef struct {
	ID   types.ID
	Name string
}

// Line is one product being checked out.
type Line interface {
	Product() ProductRef
	Quantity() int
	UnitPrice() decimal.Decimal
}

// RegularItem is a row of the customer's saved cart.
type RegularItem struct {
	CartItemID types.ID
	Ref        ProductRef
	Qty        int
	Price      decimal.Decimal
}

func (i RegularItem) Product() ProductRef        { return i.Ref }
func (i RegularItem) Quantity() int              { return i.Qty }
func (i RegularItem) UnitPrice() decimal.Decimal { return i.Price }

// BuyNowItem is a single product purchased directly from its page; it never
// touches the saved cart.
type BuyNowItem struct {
	Ref   ProductRef
	Qty   int
	Price decimal.Decimal
}

func (i BuyNowItem) Product() ProductRef        { return i.Ref }
func (i BuyNowItem) Quantity() int              { return i.Qty }
func (i BuyNowItem) UnitPrice() decimal.Decimal { return i.Price }

// PricingInputs adapts lines for pricing.Service.Totals.
func PricingInputs(lines []Line) []pricing.LineInput {
	out := make([]pricing.LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.LineInput{UnitPrice: l.UnitPrice(), Quantity: l.Quantity()})
	}
	return out
}
