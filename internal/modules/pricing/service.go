// README: Pricing service computes order subtotal, tax and total.
package pricing

import (
	"github.com/shopspring/decimal"
)

type Service struct {
	taxRate decimal.Decimal
}

func NewService(taxRate decimal.Decimal) *Service {
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &Service{taxRate: taxRate}
}

func (s *Service) TaxRate() decimal.Decimal { return s.taxRate }

// Totals sums unit_price x quantity over the lines and applies the tax rate.
// The result depends only on the lines, so repeated calls agree.
func (s *Service) Totals(lines []LineInput) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrNoLines
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Totals{}, ErrInvalidQuantity
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, ErrInvalidPrice
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(s.taxRate).Round(2)
	total := subtotal.Add(tax)

	return Totals{Subtotal: subtotal, Tax: tax, Total: total}, nil
}
