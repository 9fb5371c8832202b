package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestService_Totals(t *testing.T) {
	tests := []struct {
		name         string
		lines        []LineInput
		wantSubtotal string
		wantTax      string
		wantTotal    string
	}{
		{
			name:         "single line",
			lines:        []LineInput{{UnitPrice: d("100"), Quantity: 1}},
			wantSubtotal: "100",
			wantTax:      "5",
			wantTotal:    "105",
		},
		{
			name: "multiple lines",
			// 2 x 45.50 + 3 x 20 = 151.00, tax 7.55
			lines:        []LineInput{{UnitPrice: d("45.50"), Quantity: 2}, {UnitPrice: d("20"), Quantity: 3}},
			wantSubtotal: "151",
			wantTax:      "7.55",
			wantTotal:    "158.55",
		},
		{
			name: "tax rounds to paise",
			// 0.05 x 33.33 = 1.6665 -> 1.67
			lines:        []LineInput{{UnitPrice: d("33.33"), Quantity: 1}},
			wantSubtotal: "33.33",
			wantTax:      "1.67",
			wantTotal:    "35",
		},
		{
			name:         "free item",
			lines:        []LineInput{{UnitPrice: d("0"), Quantity: 4}},
			wantSubtotal: "0",
			wantTax:      "0",
			wantTotal:    "0",
		},
	}

	s := NewService(DefaultTaxRate)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Totals(tt.lines)
			if err != nil {
				t.Fatalf("Totals() error = %v", err)
			}
			if !got.Subtotal.Equal(d(tt.wantSubtotal)) {
				t.Errorf("subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			}
			if !got.Tax.Equal(d(tt.wantTax)) {
				t.Errorf("tax = %s, want %s", got.Tax, tt.wantTax)
			}
			if !got.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", got.Total, tt.wantTotal)
			}
			if !got.Total.Equal(got.Subtotal.Add(got.Tax)) {
				t.Errorf("total %s != subtotal %s + tax %s", got.Total, got.Subtotal, got.Tax)
			}
		})
	}
}

func TestService_TotalsIdempotent(t *testing.T) {
	s := NewService(DefaultTaxRate)
	lines := []LineInput{{UnitPrice: d("12.99"), Quantity: 7}}
	first, err := s.Totals(lines)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	second, _ := s.Totals(lines)
	if !first.Total.Equal(second.Total) || !first.Tax.Equal(second.Tax) {
		t.Fatalf("totals differ across calls: %v vs %v", first, second)
	}
}

func TestService_TotalsRejectsBadLines(t *testing.T) {
	s := NewService(DefaultTaxRate)
	if _, err := s.Totals(nil); err != ErrNoLines {
		t.Errorf("empty: got %v, want ErrNoLines", err)
	}
	if _, err := s.Totals([]LineInput{{UnitPrice: d("1"), Quantity: 0}}); err != ErrInvalidQuantity {
		t.Errorf("zero quantity: got %v, want ErrInvalidQuantity", err)
	}
	if _, err := s.Totals([]LineInput{{UnitPrice: d("-1"), Quantity: 1}}); err != ErrInvalidPrice {
		t.Errorf("negative price: got %v, want ErrInvalidPrice", err)
	}
}
