// README: Payment gateway collaborator: order-handle creation and callback signature check.
package payment

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"vetrimart/internal/types"
)

var (
	ErrGateway           = errors.New("payment gateway unavailable")
	ErrInvalidSignature  = errors.New("payment signature mismatch")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrMissingCredential = errors.New("payment credentials not configured")
)

// GatewayOrder is the provider-side handle the checkout page pays against.
type GatewayOrder struct {
	ID               string
	AmountMinorUnits int64
	Currency         string
}

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64, receipt string) (*GatewayOrder, error)
	KeyID() string
}

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway creates orders through the Razorpay Orders API.
type RazorpayGateway struct {
	keyID  string
	orders orderAPI
}

func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrMissingCredential
	}
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{keyID: keyID, orders: client.Order}, nil
}

func (g *RazorpayGateway) KeyID() string { return g.keyID }

func (g *RazorpayGateway) CreateOrder(_ context.Context, amountMinorUnits int64, receipt string) (*GatewayOrder, error) {
	if amountMinorUnits <= 0 {
		return nil, ErrInvalidAmount
	}
	body, err := g.orders.Create(map[string]interface{}{
		"amount":          amountMinorUnits,
		"currency":        types.Currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: response without order id", ErrGateway)
	}
	return &GatewayOrder{ID: id, AmountMinorUnits: amountMinorUnits, Currency: types.Currency}, nil
}
