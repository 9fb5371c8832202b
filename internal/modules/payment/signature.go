package payment

import (
	"github.com/razorpay/razorpay-go/utils"
)

// Verifier checks the callback signature the gateway attaches to a
// completed payment.
type Verifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) error
}

// SignatureVerifier checks Razorpay checkout callbacks with the key secret.
type SignatureVerifier struct {
	secret string
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

func (v *SignatureVerifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) error {
	if v.secret == "" || gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return ErrInvalidSignature
	}
	ok := utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": gatewayPaymentID,
	}, signature, v.secret)
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}
