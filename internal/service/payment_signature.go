package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/razorpay/razorpay-go/utils"
)

// PaymentSigner computes and checks the provider callback signature:
// hex(HMAC-SHA256(secret, orderID + "|" + transactionID)).
type PaymentSigner struct {
	secret string
}

func NewPaymentSigner(secret string) *PaymentSigner {
	return &PaymentSigner{secret: secret}
}

// Sign produces the signature the provider attaches to a successful checkout.
func (s *PaymentSigner) Sign(orderID, transactionID string) string {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write([]byte(orderID + "|" + transactionID))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify matches the lower-case hex signature byte for byte, in constant time.
// Any other spelling of the same digest is rejected.
func (s *PaymentSigner) Verify(orderID, transactionID, signature string) bool {
	if s.secret == "" || orderID == "" || transactionID == "" || signature == "" {
		return false
	}
	attributes := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": transactionID,
	}
	return utils.VerifyPaymentSignature(attributes, signature, s.secret)
}
