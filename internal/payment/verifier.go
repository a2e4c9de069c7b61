// Package payment checks gateway callbacks.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier validates Razorpay-style checkout signatures: the hex encoded
// HMAC-SHA256 of "order_id|payment_id" keyed with the merchant secret.
type Verifier struct {
	Secret string
}

// Sign computes the expected signature.
func (v Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches.  An empty secret never
// verifies.
func (v Verifier) Verify(orderID, paymentID, signature string) bool {
	if v.Secret == "" || orderID == "" || paymentID == "" {
		return false
	}
	want := v.Sign(orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
