package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign computes hex(HMAC-SHA256(secret, intentID + "|" + paymentID)), the
// signature the gateway attaches to a completed checkout.
func Sign(intentID, paymentID, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(intentID, paymentID, signature, secret string) bool {
	expected := Sign(intentID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
