package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader is the header Paystack sends with every webhook delivery.
const SignatureHeader = "X-Paystack-Signature"

// Hmac512 generates the hex HMAC-SHA512 of body under key.
func Hmac512(body, key []byte) string {
	hash := hmac.New(sha512.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifySignature checks the header-supplied signature against the exact
// raw bytes of the webhook body. Constant-time compare; a mismatch must
// stop all further processing.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Hmac512(body, []byte(secret))
	return hmac.Equal([]byte(signature), []byte(expected))
}
