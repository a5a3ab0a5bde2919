package paystack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"TK-1"}}`)
	secret := "sk_test_secret"

	signature := Hmac512(body, []byte(secret))

	assert.True(t, VerifySignature(body, signature, secret))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	signature := Hmac512(body, []byte("sk_other"))

	assert.False(t, VerifySignature(body, signature, "sk_test_secret"))
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"amount":500000}}`)
	secret := "sk_test_secret"
	signature := Hmac512(body, []byte(secret))

	tampered := []byte(`{"event":"charge.success","data":{"amount":900000}}`)

	assert.False(t, VerifySignature(tampered, signature, secret))
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	assert.False(t, VerifySignature([]byte(`{}`), "", "sk_test_secret"))
}

func TestVerifySignature_EmptySecret(t *testing.T) {
	body := []byte(`{}`)
	signature := Hmac512(body, []byte(""))

	// an unset secret must never verify, even if the signature matches
	assert.False(t, VerifySignature(body, signature, ""))
}
