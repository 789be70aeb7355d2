package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignPayload(t *testing.T) {
	body := []byte(`{"transaction_id":"MOMO-1-ABCD1234","status":"success"}`)

	sig := SignPayload("secret", body)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, SignPayload("secret", body))
	assert.NotEqual(t, sig, SignPayload("other", body))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"status":"success"}`)
	sig := SignPayload("secret", body)

	assert.True(t, VerifySignature("secret", body, sig))
	assert.False(t, VerifySignature("secret", body, ""))
	assert.False(t, VerifySignature("secret", body, "deadbeef"))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("secret", []byte(`{"status":"failed"}`), sig))
}
