package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedGatewayCreateIntent(t *testing.T) {
	gateway := NewSimulatedGateway("https://pay.test/")
	payment := &Payment{ID: uuid.New(), ExpiresAt: time.Now().Add(15 * time.Minute)}

	intent, err := gateway.CreateIntent(context.Background(), payment, MethodMomo, "")
	require.NoError(t, err)

	assert.Regexp(t, `^MOMO-\d+-[A-Z0-9]{8}$`, intent.TransactionID)
	assert.Equal(t, "https://pay.test/momo/pay/"+intent.TransactionID, intent.PaymentURL)
	assert.True(t, intent.ExpiresAt.Equal(payment.ExpiresAt))
}

func TestSimulatedGatewayPrefixes(t *testing.T) {
	gateway := NewSimulatedGateway("https://pay.test")
	payment := &Payment{ExpiresAt: time.Now().Add(15 * time.Minute)}

	cases := map[string]string{
		MethodMomo:    "MOMO-",
		MethodVNPay:   "VNP-",
		MethodZaloPay: "ZLP-",
		MethodCard:    "CARD-",
	}
	for method, prefix := range cases {
		intent, err := gateway.CreateIntent(context.Background(), payment, method, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(intent.TransactionID, prefix), "method %s produced %s", method, intent.TransactionID)
	}
}

func TestSimulatedGatewayReturnURL(t *testing.T) {
	gateway := NewSimulatedGateway("https://pay.test")
	payment := &Payment{ExpiresAt: time.Now().Add(15 * time.Minute)}

	intent, err := gateway.CreateIntent(context.Background(), payment, MethodCard, "https://app.example.com/done?x=1")
	require.NoError(t, err)

	assert.Contains(t, intent.PaymentURL, "return_url=https%3A%2F%2Fapp.example.com%2Fdone%3Fx%3D1")
}

func TestSimulatedGatewayUnknownMethod(t *testing.T) {
	gateway := NewSimulatedGateway("https://pay.test")

	_, err := gateway.CreateIntent(context.Background(), &Payment{}, "paypal", "")
	assert.Error(t, err)
}
