package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentIntent is what the gateway hands back when an intent is created.
type PaymentIntent struct {
	TransactionID string
	PaymentURL    string
	ExpiresAt     time.Time
}

// Gateway creates payment intents with an external provider. The simulator
// stands in for the real provider integrations, which share this contract.
type Gateway interface {
	CreateIntent(ctx context.Context, payment *Payment, method string, returnURL string) (*PaymentIntent, error)
}

// transactionPrefixes maps a payment method to the provider's id scheme.
var transactionPrefixes = map[string]string{
	MethodMomo:    "MOMO",
	MethodVNPay:   "VNP",
	MethodZaloPay: "ZLP",
	MethodCard:    "CARD",
}

type simulatedGateway struct {
	baseURL string
}

// NewSimulatedGateway creates a gateway that mints provider-shaped
// transaction ids and hosted-checkout URLs without calling anyone.
func NewSimulatedGateway(baseURL string) Gateway {
	return &simulatedGateway{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *simulatedGateway) CreateIntent(ctx context.Context, payment *Payment, method string, returnURL string) (*PaymentIntent, error) {
	prefix, ok := transactionPrefixes[method]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method: %s", method)
	}

	transactionID := generateTransactionID(prefix)

	payURL := fmt.Sprintf("%s/%s/pay/%s", g.baseURL, method, transactionID)
	if returnURL != "" {
		payURL = fmt.Sprintf("%s?return_url=%s", payURL, url.QueryEscape(returnURL))
	}

	return &PaymentIntent{
		TransactionID: transactionID,
		PaymentURL:    payURL,
		ExpiresAt:     payment.ExpiresAt,
	}, nil
}

// generateTransactionID creates a unique transaction ID in the provider's
// format, e.g. MOMO-1717171717-9F86D081
func generateTransactionID(prefix string) string {
	timestamp := time.Now().Unix()
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, timestamp, id)
}
