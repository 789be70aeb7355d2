package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentResponse struct {
	PaymentID            string          `json:"payment_id"`
	BookingID            string          `json:"booking_id"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	PaymentMethod        string          `json:"payment_method"`
	PaymentURL           string          `json:"payment_url,omitempty"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	ExpiresAt            time.Time       `json:"expires_at"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// WebhookResponse is what the gateway sees. It deliberately leaks nothing
// about internal state beyond acknowledgement.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ToResponse converts a Payment to its API shape.
func (p *Payment) ToResponse() *PaymentResponse {
	return &PaymentResponse{
		PaymentID:            p.ID.String(),
		BookingID:            p.BookingID.String(),
		Status:               p.Status.String(),
		Amount:               p.Amount,
		Currency:             p.Currency,
		PaymentMethod:        p.PaymentMethod,
		PaymentURL:           p.PaymentURL,
		GatewayTransactionID: p.GatewayTransactionID,
		ExpiresAt:            p.ExpiresAt,
		PaidAt:               p.PaidAt,
		FailureReason:        p.FailureReason,
		CreatedAt:            p.CreatedAt,
	}
}
