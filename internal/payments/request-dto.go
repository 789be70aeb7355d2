package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	BookingID     string `json:"booking_id" binding:"required,uuid"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=momo vnpay zalopay card"`
	ReturnURL     string `json:"return_url" binding:"omitempty,url"`
}

// WebhookRequest is the gateway callback payload. The raw body is
// signature-checked before this is ever decoded.
type WebhookRequest struct {
	TransactionID string                 `json:"transaction_id" binding:"required"`
	Status        string                 `json:"status" binding:"required,oneof=success failed pending"`
	Amount        decimal.Decimal        `json:"amount" swaggertype:"number"`
	PaidAt        *time.Time             `json:"paid_at"`
	Reason        string                 `json:"reason"`
	Metadata      map[string]interface{} `json:"metadata"`
}
