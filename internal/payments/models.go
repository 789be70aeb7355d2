package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one attempt to pay for a booking. A booking can accumulate
// several failed payments but at most one that ever reaches completed.
type Payment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	BookingID uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`

	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency      string          `json:"currency" gorm:"type:varchar(3);not null;default:'VND'"`
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(20);not null"`
	Status        PaymentStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`

	// Assigned by the gateway once the intent exists. Uniqueness is a
	// partial index added in the raw constraints pass, since the column
	// is empty until the gateway call succeeds.
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty" gorm:"size:64"`
	PaymentURL           string `json:"payment_url,omitempty" gorm:"size:512"`

	IdempotencyKey string `json:"-" gorm:"not null;size:100;uniqueIndex:uq_payments_idempotency_key"`

	FailureReason string `json:"failure_reason,omitempty" gorm:"size:255"`
	AttemptCount  int    `json:"attempt_count" gorm:"not null;default:0"`
	Version       int    `json:"version" gorm:"not null;default:1"`

	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Payment model
func (Payment) TableName() string {
	return "payments"
}

// IsExpired reports whether the pay window closed before the gateway
// confirmed anything.
func (p *Payment) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
