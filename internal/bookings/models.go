package bookings

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeatAudit records a single seat that did not follow the booking through a
// lifecycle transition, and why the engine rejected it.
type SeatAudit struct {
	SeatID string `json:"seat_id"`
	Reason string `json:"reason"`
}

// PendingSeats is a jsonb column holding seats whose confirmation was
// refused by the seat engine after payment. Operations resolves these by
// hand, so the raw engine reason is kept verbatim.
type PendingSeats []SeatAudit

func (p PendingSeats) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *PendingSeats) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for PendingSeats: %T", value)
	}
	return json.Unmarshal(raw, p)
}

func (PendingSeats) GormDataType() string {
	return "jsonb"
}

// Booking defines the main booking structure
type Booking struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingCode        string          `gorm:"not null;size:16;uniqueIndex:uq_bookings_booking_code" json:"booking_code"`
	UserID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	ShowtimeID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"showtime_id"`
	Status             BookingStatus   `gorm:"type:varchar(20);not null;default:'pending';index:idx_bookings_status_expiry,priority:1" json:"status"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DiscountAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	FinalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"final_amount"`
	Currency           string          `gorm:"type:varchar(3);not null;default:'VND'" json:"currency"`
	HeldAt             time.Time       `gorm:"not null" json:"held_at"`
	HoldExpiresAt      time.Time       `gorm:"not null;index:idx_bookings_status_expiry,priority:2" json:"hold_expires_at"`
	IdempotencyKey     string          `gorm:"not null;size:100;uniqueIndex:uq_bookings_idempotency_key" json:"-"`
	ConfirmedAt        *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationReason string          `gorm:"size:255" json:"cancellation_reason,omitempty"`
	PaymentID          *uuid.UUID      `gorm:"type:uuid" json:"payment_id,omitempty"`
	PendingSeats       PendingSeats    `gorm:"type:jsonb" json:"pending_seats,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Relationships
	Seats []BookingSeat `json:"seats,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE;"`
}

// BookingSeat defines one seat line item on a booking. The price is the
// price at hold time, so later catalog changes never rewrite history.
type BookingSeat struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_booking_seats_booking_seat,priority:1" json:"booking_id"`
	SeatID    string          `gorm:"not null;size:8;uniqueIndex:uq_booking_seats_booking_seat,priority:2" json:"seat_id"`
	SeatType  string          `gorm:"type:varchar(20);not null" json:"seat_type"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// TableName sets the table name for BookingSeat
func (BookingSeat) TableName() string {
	return "booking_seats"
}

// SeatIDs returns the seat labels on this booking in stored order.
func (b *Booking) SeatIDs() []string {
	ids := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.SeatID)
	}
	return ids
}

// IsHoldExpired reports whether the hold window has closed. The boundary
// instant counts as expired, matching how the seat engine compares clocks.
func (b *Booking) IsHoldExpired(now time.Time) bool {
	return !now.Before(b.HoldExpiresAt)
}
