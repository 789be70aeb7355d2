package bookings

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingSeatResponse is one seat line item in API responses.
type BookingSeatResponse struct {
	SeatID   string          `json:"seat_id"`
	SeatType string          `json:"seat_type"`
	Price    decimal.Decimal `json:"price"`
}

// HoldSeatsResponse is the payload returned when seats are held. It carries
// the remaining hold window so clients can render a countdown without
// trusting their own clock.
type HoldSeatsResponse struct {
	BookingID        string                `json:"booking_id"`
	BookingCode      string                `json:"booking_code"`
	ShowtimeID       string                `json:"showtime_id"`
	Status           string                `json:"status"`
	Seats            []BookingSeatResponse `json:"seats"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	DiscountAmount   decimal.Decimal       `json:"discount_amount"`
	FinalAmount      decimal.Decimal       `json:"final_amount"`
	Currency         string                `json:"currency"`
	HeldAt           time.Time             `json:"held_at"`
	HoldExpiresAt    time.Time             `json:"hold_expires_at"`
	ExpiresInSeconds int64                 `json:"expires_in_seconds"`
}

// BookingResponse is the full booking view for lookups and cancellations.
type BookingResponse struct {
	BookingID          string                `json:"booking_id"`
	BookingCode        string                `json:"booking_code"`
	UserID             string                `json:"user_id"`
	ShowtimeID         string                `json:"showtime_id"`
	Status             string                `json:"status"`
	Seats              []BookingSeatResponse `json:"seats"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	DiscountAmount     decimal.Decimal       `json:"discount_amount"`
	FinalAmount        decimal.Decimal       `json:"final_amount"`
	Currency           string                `json:"currency"`
	HeldAt             time.Time             `json:"held_at"`
	HoldExpiresAt      time.Time             `json:"hold_expires_at"`
	ConfirmedAt        *time.Time            `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	PaymentID          string                `json:"payment_id,omitempty"`
	PendingSeats       []SeatAudit           `json:"pending_seats,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

func (b *Booking) seatResponses() []BookingSeatResponse {
	seats := make([]BookingSeatResponse, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, BookingSeatResponse{
			SeatID:   s.SeatID,
			SeatType: s.SeatType,
			Price:    s.Price,
		})
	}
	return seats
}

// ToHoldResponse converts the booking to the hold payload. ExpiresInSeconds
// is clamped at zero so a response marshalled just past the boundary never
// reports a negative countdown.
func (b *Booking) ToHoldResponse(now time.Time) *HoldSeatsResponse {
	expiresIn := int64(b.HoldExpiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &HoldSeatsResponse{
		BookingID:        b.ID.String(),
		BookingCode:      b.BookingCode,
		ShowtimeID:       b.ShowtimeID.String(),
		Status:           b.Status.String(),
		Seats:            b.seatResponses(),
		TotalAmount:      b.TotalAmount,
		DiscountAmount:   b.DiscountAmount,
		FinalAmount:      b.FinalAmount,
		Currency:         b.Currency,
		HeldAt:           b.HeldAt,
		HoldExpiresAt:    b.HoldExpiresAt,
		ExpiresInSeconds: expiresIn,
	}
}

// ToResponse converts the booking to the full API view.
func (b *Booking) ToResponse() *BookingResponse {
	resp := &BookingResponse{
		BookingID:          b.ID.String(),
		BookingCode:        b.BookingCode,
		UserID:             b.UserID.String(),
		ShowtimeID:         b.ShowtimeID.String(),
		Status:             b.Status.String(),
		Seats:              b.seatResponses(),
		TotalAmount:        b.TotalAmount,
		DiscountAmount:     b.DiscountAmount,
		FinalAmount:        b.FinalAmount,
		Currency:           b.Currency,
		HeldAt:             b.HeldAt,
		HoldExpiresAt:      b.HoldExpiresAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
		PendingSeats:       b.PendingSeats,
		CreatedAt:          b.CreatedAt,
	}
	if b.PaymentID != nil {
		resp.PaymentID = b.PaymentID.String()
	}
	return resp
}
