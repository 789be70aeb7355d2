package seats

import (
	"github.com/shopspring/decimal"
)

// Seat lifecycle statuses as stored in the engine hash.
const (
	StatusAvailable = "available"
	StatusHeld      = "held"
	StatusBooked    = "booked"
)

// Reasons reported by the engine scripts for seats that could not be
// reserved, confirmed, released or extended.
const (
	ReasonNotFound     = "NOT_FOUND"
	ReasonBooked       = "BOOKED"
	ReasonHeld         = "HELD"
	ReasonNotHeld      = "NOT_HELD"
	ReasonWrongBooking = "WRONG_BOOKING"
	ReasonHoldExpired  = "HOLD_EXPIRED"
)

// Release reasons recorded on the seat record for audit.
const (
	ReleasePaymentFailed = "PAYMENT_FAILED"
	ReleaseCancelled     = "CANCELLED"
	ReleaseHoldExpired   = "HOLD_EXPIRED"
	ReleasePersistFailed = "PERSIST_FAILED"
)

// SeatRequest is one seat in a reserve call. SeatType travels with the
// request so the engine record stays self-describing even for seats that
// were written before the catalog knew their type.
type SeatRequest struct {
	SeatID   string `json:"seat_id"`
	SeatType string `json:"seat_type"`
}

// UnavailableSeat explains why one seat blocked an all-or-nothing reserve.
type UnavailableSeat struct {
	SeatID string `json:"seat_id"`
	Reason string `json:"reason"`
}

// FailedSeat explains why one seat failed a per-seat operation.
type FailedSeat struct {
	SeatID string `json:"seat_id"`
	Reason string `json:"reason"`
}

// ReserveResult is the outcome of a batch reserve. Success is all-or-nothing:
// either every seat is held until ExpiresAt or Unavailable lists the blockers
// and nothing was written.
type ReserveResult struct {
	Success     bool              `json:"success"`
	Reserved    int               `json:"reserved,omitempty"`
	ExpiresAt   int64             `json:"expires_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Unavailable []UnavailableSeat `json:"unavailable,omitempty"`
}

// ConfirmResult reports per-seat confirmation outcomes. Confirmed seats stay
// booked even when other seats in the same call fail.
type ConfirmResult struct {
	Confirmed []string     `json:"confirmed,omitempty"`
	Failed    []FailedSeat `json:"failed,omitempty"`
}

// AllConfirmed reports whether every requested seat confirmed.
func (r *ConfirmResult) AllConfirmed() bool {
	return len(r.Failed) == 0
}

// ReleaseResult reports which seats were freed and which did not match.
type ReleaseResult struct {
	Released []string     `json:"released,omitempty"`
	Failed   []FailedSeat `json:"failed,omitempty"`
}

// CleanupResult reports a full expired-hold sweep over one showtime.
type CleanupResult struct {
	Released int      `json:"released"`
	SeatIDs  []string `json:"seat_ids,omitempty"`
}

// SeatState is one seat's live record as read from the engine.
type SeatState struct {
	SeatID           string `json:"seat_id"`
	Status           string `json:"status"`
	SeatType         string `json:"seat_type"`
	BookingID        string `json:"booking_id,omitempty"`
	RemainingSeconds int64  `json:"remaining_seconds,omitempty"`
}

// StatusResult is the engine read result. Exists is false when the showtime
// was never initialized or its keys expired; Reaped counts holds released
// lazily by this read.
type StatusResult struct {
	Exists    bool        `json:"exists"`
	Available int64       `json:"available"`
	Reaped    int         `json:"reaped"`
	Seats     []SeatState `json:"seats,omitempty"`
}

// ExtendResult reports a hold extension. ExpiresAt is the new expiry of the
// extended seats; Failed lists seats whose hold could not be extended.
type ExtendResult struct {
	Success   bool         `json:"success"`
	Extended  int          `json:"extended"`
	ExpiresAt int64        `json:"expires_at,omitempty"`
	Error     string       `json:"error,omitempty"`
	Failed    []FailedSeat `json:"failed,omitempty"`
}

// SeatMapEntry is one seat in the public seat map: catalog metadata merged
// with the engine's live status.
type SeatMapEntry struct {
	SeatID           string          `json:"seat_id"`
	SeatType         string          `json:"seat_type"`
	Price            decimal.Decimal `json:"price"`
	Status           string          `json:"status"`
	RemainingSeconds int64           `json:"remaining_seconds,omitempty"`
}

// SeatMapResponse is the GET /showtimes/:id/seats payload.
type SeatMapResponse struct {
	ShowtimeID string         `json:"showtime_id"`
	Available  int64          `json:"available"`
	Total      int            `json:"total"`
	Seats      []SeatMapEntry `json:"seats"`
}
