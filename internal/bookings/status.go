package bookings

// BookingStatus tracks a booking through its lifecycle. A booking is born
// pending with seats held in Redis, and either confirms after payment or
// falls out through cancellation or hold expiry.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusExpired   BookingStatus = "expired"
)

// IsValid checks if the booking status is valid
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// String returns the string representation of BookingStatus
func (s BookingStatus) String() string {
	return string(s)
}

// CanBeCancelled checks if a user-initiated cancel is still allowed.
// Confirmed bookings go through refunds instead, and terminal bookings
// have nothing left to release.
func (s BookingStatus) CanBeCancelled() bool {
	return s == StatusPending
}

// IsTerminal checks if the booking can no longer change state.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusExpired
}
