package bookings

// HoldSeatsRequest is the body for POST /bookings/hold. The seat-count
// ceiling is enforced in the service against the configured maximum, so the
// binding only guards the shape.
type HoldSeatsRequest struct {
	ShowtimeID string   `json:"showtime_id" binding:"required,uuid"`
	Seats      []string `json:"seats" binding:"required,min=1,dive,required"`
}

// ConfirmBookingRequest is the body for POST /bookings/:id/confirm.
type ConfirmBookingRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=momo vnpay zalopay card"`
	ReturnURL     string `json:"return_url" binding:"omitempty,url"`
}
