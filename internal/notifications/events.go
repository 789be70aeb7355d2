package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a booking lifecycle fact.
type EventType string

const (
	EventBookingHeld      EventType = "booking.held"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingExpired   EventType = "booking.expired"
	EventPaymentCreated   EventType = "payment.created"
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
)

// BookingEvent is the wire payload published for every booking state change.
// All fields are stamped at publish time; consumers treat the stream as
// append-only history.
type BookingEvent struct {
	EventID     uuid.UUID              `json:"event_id"`
	EventType   EventType              `json:"event_type"`
	BookingID   uuid.UUID              `json:"booking_id"`
	BookingCode string                 `json:"booking_code"`
	UserID      uuid.UUID              `json:"user_id"`
	ShowtimeID  uuid.UUID              `json:"showtime_id"`
	SeatIDs     []string               `json:"seat_ids,omitempty"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewBookingEvent stamps identity and occurrence time on a fresh event.
func NewBookingEvent(eventType EventType, bookingID uuid.UUID, bookingCode string, userID, showtimeID uuid.UUID) *BookingEvent {
	return &BookingEvent{
		EventID:     uuid.New(),
		EventType:   eventType,
		BookingID:   bookingID,
		BookingCode: bookingCode,
		UserID:      userID,
		ShowtimeID:  showtimeID,
		OccurredAt:  time.Now().UTC(),
	}
}

// WithSeats attaches the seat ids the event covers.
func (e *BookingEvent) WithSeats(seatIDs []string) *BookingEvent {
	e.SeatIDs = seatIDs
	return e
}

// WithAmount attaches the monetary context of the event.
func (e *BookingEvent) WithAmount(amount decimal.Decimal, currency string) *BookingEvent {
	e.Amount = amount
	e.Currency = currency
	return e
}

// WithMetadata attaches one free-form key to the event.
func (e *BookingEvent) WithMetadata(key string, value interface{}) *BookingEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// PartitionKey routes all events of one booking to the same partition so
// consumers observe that booking's lifecycle in order.
func (e *BookingEvent) PartitionKey() string {
	return e.BookingID.String()
}

// ToJSON serializes the event for the wire.
func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON deserializes a consumed message back into an event.
func EventFromJSON(data []byte) (*BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
