package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cinebook/internal/idempotency"
	"cinebook/internal/notifications"
	"cinebook/internal/seats"
	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/config"
	"cinebook/internal/shared/utils/response"
	"cinebook/internal/showtimes"
)

const defaultCurrency = "VND"

// SeatEngine is the slice of the seat engine bookings needs
// (to avoid circular dependency)
type SeatEngine interface {
	BatchReserve(ctx context.Context, showtimeID, bookingID string, holdDuration time.Duration, seatReqs []seats.SeatRequest) (*seats.ReserveResult, error)
	ConfirmSeats(ctx context.Context, showtimeID, bookingID string, seatIDs []string) (*seats.ConfirmResult, error)
	ReleaseSeats(ctx context.Context, showtimeID, bookingID, reason string, seatIDs []string) (*seats.ReleaseResult, error)
}

// ShowtimeCatalog is the slice of the showtime service bookings needs
// (to avoid circular dependency)
type ShowtimeCatalog interface {
	GetShowtimeForBooking(ctx context.Context, id uuid.UUID) (*showtimes.Showtime, error)
	ResolveSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []string) ([]showtimes.SeatInfo, error)
}

// HoldOutcome carries the exact response bytes for a hold request. Fresh
// executions and idempotent replays both answer with the same bytes, so a
// retried request is indistinguishable from the original.
type HoldOutcome struct {
	StatusCode int
	Body       json.RawMessage
	Replayed   bool
}

// PaymentOutcome carries the exact response bytes for a payment initiation,
// with the same replay guarantee as HoldOutcome.
type PaymentOutcome struct {
	StatusCode int
	Body       json.RawMessage
	Replayed   bool
}

// PaymentRequest is the hand-off from booking confirmation to the payment
// service. The idempotency triple travels along so the payment side can
// register the same client key under its own resource type.
type PaymentRequest struct {
	UserID         uuid.UUID
	IdempotencyKey string
	RequestPath    string
	RequestHash    string
	BookingID      uuid.UUID
	Method         string
	ReturnURL      string
}

// PaymentInitiator is implemented by the payments service and injected after
// construction (to avoid circular dependency)
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentOutcome, error)
}

// Service interface defines the contract for booking business logic
type Service interface {
	SetPaymentInitiator(payments PaymentInitiator)

	// Surface operations
	HoldSeats(ctx context.Context, userID uuid.UUID, idempotencyKey, requestPath, requestHash string, req HoldSeatsRequest) (*HoldOutcome, error)
	ConfirmBooking(ctx context.Context, bookingID, userID uuid.UUID, idempotencyKey, requestPath, requestHash string, req ConfirmBookingRequest) (*PaymentOutcome, error)
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*BookingResponse, error)
	GetBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*BookingResponse, error)

	// Payment-side operations
	GetBookingRecord(ctx context.Context, id uuid.UUID) (*Booking, error)
	AttachPayment(ctx context.Context, bookingID, paymentID uuid.UUID) error
	ConfirmSeatsAfterPayment(ctx context.Context, bookingID uuid.UUID) (bool, error)
	ReleaseSeatsAfterPaymentFailure(ctx context.Context, bookingID uuid.UUID) error

	// Reaper operations
	ExpireBooking(ctx context.Context, booking *Booking) error
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error)
}

// service implements the Service interface
type service struct {
	repo        Repository
	engine      SeatEngine
	catalog     ShowtimeCatalog
	idempotency idempotency.Service
	publisher   notifications.Publisher
	payments    PaymentInitiator
	cfg         config.BookingConfig
}

// NewService creates a new booking service instance
func NewService(repo Repository, engine SeatEngine, catalog ShowtimeCatalog, idem idempotency.Service, publisher notifications.Publisher, cfg config.BookingConfig) Service {
	return &service{
		repo:        repo,
		engine:      engine,
		catalog:     catalog,
		idempotency: idem,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// SetPaymentInitiator injects the payment service dependency
func (s *service) SetPaymentInitiator(payments PaymentInitiator) {
	s.payments = payments
}

// HoldSeats places an all-or-nothing hold on the requested seats and persists
// the pending booking. The whole operation runs under the client idempotency
// key: retried requests replay the stored response byte for byte.
func (s *service) HoldSeats(ctx context.Context, userID uuid.UUID, idempotencyKey, requestPath, requestHash string, req HoldSeatsRequest) (*HoldOutcome, error) {
	check, err := s.idempotency.Check(ctx, idempotencyKey, userID, requestPath, requestHash, "booking")
	if err != nil {
		if apperrors.IsCode(err, "REQUEST_IN_FLIGHT") {
			// A crash between persisting the booking and completing the
			// idempotency record leaves the key stuck in processing. If the
			// durable booking exists the work is done; rebuild the response
			// and heal the record instead of blocking the client forever.
			if outcome, ok := s.replayFromDurable(ctx, idempotencyKey, userID); ok {
				return outcome, nil
			}
		}
		return nil, err
	}
	if !check.New {
		return &HoldOutcome{StatusCode: check.CachedStatus, Body: check.CachedBody, Replayed: true}, nil
	}

	outcome, err := s.executeHold(ctx, userID, idempotencyKey, req)
	if err != nil {
		s.recordFailure(ctx, idempotencyKey, userID, err)
		return nil, err
	}
	return outcome, nil
}

func (s *service) executeHold(ctx context.Context, userID uuid.UUID, idempotencyKey string, req HoldSeatsRequest) (*HoldOutcome, error) {
	// Step 0: a durable booking under this key means a previous attempt got
	// past the point of no return before losing its idempotency record.
	existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err == nil {
		return s.finishHold(ctx, existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("Failed to look up booking by idempotency key", err)
	}

	// Step 1: validate the showtime is open for booking
	showtimeID, err := uuid.Parse(req.ShowtimeID)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Showtime id must be a valid UUID")
	}
	showtime, err := s.catalog.GetShowtimeForBooking(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	// Step 2: resolve seat metadata and pricing
	seatIDs := dedupeSeatIDs(req.Seats)
	if len(seatIDs) > s.cfg.MaxSeatsPerBooking {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput,
			fmt.Sprintf("A booking can hold at most %d seats", s.cfg.MaxSeatsPerBooking))
	}
	seatInfos, err := s.catalog.ResolveSeats(ctx, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}

	// Step 3: reserve in the engine. The booking id is minted before the
	// insert so the engine records the eventual owner even if this process
	// dies before the row lands.
	bookingID := uuid.New()
	seatReqs := make([]seats.SeatRequest, 0, len(seatInfos))
	for _, info := range seatInfos {
		seatReqs = append(seatReqs, seats.SeatRequest{SeatID: info.SeatID, SeatType: info.SeatType})
	}
	reserve, err := s.engine.BatchReserve(ctx, showtimeID.String(), bookingID.String(), s.cfg.HoldDuration, seatReqs)
	if err != nil {
		return nil, err
	}

	// Step 4: build the durable booking. The hold expiry comes from the
	// engine's clock so the reaper and the scripts agree on the boundary.
	now := time.Now().UTC()
	totalAmount := decimal.Zero
	lineItems := make([]BookingSeat, 0, len(seatInfos))
	for _, info := range seatInfos {
		totalAmount = totalAmount.Add(info.Price)
		lineItems = append(lineItems, BookingSeat{
			BookingID: bookingID,
			SeatID:    info.SeatID,
			SeatType:  info.SeatType,
			Price:     info.Price,
		})
	}
	discount := decimal.Zero
	booking := &Booking{
		ID:             bookingID,
		UserID:         userID,
		ShowtimeID:     showtime.ID,
		Status:         StatusPending,
		TotalAmount:    totalAmount,
		DiscountAmount: discount,
		FinalAmount:    totalAmount.Sub(discount),
		Currency:       defaultCurrency,
		HeldAt:         now,
		HoldExpiresAt:  time.Unix(reserve.ExpiresAt, 0).UTC(),
		IdempotencyKey: idempotencyKey,
		Seats:          lineItems,
	}

	// Step 5: persist, compensating the engine hold if the insert fails.
	// The hold exists only in Redis at this point; giving the seats back
	// beats locking them until the hold lapses on its own.
	if err := s.persistHold(ctx, booking); err != nil {
		if _, releaseErr := s.engine.ReleaseSeats(ctx, showtimeID.String(), bookingID.String(), seats.ReleasePersistFailed, seatIDs); releaseErr != nil {
			log.Printf("CRITICAL: failed to release seats %v for unpersisted booking %s: %v", seatIDs, bookingID, releaseErr)
		}
		return nil, err
	}

	s.publishEvent(ctx, notifications.NewBookingEvent(notifications.EventBookingHeld, booking.ID, booking.BookingCode, booking.UserID, booking.ShowtimeID).
		WithSeats(booking.SeatIDs()).
		WithAmount(booking.FinalAmount, booking.Currency))

	return s.finishHold(ctx, booking)
}

// persistHold inserts the booking, retrying on booking-code collisions.
func (s *service) persistHold(ctx context.Context, booking *Booking) error {
	for attempt := 0; attempt < 3; attempt++ {
		code, err := GenerateBookingCode()
		if err != nil {
			return apperrors.Internal("Failed to generate booking code", err)
		}
		booking.BookingCode = code

		err = s.repo.CreateWithSeats(ctx, booking)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrBookingCodeTaken) {
			continue
		}
		return apperrors.New("BOOKING_PERSIST_FAILED", http.StatusInternalServerError, "Failed to persist booking").WithCause(err)
	}
	return apperrors.New("BOOKING_PERSIST_FAILED", http.StatusInternalServerError, "Failed to persist booking").
		WithCause(fmt.Errorf("booking code collisions on %d attempts", 3))
}

// finishHold builds the success envelope, stores it against the idempotency
// key and returns the same bytes to the caller. Marshalling once is what
// makes replays byte-identical.
func (s *service) finishHold(ctx context.Context, booking *Booking) (*HoldOutcome, error) {
	resp := booking.ToHoldResponse(time.Now().UTC())
	envelope := response.StandardApiResponse{
		Status:     "success",
		StatusCode: http.StatusCreated,
		Message:    "Seats held successfully",
		Data:       resp,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, apperrors.Internal("Failed to encode hold response", err)
	}

	if err := s.idempotency.Complete(ctx, booking.IdempotencyKey, booking.UserID, http.StatusCreated, json.RawMessage(body), &booking.ID); err != nil {
		// The booking exists, so refusing the response would only force a
		// replay through the durable path. Log and answer.
		log.Printf("Warning: failed to complete idempotency record for booking %s: %v", booking.ID, err)
	}

	return &HoldOutcome{StatusCode: http.StatusCreated, Body: body}, nil
}

// replayFromDurable rebuilds the hold response from the bookings table when
// the idempotency record is stuck in processing.
func (s *service) replayFromDurable(ctx context.Context, idempotencyKey string, userID uuid.UUID) (*HoldOutcome, bool) {
	booking, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, false
	}
	if booking.UserID != userID {
		return nil, false
	}

	log.Printf("Rebuilt hold response for idempotency key %s from booking %s", idempotencyKey, booking.ID)
	outcome, err := s.finishHold(ctx, booking)
	if err != nil {
		return nil, false
	}
	outcome.Replayed = true
	return outcome, true
}

// recordFailure stores business failures for replay and forgets the key on
// server-side failures so the client may retry them.
func (s *service) recordFailure(ctx context.Context, idempotencyKey string, userID uuid.UUID, failure error) {
	appErr := apperrors.FromError(failure)
	if appErr.Status >= http.StatusInternalServerError {
		if err := s.idempotency.Forget(ctx, idempotencyKey, userID); err != nil {
			log.Printf("Warning: failed to forget idempotency key %s: %v", idempotencyKey, err)
		}
		return
	}
	if err := s.idempotency.Fail(ctx, idempotencyKey, userID, failure); err != nil {
		log.Printf("Warning: failed to record failure for idempotency key %s: %v", idempotencyKey, err)
	}
}

// ConfirmBooking validates the booking is still payable and hands off to the
// payment service. The payment side owns the idempotency record for this
// request, so no Check runs here.
func (s *service) ConfirmBooking(ctx context.Context, bookingID, userID uuid.UUID, idempotencyKey, requestPath, requestHash string, req ConfirmBookingRequest) (*PaymentOutcome, error) {
	if s.payments == nil {
		return nil, apperrors.Internal("Payment initiator not wired", nil)
	}

	booking, err := s.loadOwnedBooking(ctx, bookingID, userID, false)
	if err != nil {
		return nil, err
	}
	if booking.Status != StatusPending {
		return nil, apperrors.Precondition("BOOKING_NOT_PENDING", "Booking is not awaiting payment")
	}
	if booking.IsHoldExpired(time.Now().UTC()) {
		return nil, apperrors.Precondition("BOOKING_HOLD_EXPIRED", "The seat hold for this booking has expired")
	}

	return s.payments.InitiatePayment(ctx, PaymentRequest{
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		RequestPath:    requestPath,
		RequestHash:    requestHash,
		BookingID:      bookingID,
		Method:         req.PaymentMethod,
		ReturnURL:      req.ReturnURL,
	})
}

// CancelBooking releases the held seats and marks the booking cancelled.
// Only pending bookings qualify; confirmed ones go through refunds.
func (s *service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*BookingResponse, error) {
	booking, err := s.loadOwnedBooking(ctx, bookingID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanBeCancelled() {
		return nil, apperrors.Precondition("BOOKING_CANNOT_BE_CANCELLED",
			fmt.Sprintf("A %s booking cannot be cancelled", booking.Status))
	}

	// Release first. The script skips seats that no longer belong to this
	// booking, so a retry after a partial failure is safe.
	if _, err := s.engine.ReleaseSeats(ctx, booking.ShowtimeID.String(), booking.ID.String(), seats.ReleaseCancelled, booking.SeatIDs()); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	flipped, err := s.repo.MarkCancelled(ctx, booking.ID, "Cancelled by user", now)
	if err != nil {
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}
	if !flipped {
		return nil, apperrors.Precondition("BOOKING_CANNOT_BE_CANCELLED", "Booking already left the pending state")
	}

	s.publishEvent(ctx, notifications.NewBookingEvent(notifications.EventBookingCancelled, booking.ID, booking.BookingCode, booking.UserID, booking.ShowtimeID).
		WithSeats(booking.SeatIDs()).
		WithMetadata("reason", "user_cancelled"))

	booking.Status = StatusCancelled
	booking.CancelledAt = &now
	booking.CancellationReason = "Cancelled by user"
	return booking.ToResponse(), nil
}

// GetBooking returns the booking for its owner, or for an admin.
func (s *service) GetBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*BookingResponse, error) {
	booking, err := s.loadOwnedBooking(ctx, bookingID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	return booking.ToResponse(), nil
}

// GetBookingRecord loads the raw booking row for the payment service.
func (s *service) GetBookingRecord(ctx context.Context, id uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, apperrors.Internal("Failed to load booking", err)
	}
	return booking, nil
}

// AttachPayment denormalizes the payment id onto the booking row.
func (s *service) AttachPayment(ctx context.Context, bookingID, paymentID uuid.UUID) error {
	if err := s.repo.SetPaymentID(ctx, bookingID, paymentID); err != nil {
		return apperrors.Internal("Failed to attach payment to booking", err)
	}
	return nil
}

// ConfirmSeatsAfterPayment flips the booking's seats to booked once payment
// completes. Seats the engine refuses are recorded on the booking for manual
// resolution rather than failing the already-paid booking.
func (s *service) ConfirmSeatsAfterPayment(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Warning: payment completed for unknown booking %s", bookingID)
			return false, nil
		}
		return false, apperrors.Internal("Failed to load booking", err)
	}

	confirm, err := s.engine.ConfirmSeats(ctx, booking.ShowtimeID.String(), booking.ID.String(), booking.SeatIDs())
	if err != nil {
		return false, err
	}
	if !confirm.AllConfirmed() {
		pending := make(PendingSeats, 0, len(confirm.Failed))
		for _, f := range confirm.Failed {
			pending = append(pending, SeatAudit{SeatID: f.SeatID, Reason: f.Reason})
		}
		if err := s.repo.RecordPendingSeats(ctx, booking.ID, pending); err != nil {
			log.Printf("Warning: failed to record pending seats for booking %s: %v", booking.ID, err)
		}
		log.Printf("WARNING: %d seat(s) failed to confirm for paid booking %s, recorded for manual resolution: %v",
			len(confirm.Failed), booking.ID, confirm.Failed)
		return false, nil
	}

	flipped, err := s.repo.MarkConfirmed(ctx, booking.ID, time.Now().UTC())
	if err != nil {
		return false, apperrors.Internal("Failed to confirm booking", err)
	}
	if flipped {
		s.publishEvent(ctx, notifications.NewBookingEvent(notifications.EventBookingConfirmed, booking.ID, booking.BookingCode, booking.UserID, booking.ShowtimeID).
			WithSeats(booking.SeatIDs()).
			WithAmount(booking.FinalAmount, booking.Currency))
	}
	return true, nil
}

// ReleaseSeatsAfterPaymentFailure gives the seats back when the gateway
// reports a failed payment.
func (s *service) ReleaseSeatsAfterPaymentFailure(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Warning: payment failed for unknown booking %s", bookingID)
			return nil
		}
		return apperrors.Internal("Failed to load booking", err)
	}

	if _, err := s.engine.ReleaseSeats(ctx, booking.ShowtimeID.String(), booking.ID.String(), seats.ReleasePaymentFailed, booking.SeatIDs()); err != nil {
		return err
	}

	flipped, err := s.repo.MarkCancelled(ctx, booking.ID, "Payment failed", time.Now().UTC())
	if err != nil {
		return apperrors.Internal("Failed to cancel booking after payment failure", err)
	}
	if flipped {
		s.publishEvent(ctx, notifications.NewBookingEvent(notifications.EventBookingCancelled, booking.ID, booking.BookingCode, booking.UserID, booking.ShowtimeID).
			WithSeats(booking.SeatIDs()).
			WithMetadata("reason", "payment_failed"))
	}
	return nil
}

// ExpireBooking is the reaper's per-booking step: release the seats, then
// mark the row expired. Release is idempotent, so a crash between the two
// steps is healed on the next sweep.
func (s *service) ExpireBooking(ctx context.Context, booking *Booking) error {
	if _, err := s.engine.ReleaseSeats(ctx, booking.ShowtimeID.String(), booking.ID.String(), seats.ReleaseHoldExpired, booking.SeatIDs()); err != nil {
		return err
	}

	flipped, err := s.repo.MarkExpired(ctx, booking.ID, "Hold expired", time.Now().UTC())
	if err != nil {
		return apperrors.Internal("Failed to expire booking", err)
	}
	if flipped {
		s.publishEvent(ctx, notifications.NewBookingEvent(notifications.EventBookingExpired, booking.ID, booking.BookingCode, booking.UserID, booking.ShowtimeID).
			WithSeats(booking.SeatIDs()))
	}
	return nil
}

// FindExpiredPending exposes the reaper scan.
func (s *service) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	bookings, err := s.repo.FindExpiredPending(ctx, cutoff, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to scan for expired bookings", err)
	}
	return bookings, nil
}

// loadOwnedBooking loads a booking and enforces ownership. Admins may access
// any booking.
func (s *service) loadOwnedBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("BOOKING_NOT_FOUND", "Booking not found")
		}
		return nil, apperrors.Internal("Failed to load booking", err)
	}
	if booking.UserID != userID && !isAdmin {
		return nil, apperrors.Forbidden("BOOKING_NOT_OWNED", "You do not have access to this booking")
	}
	return booking, nil
}

// publishEvent sends a lifecycle event, tolerating a missing or failing
// publisher. Event delivery never blocks a booking operation.
func (s *service) publishEvent(ctx context.Context, event *notifications.BookingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		log.Printf("Warning: failed to publish %s event for booking %s: %v", event.EventType, event.BookingID, err)
	}
}

// dedupeSeatIDs drops repeated seat ids, keeping first-seen order.
func dedupeSeatIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
