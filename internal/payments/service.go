package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cinebook/internal/bookings"
	"cinebook/internal/idempotency"
	"cinebook/internal/notifications"
	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/config"
	"cinebook/internal/shared/utils/response"
)

// BookingService is the slice of the booking service payments needs
// (to avoid circular dependency)
type BookingService interface {
	GetBookingRecord(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)
	AttachPayment(ctx context.Context, bookingID, paymentID uuid.UUID) error
	ConfirmSeatsAfterPayment(ctx context.Context, bookingID uuid.UUID) (bool, error)
	ReleaseSeatsAfterPaymentFailure(ctx context.Context, bookingID uuid.UUID) error
}

// Service interface defines the contract for payment business logic
type Service interface {
	// CreatePayment opens a payment attempt for a booking under the client
	// idempotency key. Retried requests replay the stored response byte for
	// byte.
	CreatePayment(ctx context.Context, userID uuid.UUID, idempotencyKey, requestPath, requestHash string, req CreatePaymentRequest) (*bookings.PaymentOutcome, error)

	// InitiatePayment adapts the booking-confirmation hand-off into a
	// payment creation. The booking service calls this through its injected
	// initiator.
	InitiatePayment(ctx context.Context, req bookings.PaymentRequest) (*bookings.PaymentOutcome, error)

	// HandleWebhook applies a gateway callback. Deliveries are at-least-once,
	// so every path in here has to tolerate running twice.
	HandleWebhook(ctx context.Context, provider string, req WebhookRequest) (*WebhookResponse, error)

	GetPayment(ctx context.Context, paymentID, userID uuid.UUID, isAdmin bool) (*PaymentResponse, error)
}

// service implements the Service interface
type service struct {
	repo        Repository
	gateway     Gateway
	bookings    BookingService
	idempotency idempotency.Service
	publisher   notifications.Publisher
	cfg         config.PaymentConfig
}

// NewService creates a new payment service instance
func NewService(repo Repository, gateway Gateway, bookingService BookingService, idem idempotency.Service, publisher notifications.Publisher, cfg config.PaymentConfig) Service {
	return &service{
		repo:        repo,
		gateway:     gateway,
		bookings:    bookingService,
		idempotency: idem,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *service) CreatePayment(ctx context.Context, userID uuid.UUID, idempotencyKey, requestPath, requestHash string, req CreatePaymentRequest) (*bookings.PaymentOutcome, error) {
	check, err := s.idempotency.Check(ctx, idempotencyKey, userID, requestPath, requestHash, "payment")
	if err != nil {
		if apperrors.IsCode(err, "REQUEST_IN_FLIGHT") {
			// A crash between persisting the payment and completing the
			// idempotency record leaves the key stuck in processing. If the
			// durable payment exists, rebuild the response and heal the
			// record instead of blocking the client forever.
			if outcome, ok := s.replayFromDurable(ctx, idempotencyKey, userID, req.ReturnURL); ok {
				return outcome, nil
			}
		}
		return nil, err
	}
	if !check.New {
		return &bookings.PaymentOutcome{StatusCode: check.CachedStatus, Body: check.CachedBody, Replayed: true}, nil
	}

	outcome, err := s.executeCreate(ctx, userID, idempotencyKey, req)
	if err != nil {
		s.recordFailure(ctx, idempotencyKey, userID, err)
		return nil, err
	}
	return outcome, nil
}

func (s *service) InitiatePayment(ctx context.Context, req bookings.PaymentRequest) (*bookings.PaymentOutcome, error) {
	return s.CreatePayment(ctx, req.UserID, req.IdempotencyKey, req.RequestPath, req.RequestHash, CreatePaymentRequest{
		BookingID:     req.BookingID.String(),
		PaymentMethod: req.Method,
		ReturnURL:     req.ReturnURL,
	})
}

func (s *service) executeCreate(ctx context.Context, userID uuid.UUID, idempotencyKey string, req CreatePaymentRequest) (*bookings.PaymentOutcome, error) {
	// Step 0: a durable payment under this key means a previous attempt got
	// past the point of no return before losing its idempotency record.
	existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err == nil {
		return s.finishPayment(ctx, idempotencyKey, userID, existing, http.StatusCreated, "Payment created successfully", req.ReturnURL)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("Failed to look up payment by idempotency key", err)
	}

	// Step 1: the booking must exist, belong to the caller and still be
	// payable.
	if !IsValidMethod(req.PaymentMethod) {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Unsupported payment method")
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Booking id must be a valid UUID")
	}
	booking, err := s.bookings.GetBookingRecord(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.Forbidden("BOOKING_NOT_OWNED", "You do not have access to this booking")
	}

	now := time.Now().UTC()
	if booking.Status != bookings.StatusPending {
		return nil, apperrors.Precondition("BOOKING_NOT_PENDING", "Booking is not awaiting payment")
	}
	if booking.IsHoldExpired(now) {
		return nil, apperrors.Precondition("BOOKING_HOLD_EXPIRED", "The seat hold for this booking has expired")
	}

	// Step 2: one live payment per booking. A completed one means the money
	// already moved; a pending or processing one is handed back so the user
	// finishes on the gateway page they already have.
	active, err := s.repo.FindActiveByBookingID(ctx, bookingID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("Failed to look up payments for booking", err)
	}
	if active != nil {
		if active.Status == StatusCompleted {
			return nil, apperrors.Conflict("BOOKING_ALREADY_PAID", "Booking already has a completed payment")
		}
		return s.finishPayment(ctx, idempotencyKey, userID, active, http.StatusOK, "Payment already in progress", req.ReturnURL)
	}

	// Step 3: mint the durable payment attempt.
	payment := &Payment{
		ID:             uuid.New(),
		BookingID:      booking.ID,
		UserID:         userID,
		Amount:         booking.FinalAmount,
		Currency:       booking.Currency,
		PaymentMethod:  req.PaymentMethod,
		Status:         StatusPending,
		IdempotencyKey: idempotencyKey,
		ExpiresAt:      now.Add(s.cfg.PaymentExpiry),
		Version:        1,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// Lost the insert race to a concurrent request with this key;
			// answer with the winner's payment.
			winner, readErr := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
			if readErr == nil {
				return s.finishPayment(ctx, idempotencyKey, userID, winner, http.StatusCreated, "Payment created successfully", req.ReturnURL)
			}
		}
		return nil, apperrors.New("PAYMENT_PERSIST_FAILED", http.StatusInternalServerError, "Failed to persist payment").WithCause(err)
	}

	// Step 4: open the gateway intent and move the attempt to processing.
	if err := s.openIntent(ctx, payment, req.ReturnURL); err != nil {
		return nil, err
	}

	// Step 5: denormalize onto the booking and announce. Neither is allowed
	// to fail the payment the user already holds a URL for.
	if err := s.bookings.AttachPayment(ctx, booking.ID, payment.ID); err != nil {
		log.Printf("Warning: failed to attach payment %s to booking %s: %v", payment.ID, booking.ID, err)
	}
	s.publishEvent(ctx, notifications.NewBookingEvent(notifications.EventPaymentCreated, booking.ID, booking.BookingCode, booking.UserID, booking.ShowtimeID).
		WithAmount(payment.Amount, payment.Currency).
		WithMetadata("payment_id", payment.ID.String()).
		WithMetadata("payment_method", payment.PaymentMethod))

	return s.finishPayment(ctx, idempotencyKey, userID, payment, http.StatusCreated, "Payment created successfully", req.ReturnURL)
}

// openIntent creates the gateway intent and flips the payment to processing.
// A payment that already carries an intent is left alone, which lets replay
// paths heal attempts that crashed between the insert and the gateway call.
func (s *service) openIntent(ctx context.Context, payment *Payment, returnURL string) error {
	if payment.Status != StatusPending || payment.PaymentURL != "" {
		return nil
	}

	intent, err := s.gateway.CreateIntent(ctx, payment, payment.PaymentMethod, returnURL)
	if err != nil {
		return apperrors.New("PAYMENT_GATEWAY_UNAVAILABLE", http.StatusBadGateway, "Payment gateway did not accept the request").WithCause(err)
	}

	flipped, err := s.repo.MarkProcessing(ctx, payment.ID, intent.TransactionID, intent.PaymentURL)
	if err != nil {
		return apperrors.Internal("Failed to record gateway intent", err)
	}
	if flipped {
		payment.Status = StatusProcessing
		payment.GatewayTransactionID = intent.TransactionID
		payment.PaymentURL = intent.PaymentURL
		payment.AttemptCount++
		payment.Version++
		return nil
	}

	// Someone else advanced the row; answer with its state.
	fresh, err := s.repo.GetByID(ctx, payment.ID)
	if err != nil {
		return apperrors.Internal("Failed to reload payment", err)
	}
	*payment = *fresh
	return nil
}

// finishPayment builds the success envelope, stores it against the caller's
// idempotency key and returns the same bytes. Marshalling once is what makes
// replays byte-identical.
func (s *service) finishPayment(ctx context.Context, idempotencyKey string, userID uuid.UUID, payment *Payment, statusCode int, message string, returnURL string) (*bookings.PaymentOutcome, error) {
	if err := s.openIntent(ctx, payment, returnURL); err != nil {
		return nil, err
	}

	envelope := response.StandardApiResponse{
		Status:     "success",
		StatusCode: statusCode,
		Message:    message,
		Data:       payment.ToResponse(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, apperrors.Internal("Failed to encode payment response", err)
	}

	if err := s.idempotency.Complete(ctx, idempotencyKey, userID, statusCode, json.RawMessage(body), &payment.ID); err != nil {
		// The payment exists, so refusing the response would only force a
		// replay through the durable path. Log and answer.
		log.Printf("Warning: failed to complete idempotency record for payment %s: %v", payment.ID, err)
	}

	return &bookings.PaymentOutcome{StatusCode: statusCode, Body: body}, nil
}

// replayFromDurable rebuilds the payment response from the payments table
// when the idempotency record is stuck in processing.
func (s *service) replayFromDurable(ctx context.Context, idempotencyKey string, userID uuid.UUID, returnURL string) (*bookings.PaymentOutcome, bool) {
	payment, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, false
	}
	if payment.UserID != userID {
		return nil, false
	}

	log.Printf("Rebuilt payment response for idempotency key %s from payment %s", idempotencyKey, payment.ID)
	outcome, err := s.finishPayment(ctx, idempotencyKey, userID, payment, http.StatusCreated, "Payment created successfully", returnURL)
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

func (s *service) HandleWebhook(ctx context.Context, provider string, req WebhookRequest) (*WebhookResponse, error) {
	if !IsValidMethod(provider) {
		return nil, apperrors.Validation("BAD_PROVIDER", "Unknown payment provider")
	}
	if req.TransactionID == "" {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Webhook payload must carry a transaction id")
	}

	payment, err := s.repo.GetByGatewayTransactionID(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("PAYMENT_NOT_FOUND", "No payment matches this transaction")
		}
		return nil, apperrors.Internal("Failed to look up payment by transaction id", err)
	}

	// A completed payment never changes again. Gateways redeliver webhooks
	// until acknowledged, so this is the common replay path.
	if payment.Status == StatusCompleted {
		return &WebhookResponse{Success: true, Message: "Payment already processed"}, nil
	}

	switch req.Status {
	case "success":
		return s.completePayment(ctx, payment, req)
	case "failed":
		return s.failPayment(ctx, payment, req)
	default:
		// The user has not finished on the gateway page yet. Nothing to
		// record beyond the acknowledgement.
		log.Printf("Payment %s still pending at gateway (transaction %s)", payment.ID, req.TransactionID)
		return &WebhookResponse{Success: true, Message: "Webhook received"}, nil
	}
}

func (s *service) completePayment(ctx context.Context, payment *Payment, req WebhookRequest) (*WebhookResponse, error) {
	paidAt := time.Now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	changed, err := s.repo.MarkCompleted(ctx, payment.GatewayTransactionID, paidAt)
	if err != nil {
		return nil, apperrors.Internal("Failed to complete payment", err)
	}
	if !changed {
		// A concurrent delivery got here first.
		return &WebhookResponse{Success: true, Message: "Payment already processed"}, nil
	}

	s.publishPaymentEvent(ctx, notifications.EventPaymentCompleted, payment)

	confirmed, err := s.bookings.ConfirmSeatsAfterPayment(ctx, payment.BookingID)
	if err != nil {
		// The money moved but the seats did not flip. Surfacing the error
		// makes the gateway redeliver; the pending-seats audit on the
		// booking carries whatever is left after retries.
		log.Printf("CRITICAL: payment %s completed but seat confirmation failed for booking %s: %v", payment.ID, payment.BookingID, err)
		return nil, err
	}
	if !confirmed {
		log.Printf("Warning: payment %s completed with partially confirmed seats on booking %s", payment.ID, payment.BookingID)
	}

	return &WebhookResponse{Success: true, Message: "Payment completed"}, nil
}

func (s *service) failPayment(ctx context.Context, payment *Payment, req WebhookRequest) (*WebhookResponse, error) {
	reason := req.Reason
	if reason == "" {
		reason = "Payment failed at gateway"
	}

	changed, err := s.repo.MarkFailed(ctx, payment.GatewayTransactionID, reason)
	if err != nil {
		return nil, apperrors.Internal("Failed to record payment failure", err)
	}
	if changed {
		s.publishPaymentEvent(ctx, notifications.EventPaymentFailed, payment)
		if err := s.bookings.ReleaseSeatsAfterPaymentFailure(ctx, payment.BookingID); err != nil {
			// Returning the error makes the gateway redeliver; the release
			// and the cancel underneath are both idempotent.
			return nil, err
		}
	}

	return &WebhookResponse{Success: true, Message: "Payment failure recorded"}, nil
}

// GetPayment returns the payment for its owner, or for an admin.
func (s *service) GetPayment(ctx context.Context, paymentID, userID uuid.UUID, isAdmin bool) (*PaymentResponse, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("PAYMENT_NOT_FOUND", "Payment not found")
		}
		return nil, apperrors.Internal("Failed to load payment", err)
	}
	if payment.UserID != userID && !isAdmin {
		return nil, apperrors.Forbidden("PAYMENT_NOT_OWNED", "You do not have access to this payment")
	}
	return payment.ToResponse(), nil
}

// publishPaymentEvent announces a payment state change on the booking's
// event stream. The booking row is read only to fill in the routing fields;
// a failed read degrades to an event without them.
func (s *service) publishPaymentEvent(ctx context.Context, eventType notifications.EventType, payment *Payment) {
	if s.publisher == nil {
		return
	}
	bookingCode := ""
	showtimeID := uuid.Nil
	if booking, err := s.bookings.GetBookingRecord(ctx, payment.BookingID); err == nil {
		bookingCode = booking.BookingCode
		showtimeID = booking.ShowtimeID
	}
	s.publishEvent(ctx, notifications.NewBookingEvent(eventType, payment.BookingID, bookingCode, payment.UserID, showtimeID).
		WithAmount(payment.Amount, payment.Currency).
		WithMetadata("payment_id", payment.ID.String()).
		WithMetadata("payment_method", payment.PaymentMethod).
		WithMetadata("transaction_id", payment.GatewayTransactionID))
}

// publishEvent sends a lifecycle event, tolerating a missing or failing
// publisher. Event delivery never blocks a payment operation.
func (s *service) publishEvent(ctx context.Context, event *notifications.BookingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		log.Printf("Warning: failed to publish %s event for booking %s: %v", event.EventType, event.BookingID, err)
	}
}
