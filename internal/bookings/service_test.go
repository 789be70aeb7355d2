package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cinebook/internal/idempotency"
	"cinebook/internal/notifications"
	"cinebook/internal/seats"
	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/config"
	"cinebook/internal/showtimes"
)

// ---- mocks ----

type mockRepository struct {
	byID        map[uuid.UUID]*Booking
	byKey       map[string]uuid.UUID
	createErrs  []error
	createCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		byID:  make(map[uuid.UUID]*Booking),
		byKey: make(map[string]uuid.UUID),
	}
}

func (m *mockRepository) CreateWithSeats(ctx context.Context, booking *Booking) error {
	m.createCalls++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	clone := *booking
	m.byID[booking.ID] = &clone
	m.byKey[booking.IdempotencyKey] = booking.ID
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	booking, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *booking
	return &clone, nil
}

func (m *mockRepository) GetByIdempotencyKey(ctx context.Context, key string) (*Booking, error) {
	id, ok := m.byKey[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	booking, ok := m.byID[id]
	if !ok || booking.Status != StatusPending {
		return false, nil
	}
	booking.Status = StatusConfirmed
	booking.ConfirmedAt = &confirmedAt
	return true, nil
}

func (m *mockRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, cancelledAt time.Time) (bool, error) {
	booking, ok := m.byID[id]
	if !ok || booking.Status != StatusPending {
		return false, nil
	}
	booking.Status = StatusCancelled
	booking.CancelledAt = &cancelledAt
	booking.CancellationReason = reason
	return true, nil
}

func (m *mockRepository) MarkExpired(ctx context.Context, id uuid.UUID, reason string, cancelledAt time.Time) (bool, error) {
	booking, ok := m.byID[id]
	if !ok || booking.Status != StatusPending {
		return false, nil
	}
	booking.Status = StatusExpired
	booking.CancelledAt = &cancelledAt
	booking.CancellationReason = reason
	return true, nil
}

func (m *mockRepository) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID uuid.UUID) error {
	booking, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	booking.PaymentID = &paymentID
	return nil
}

func (m *mockRepository) RecordPendingSeats(ctx context.Context, id uuid.UUID, pending PendingSeats) error {
	booking, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	booking.PendingSeats = pending
	return nil
}

func (m *mockRepository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	var out []Booking
	for _, booking := range m.byID {
		if booking.Status == StatusPending && !booking.HoldExpiresAt.After(cutoff) {
			out = append(out, *booking)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type reserveCall struct {
	showtimeID   string
	bookingID    string
	holdDuration time.Duration
	seats        []seats.SeatRequest
}

type releaseCall struct {
	showtimeID string
	bookingID  string
	reason     string
	seatIDs    []string
}

type mockEngine struct {
	reserveResult *seats.ReserveResult
	reserveErr    error
	reserveCalls  []reserveCall
	confirmResult *seats.ConfirmResult
	confirmErr    error
	releaseCalls  []releaseCall
	releaseErr    error
}

func (m *mockEngine) BatchReserve(ctx context.Context, showtimeID, bookingID string, holdDuration time.Duration, seatReqs []seats.SeatRequest) (*seats.ReserveResult, error) {
	m.reserveCalls = append(m.reserveCalls, reserveCall{showtimeID, bookingID, holdDuration, seatReqs})
	if m.reserveErr != nil {
		return nil, m.reserveErr
	}
	return m.reserveResult, nil
}

func (m *mockEngine) ConfirmSeats(ctx context.Context, showtimeID, bookingID string, seatIDs []string) (*seats.ConfirmResult, error) {
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	return m.confirmResult, nil
}

func (m *mockEngine) ReleaseSeats(ctx context.Context, showtimeID, bookingID, reason string, seatIDs []string) (*seats.ReleaseResult, error) {
	m.releaseCalls = append(m.releaseCalls, releaseCall{showtimeID, bookingID, reason, seatIDs})
	if m.releaseErr != nil {
		return nil, m.releaseErr
	}
	return &seats.ReleaseResult{Released: seatIDs}, nil
}

type mockCatalog struct {
	showtime    *showtimes.Showtime
	showtimeErr error
	prices      map[string]decimal.Decimal
}

func (m *mockCatalog) GetShowtimeForBooking(ctx context.Context, id uuid.UUID) (*showtimes.Showtime, error) {
	if m.showtimeErr != nil {
		return nil, m.showtimeErr
	}
	return m.showtime, nil
}

func (m *mockCatalog) ResolveSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []string) ([]showtimes.SeatInfo, error) {
	out := make([]showtimes.SeatInfo, 0, len(seatIDs))
	for _, id := range seatIDs {
		price, ok := m.prices[id]
		if !ok {
			return nil, apperrors.Validation("INVALID_SEAT", "One or more seats do not exist for this showtime")
		}
		out = append(out, showtimes.SeatInfo{SeatID: id, SeatType: "standard", Price: price})
	}
	return out, nil
}

type idemRecord struct {
	status     string
	statusCode int
	body       []byte
}

type mockIdempotency struct {
	records  map[string]*idemRecord
	checkErr error
	purged   int64

	completes int
	fails     int
	forgets   int
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{records: make(map[string]*idemRecord)}
}

func (m *mockIdempotency) recordKey(key string, userID uuid.UUID) string {
	return key + "|" + userID.String()
}

func (m *mockIdempotency) Check(ctx context.Context, key string, userID uuid.UUID, requestPath, requestHash, resourceType string) (*idempotency.CheckResult, error) {
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	rec, ok := m.records[m.recordKey(key, userID)]
	if !ok {
		m.records[m.recordKey(key, userID)] = &idemRecord{status: "processing"}
		return &idempotency.CheckResult{New: true}, nil
	}
	if rec.status == "processing" {
		return nil, apperrors.Conflict("REQUEST_IN_FLIGHT", "A request with this idempotency key is still being processed")
	}
	return &idempotency.CheckResult{New: false, CachedStatus: rec.statusCode, CachedBody: rec.body}, nil
}

func (m *mockIdempotency) Complete(ctx context.Context, key string, userID uuid.UUID, statusCode int, body interface{}, resourceID *uuid.UUID) error {
	m.completes++
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	m.records[m.recordKey(key, userID)] = &idemRecord{status: "completed", statusCode: statusCode, body: payload}
	return nil
}

func (m *mockIdempotency) Fail(ctx context.Context, key string, userID uuid.UUID, failure error) error {
	m.fails++
	appErr := apperrors.FromError(failure)
	m.records[m.recordKey(key, userID)] = &idemRecord{status: "failed", statusCode: appErr.Status}
	return nil
}

func (m *mockIdempotency) Forget(ctx context.Context, key string, userID uuid.UUID) error {
	m.forgets++
	delete(m.records, m.recordKey(key, userID))
	return nil
}

func (m *mockIdempotency) DeleteExpired(ctx context.Context) (int64, error) {
	return m.purged, nil
}

type recordingPublisher struct {
	events []*notifications.BookingEvent
}

func (p *recordingPublisher) PublishBookingEvent(ctx context.Context, event *notifications.BookingEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) HealthCheck(ctx context.Context) error { return nil }

func (p *recordingPublisher) eventTypes() []notifications.EventType {
	types := make([]notifications.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakeInitiator struct {
	last    *PaymentRequest
	outcome *PaymentOutcome
}

func (f *fakeInitiator) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentOutcome, error) {
	f.last = &req
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &PaymentOutcome{StatusCode: http.StatusOK, Body: json.RawMessage(`{"status":"success"}`)}, nil
}

// ---- fixture ----

type fixture struct {
	repo      *mockRepository
	engine    *mockEngine
	catalog   *mockCatalog
	idem      *mockIdempotency
	publisher *recordingPublisher
	svc       Service

	showtimeID uuid.UUID
	userID     uuid.UUID
}

func newFixture() *fixture {
	showtimeID := uuid.New()
	f := &fixture{
		repo:   newMockRepository(),
		engine: &mockEngine{},
		catalog: &mockCatalog{
			showtime: &showtimes.Showtime{
				ID:        showtimeID,
				StartsAt:  time.Now().Add(4 * time.Hour),
				Status:    showtimes.ShowtimeStatusScheduled,
				BasePrice: decimal.NewFromInt(90000),
			},
			prices: map[string]decimal.Decimal{
				"A1": decimal.NewFromInt(90000),
				"A2": decimal.NewFromInt(90000),
				"F7": decimal.NewFromInt(135000),
			},
		},
		idem:       newMockIdempotency(),
		publisher:  &recordingPublisher{},
		showtimeID: showtimeID,
		userID:     uuid.New(),
	}
	f.engine.reserveResult = &seats.ReserveResult{
		Success:   true,
		Reserved:  2,
		ExpiresAt: time.Now().Add(10 * time.Minute).Unix(),
	}
	cfg := config.BookingConfig{
		HoldDuration:       10 * time.Minute,
		MaxSeatsPerBooking: 10,
	}
	f.svc = NewService(f.repo, f.engine, f.catalog, f.idem, f.publisher, cfg)
	return f
}

func (f *fixture) holdSeats(t *testing.T, key string, seatIDs []string) *HoldOutcome {
	t.Helper()
	outcome, err := f.svc.HoldSeats(context.Background(), f.userID, key, "/api/v1/bookings/hold", "hash-1", HoldSeatsRequest{
		ShowtimeID: f.showtimeID.String(),
		Seats:      seatIDs,
	})
	require.NoError(t, err)
	return outcome
}

// seedPendingBooking puts a pending booking straight into the repository.
func (f *fixture) seedPendingBooking(userID uuid.UUID, holdExpiresAt time.Time) *Booking {
	booking := &Booking{
		ID:             uuid.New(),
		BookingCode:    "BK-TESTCODE",
		UserID:         userID,
		ShowtimeID:     f.showtimeID,
		Status:         StatusPending,
		TotalAmount:    decimal.NewFromInt(180000),
		DiscountAmount: decimal.Zero,
		FinalAmount:    decimal.NewFromInt(180000),
		Currency:       "VND",
		HeldAt:         time.Now().Add(-1 * time.Minute),
		HoldExpiresAt:  holdExpiresAt,
		IdempotencyKey: uuid.NewString(),
		Seats: []BookingSeat{
			{SeatID: "A1", SeatType: "standard", Price: decimal.NewFromInt(90000)},
			{SeatID: "A2", SeatType: "standard", Price: decimal.NewFromInt(90000)},
		},
	}
	clone := *booking
	f.repo.byID[booking.ID] = &clone
	f.repo.byKey[booking.IdempotencyKey] = booking.ID
	return booking
}

type holdEnvelope struct {
	Status     string            `json:"status"`
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Data       HoldSeatsResponse `json:"data"`
}

// ---- tests ----

func TestHoldSeatsFresh(t *testing.T) {
	f := newFixture()

	outcome := f.holdSeats(t, uuid.NewString(), []string{"A1", "F7"})

	assert.Equal(t, http.StatusCreated, outcome.StatusCode)
	assert.False(t, outcome.Replayed)

	var envelope holdEnvelope
	require.NoError(t, json.Unmarshal(outcome.Body, &envelope))
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, "pending", envelope.Data.Status)
	assert.Regexp(t, `^BK-[A-Z0-9]{8}$`, envelope.Data.BookingCode)
	assert.True(t, envelope.Data.FinalAmount.Equal(decimal.NewFromInt(225000)))
	assert.Greater(t, envelope.Data.ExpiresInSeconds, int64(0))

	// The durable row matches what the engine reserved.
	require.Len(t, f.engine.reserveCalls, 1)
	call := f.engine.reserveCalls[0]
	assert.Equal(t, f.showtimeID.String(), call.showtimeID)
	assert.Equal(t, 10*time.Minute, call.holdDuration)
	bookingID := uuid.MustParse(envelope.Data.BookingID)
	assert.Equal(t, bookingID.String(), call.bookingID)

	stored, err := f.repo.GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Len(t, stored.Seats, 2)

	assert.Equal(t, 1, f.idem.completes)
	assert.Equal(t, []notifications.EventType{notifications.EventBookingHeld}, f.publisher.eventTypes())
}

func TestHoldSeatsReplayReturnsStoredBytes(t *testing.T) {
	f := newFixture()
	key := uuid.NewString()

	first := f.holdSeats(t, key, []string{"A1", "A2"})
	second := f.holdSeats(t, key, []string{"A1", "A2"})

	assert.True(t, second.Replayed)
	assert.Equal(t, first.StatusCode, second.StatusCode)
	assert.Equal(t, string(first.Body), string(second.Body))

	// The replay never touched the engine or the database again.
	assert.Len(t, f.engine.reserveCalls, 1)
	assert.Equal(t, 1, f.repo.createCalls)
	assert.Len(t, f.publisher.events, 1)
}

func TestHoldSeatsInFlightHealsFromDurableBooking(t *testing.T) {
	f := newFixture()
	key := uuid.NewString()

	// A crashed predecessor persisted the booking but left the idempotency
	// record stuck in processing.
	booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))
	booking.IdempotencyKey = key
	f.repo.byID[booking.ID].IdempotencyKey = key
	f.repo.byKey[key] = booking.ID
	f.idem.records[f.idem.recordKey(key, f.userID)] = &idemRecord{status: "processing"}

	outcome := f.holdSeats(t, key, []string{"A1", "A2"})

	assert.True(t, outcome.Replayed)
	assert.Equal(t, http.StatusCreated, outcome.StatusCode)
	var envelope holdEnvelope
	require.NoError(t, json.Unmarshal(outcome.Body, &envelope))
	assert.Equal(t, booking.ID.String(), envelope.Data.BookingID)

	// The rebuild healed the stuck record.
	assert.Equal(t, 1, f.idem.completes)
	assert.Empty(t, f.engine.reserveCalls)
}

func TestHoldSeatsInFlightWithoutDurableBooking(t *testing.T) {
	f := newFixture()
	key := uuid.NewString()
	f.idem.records[f.idem.recordKey(key, f.userID)] = &idemRecord{status: "processing"}

	_, err := f.svc.HoldSeats(context.Background(), f.userID, key, "/api/v1/bookings/hold", "hash-1", HoldSeatsRequest{
		ShowtimeID: f.showtimeID.String(),
		Seats:      []string{"A1"},
	})

	assert.True(t, apperrors.IsCode(err, "REQUEST_IN_FLIGHT"), "got %v", err)
}

func TestHoldSeatsUnavailableConflict(t *testing.T) {
	f := newFixture()
	f.engine.reserveErr = apperrors.Conflict("SEATS_NOT_AVAILABLE", "One or more seats are not available").
		WithDetails(map[string]interface{}{"unavailable": []seats.UnavailableSeat{{SeatID: "A1", Reason: seats.ReasonHeld}}})

	_, err := f.svc.HoldSeats(context.Background(), f.userID, uuid.NewString(), "/api/v1/bookings/hold", "hash-1", HoldSeatsRequest{
		ShowtimeID: f.showtimeID.String(),
		Seats:      []string{"A1", "A2"},
	})

	assert.True(t, apperrors.IsCode(err, "SEATS_NOT_AVAILABLE"), "got %v", err)
	assert.Equal(t, 0, f.repo.createCalls)
	// Business failure is recorded for replay, not forgotten.
	assert.Equal(t, 1, f.idem.fails)
	assert.Equal(t, 0, f.idem.forgets)
}

func TestHoldSeatsRejectsTooManySeats(t *testing.T) {
	f := newFixture()
	cfg := config.BookingConfig{HoldDuration: 10 * time.Minute, MaxSeatsPerBooking: 2}
	f.svc = NewService(f.repo, f.engine, f.catalog, f.idem, f.publisher, cfg)

	_, err := f.svc.HoldSeats(context.Background(), f.userID, uuid.NewString(), "/api/v1/bookings/hold", "hash-1", HoldSeatsRequest{
		ShowtimeID: f.showtimeID.String(),
		Seats:      []string{"A1", "A2", "F7"},
	})

	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput), "got %v", err)
	assert.Empty(t, f.engine.reserveCalls)
}

func TestHoldSeatsDedupesSeatIDs(t *testing.T) {
	f := newFixture()

	outcome := f.holdSeats(t, uuid.NewString(), []string{"A1", "A1", "A2"})

	var envelope holdEnvelope
	require.NoError(t, json.Unmarshal(outcome.Body, &envelope))
	assert.Len(t, envelope.Data.Seats, 2)
	require.Len(t, f.engine.reserveCalls, 1)
	assert.Len(t, f.engine.reserveCalls[0].seats, 2)
}

func TestHoldSeatsPersistFailureReleasesHold(t *testing.T) {
	f := newFixture()
	f.repo.createErrs = []error{errors.New("connection refused")}

	_, err := f.svc.HoldSeats(context.Background(), f.userID, uuid.NewString(), "/api/v1/bookings/hold", "hash-1", HoldSeatsRequest{
		ShowtimeID: f.showtimeID.String(),
		Seats:      []string{"A1", "A2"},
	})

	assert.True(t, apperrors.IsCode(err, "BOOKING_PERSIST_FAILED"), "got %v", err)

	// The engine hold was compensated so the seats are not locked until
	// the hold lapses on its own.
	require.Len(t, f.engine.releaseCalls, 1)
	release := f.engine.releaseCalls[0]
	assert.Equal(t, seats.ReleasePersistFailed, release.reason)
	assert.ElementsMatch(t, []string{"A1", "A2"}, release.seatIDs)

	// Server-side failure: the key is forgotten so the client may retry.
	assert.Equal(t, 1, f.idem.forgets)
	assert.Equal(t, 0, f.idem.fails)
}

func TestHoldSeatsRetriesBookingCodeCollision(t *testing.T) {
	f := newFixture()
	f.repo.createErrs = []error{ErrBookingCodeTaken, ErrBookingCodeTaken, nil}

	outcome := f.holdSeats(t, uuid.NewString(), []string{"A1"})

	assert.Equal(t, http.StatusCreated, outcome.StatusCode)
	assert.Equal(t, 3, f.repo.createCalls)
	assert.Empty(t, f.engine.releaseCalls)
}

func TestConfirmSeatsAfterPayment(t *testing.T) {
	t.Run("all seats confirm", func(t *testing.T) {
		f := newFixture()
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))
		f.engine.confirmResult = &seats.ConfirmResult{Confirmed: []string{"A1", "A2"}}

		done, err := f.svc.ConfirmSeatsAfterPayment(context.Background(), booking.ID)
		require.NoError(t, err)
		assert.True(t, done)

		stored, _ := f.repo.GetByID(context.Background(), booking.ID)
		assert.Equal(t, StatusConfirmed, stored.Status)
		require.NotNil(t, stored.ConfirmedAt)
		assert.Equal(t, []notifications.EventType{notifications.EventBookingConfirmed}, f.publisher.eventTypes())
	})

	t.Run("partial confirm records pending seats", func(t *testing.T) {
		f := newFixture()
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))
		f.engine.confirmResult = &seats.ConfirmResult{
			Confirmed: []string{"A1"},
			Failed:    []seats.FailedSeat{{SeatID: "A2", Reason: seats.ReasonHoldExpired}},
		}

		done, err := f.svc.ConfirmSeatsAfterPayment(context.Background(), booking.ID)
		require.NoError(t, err)
		assert.False(t, done)

		stored, _ := f.repo.GetByID(context.Background(), booking.ID)
		assert.Equal(t, StatusPending, stored.Status)
		require.Len(t, stored.PendingSeats, 1)
		assert.Equal(t, "A2", stored.PendingSeats[0].SeatID)
		assert.Equal(t, seats.ReasonHoldExpired, stored.PendingSeats[0].Reason)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("unknown booking tolerated", func(t *testing.T) {
		f := newFixture()
		done, err := f.svc.ConfirmSeatsAfterPayment(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.False(t, done)
	})
}

func TestReleaseSeatsAfterPaymentFailure(t *testing.T) {
	f := newFixture()
	booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

	require.NoError(t, f.svc.ReleaseSeatsAfterPaymentFailure(context.Background(), booking.ID))

	require.Len(t, f.engine.releaseCalls, 1)
	assert.Equal(t, seats.ReleasePaymentFailed, f.engine.releaseCalls[0].reason)

	stored, _ := f.repo.GetByID(context.Background(), booking.ID)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Equal(t, "Payment failed", stored.CancellationReason)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, notifications.EventBookingCancelled, f.publisher.events[0].EventType)
	assert.Equal(t, "payment_failed", f.publisher.events[0].Metadata["reason"])
}

func TestCancelBooking(t *testing.T) {
	t.Run("owner cancels pending booking", func(t *testing.T) {
		f := newFixture()
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

		resp, err := f.svc.CancelBooking(context.Background(), booking.ID, f.userID, false)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		assert.NotNil(t, resp.CancelledAt)

		require.Len(t, f.engine.releaseCalls, 1)
		assert.Equal(t, seats.ReleaseCancelled, f.engine.releaseCalls[0].reason)
		assert.ElementsMatch(t, []string{"A1", "A2"}, f.engine.releaseCalls[0].seatIDs)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		f := newFixture()
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

		_, err := f.svc.CancelBooking(context.Background(), booking.ID, uuid.New(), false)
		assert.True(t, apperrors.IsCode(err, "BOOKING_NOT_OWNED"), "got %v", err)
		assert.Empty(t, f.engine.releaseCalls)
	})

	t.Run("admin may cancel any booking", func(t *testing.T) {
		f := newFixture()
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

		_, err := f.svc.CancelBooking(context.Background(), booking.ID, uuid.New(), true)
		require.NoError(t, err)
	})

	t.Run("confirmed booking cannot be cancelled", func(t *testing.T) {
		f := newFixture()
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))
		f.repo.byID[booking.ID].Status = StatusConfirmed

		_, err := f.svc.CancelBooking(context.Background(), booking.ID, f.userID, false)
		assert.True(t, apperrors.IsCode(err, "BOOKING_CANNOT_BE_CANCELLED"), "got %v", err)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CancelBooking(context.Background(), uuid.New(), f.userID, false)
		assert.True(t, apperrors.IsCode(err, "BOOKING_NOT_FOUND"), "got %v", err)
	})
}

func TestConfirmBooking(t *testing.T) {
	confirmReq := ConfirmBookingRequest{PaymentMethod: "momo"}

	t.Run("delegates to the payment initiator", func(t *testing.T) {
		f := newFixture()
		initiator := &fakeInitiator{}
		f.svc.SetPaymentInitiator(initiator)
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

		key := uuid.NewString()
		outcome, err := f.svc.ConfirmBooking(context.Background(), booking.ID, f.userID, key, "/api/v1/bookings/:id/confirm", "hash-2", confirmReq)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, outcome.StatusCode)

		require.NotNil(t, initiator.last)
		assert.Equal(t, booking.ID, initiator.last.BookingID)
		assert.Equal(t, f.userID, initiator.last.UserID)
		assert.Equal(t, key, initiator.last.IdempotencyKey)
		assert.Equal(t, "momo", initiator.last.Method)
	})

	t.Run("expired hold is rejected", func(t *testing.T) {
		f := newFixture()
		f.svc.SetPaymentInitiator(&fakeInitiator{})
		booking := f.seedPendingBooking(f.userID, time.Now().Add(-1*time.Second))

		_, err := f.svc.ConfirmBooking(context.Background(), booking.ID, f.userID, uuid.NewString(), "/api/v1/bookings/:id/confirm", "hash-2", confirmReq)
		assert.True(t, apperrors.IsCode(err, "BOOKING_HOLD_EXPIRED"), "got %v", err)
	})

	t.Run("non-pending booking is rejected", func(t *testing.T) {
		f := newFixture()
		f.svc.SetPaymentInitiator(&fakeInitiator{})
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))
		f.repo.byID[booking.ID].Status = StatusCancelled

		_, err := f.svc.ConfirmBooking(context.Background(), booking.ID, f.userID, uuid.NewString(), "/api/v1/bookings/:id/confirm", "hash-2", confirmReq)
		assert.True(t, apperrors.IsCode(err, "BOOKING_NOT_PENDING"), "got %v", err)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		f := newFixture()
		f.svc.SetPaymentInitiator(&fakeInitiator{})
		booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

		_, err := f.svc.ConfirmBooking(context.Background(), booking.ID, uuid.New(), uuid.NewString(), "/api/v1/bookings/:id/confirm", "hash-2", confirmReq)
		assert.True(t, apperrors.IsCode(err, "BOOKING_NOT_OWNED"), "got %v", err)
	})
}

func TestExpireBooking(t *testing.T) {
	f := newFixture()
	booking := f.seedPendingBooking(f.userID, time.Now().Add(-2*time.Minute))

	stored, _ := f.repo.GetByID(context.Background(), booking.ID)
	require.NoError(t, f.svc.ExpireBooking(context.Background(), stored))

	require.Len(t, f.engine.releaseCalls, 1)
	assert.Equal(t, seats.ReleaseHoldExpired, f.engine.releaseCalls[0].reason)

	after, _ := f.repo.GetByID(context.Background(), booking.ID)
	assert.Equal(t, StatusExpired, after.Status)
	assert.Equal(t, "Hold expired", after.CancellationReason)
	assert.Equal(t, []notifications.EventType{notifications.EventBookingExpired}, f.publisher.eventTypes())
}

func TestGetBookingOwnership(t *testing.T) {
	f := newFixture()
	booking := f.seedPendingBooking(f.userID, time.Now().Add(8*time.Minute))

	resp, err := f.svc.GetBooking(context.Background(), booking.ID, f.userID, false)
	require.NoError(t, err)
	assert.Equal(t, booking.ID.String(), resp.BookingID)

	_, err = f.svc.GetBooking(context.Background(), booking.ID, uuid.New(), false)
	assert.True(t, apperrors.IsCode(err, "BOOKING_NOT_OWNED"), "got %v", err)

	resp, err = f.svc.GetBooking(context.Background(), booking.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, booking.ID.String(), resp.BookingID)
}
