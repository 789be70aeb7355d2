package seats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/internal/shared/apperrors"
)

// fakeRunner records every script invocation and plays back canned payloads,
// so these tests cover the Go side of the engine: key construction, argument
// marshaling, result decoding and error mapping.
type fakeRunner struct {
	calls   []scriptCall
	payload string
	err     error
}

type scriptCall struct {
	name string
	keys []string
	args []interface{}
}

func (f *fakeRunner) Run(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	f.calls = append(f.calls, scriptCall{name: name, keys: keys, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newTestEngine(runner *fakeRunner) *Engine {
	return NewEngine(nil, runner)
}

func TestBatchReserveSuccess(t *testing.T) {
	runner := &fakeRunner{payload: `{"success":true,"reserved":2,"expires_at":1756100600}`}
	engine := newTestEngine(runner)

	result, err := engine.BatchReserve(context.Background(), "show-1", "booking-1", 10*time.Minute, []SeatRequest{
		{SeatID: "A1", SeatType: "standard"},
		{SeatID: "F7", SeatType: "vip"},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Reserved)
	assert.Equal(t, int64(1756100600), result.ExpiresAt)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, scriptBatchReserve, call.name)
	assert.Equal(t, []string{"cinebook:seats:show-1", "cinebook:available:show-1"}, call.keys)
	assert.Equal(t, []interface{}{"booking-1", int64(600), "A1", "standard", "F7", "vip"}, call.args)
}

func TestBatchReserveUnavailableMapsToConflict(t *testing.T) {
	runner := &fakeRunner{payload: `{"success":false,"unavailable":[{"seat_id":"A1","reason":"HELD"},{"seat_id":"A2","reason":"BOOKED"}]}`}
	engine := newTestEngine(runner)

	result, err := engine.BatchReserve(context.Background(), "show-1", "booking-1", 10*time.Minute, []SeatRequest{
		{SeatID: "A1", SeatType: "standard"},
		{SeatID: "A2", SeatType: "standard"},
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsCode(err, "SEATS_NOT_AVAILABLE"))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	details, ok := appErr.Details.(map[string]interface{})
	require.True(t, ok)
	unavailable, ok := details["unavailable"].([]UnavailableSeat)
	require.True(t, ok)
	require.Len(t, unavailable, 2)
	assert.Equal(t, UnavailableSeat{SeatID: "A1", Reason: ReasonHeld}, unavailable[0])
	assert.Equal(t, UnavailableSeat{SeatID: "A2", Reason: ReasonBooked}, unavailable[1])
}

func TestBatchReserveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		seats    []SeatRequest
	}{
		{name: "empty seat list", duration: 10 * time.Minute, seats: nil},
		{name: "zero duration", duration: 0, seats: []SeatRequest{{SeatID: "A1", SeatType: "standard"}}},
		{name: "negative duration", duration: -time.Minute, seats: []SeatRequest{{SeatID: "A1", SeatType: "standard"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			engine := newTestEngine(runner)

			_, err := engine.BatchReserve(context.Background(), "show-1", "booking-1", tt.duration, tt.seats)

			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
			assert.Empty(t, runner.calls, "invalid input must not reach the store")
		})
	}
}

func TestConfirmSeats(t *testing.T) {
	runner := &fakeRunner{payload: `{"confirmed":["A1","A2"]}`}
	engine := newTestEngine(runner)

	result, err := engine.ConfirmSeats(context.Background(), "show-1", "booking-1", []string{"A1", "A2"})

	require.NoError(t, err)
	assert.True(t, result.AllConfirmed())
	assert.Equal(t, []string{"A1", "A2"}, result.Confirmed)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, scriptConfirmSeats, call.name)
	assert.Equal(t, []string{"cinebook:seats:show-1"}, call.keys)
	assert.Equal(t, []interface{}{"booking-1", "A1", "A2"}, call.args)
}

func TestConfirmSeatsPartialFailure(t *testing.T) {
	runner := &fakeRunner{payload: `{"confirmed":["A1"],"failed":[{"seat_id":"A2","reason":"HOLD_EXPIRED"}]}`}
	engine := newTestEngine(runner)

	result, err := engine.ConfirmSeats(context.Background(), "show-1", "booking-1", []string{"A1", "A2"})

	require.NoError(t, err)
	assert.False(t, result.AllConfirmed())
	assert.Equal(t, []string{"A1"}, result.Confirmed)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, FailedSeat{SeatID: "A2", Reason: ReasonHoldExpired}, result.Failed[0])
}

func TestReleaseSeats(t *testing.T) {
	runner := &fakeRunner{payload: `{"released":["A1"],"failed":[{"seat_id":"B9","reason":"WRONG_BOOKING"}]}`}
	engine := newTestEngine(runner)

	result, err := engine.ReleaseSeats(context.Background(), "show-1", "booking-1", ReleasePaymentFailed, []string{"A1", "B9"})

	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, result.Released)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, ReasonWrongBooking, result.Failed[0].Reason)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, scriptReleaseSeats, call.name)
	assert.Equal(t, []string{"cinebook:seats:show-1", "cinebook:available:show-1"}, call.keys)
	assert.Equal(t, []interface{}{"booking-1", ReleasePaymentFailed, "A1", "B9"}, call.args)
}

func TestCleanupExpiredHolds(t *testing.T) {
	runner := &fakeRunner{payload: `{"released":3,"seat_ids":["A1","A2","C4"]}`}
	engine := newTestEngine(runner)

	result, err := engine.CleanupExpiredHolds(context.Background(), "show-1")

	require.NoError(t, err)
	assert.Equal(t, 3, result.Released)
	assert.Equal(t, []string{"A1", "A2", "C4"}, result.SeatIDs)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, scriptCleanupHolds, runner.calls[0].name)
	assert.Empty(t, runner.calls[0].args)
}

func TestGetSeatsStatus(t *testing.T) {
	runner := &fakeRunner{payload: `{"exists":true,"available":97,"reaped":1,"seats":[{"seat_id":"A1","status":"held","seat_type":"standard","booking_id":"booking-1","remaining_seconds":540},{"seat_id":"A2","status":"available","seat_type":"standard"}]}`}
	engine := newTestEngine(runner)

	result, err := engine.GetSeatsStatus(context.Background(), "show-1")

	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.Equal(t, int64(97), result.Available)
	assert.Equal(t, 1, result.Reaped)
	require.Len(t, result.Seats, 2)
	assert.Equal(t, StatusHeld, result.Seats[0].Status)
	assert.Equal(t, int64(540), result.Seats[0].RemainingSeconds)
	assert.Equal(t, "booking-1", result.Seats[0].BookingID)
}

func TestGetSeatsStatusMissingShowtime(t *testing.T) {
	runner := &fakeRunner{payload: `{"exists":false}`}
	engine := newTestEngine(runner)

	result, err := engine.GetSeatsStatus(context.Background(), "show-404")

	require.NoError(t, err)
	assert.False(t, result.Exists)
	assert.Empty(t, result.Seats)
}

func TestExtendHold(t *testing.T) {
	runner := &fakeRunner{payload: `{"success":true,"extended":2,"expires_at":1756101200}`}
	engine := newTestEngine(runner)

	result, err := engine.ExtendHold(context.Background(), "show-1", "booking-1", 5*time.Minute, []string{"A1", "A2"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Extended)
	assert.Equal(t, int64(1756101200), result.ExpiresAt)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, scriptExtendHold, call.name)
	assert.Equal(t, []string{"cinebook:seats:show-1"}, call.keys)
	assert.Equal(t, []interface{}{"booking-1", int64(300), "A1", "A2"}, call.args)
}

func TestExtendHoldRejectsBadInput(t *testing.T) {
	runner := &fakeRunner{}
	engine := newTestEngine(runner)

	_, err := engine.ExtendHold(context.Background(), "show-1", "booking-1", 0, []string{"A1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	assert.Empty(t, runner.calls)
}

func TestScriptErrorPropagates(t *testing.T) {
	runner := &fakeRunner{err: errors.New("connection refused")}
	engine := newTestEngine(runner)

	_, err := engine.ConfirmSeats(context.Background(), "show-1", "booking-1", []string{"A1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))
	assert.Contains(t, err.Error(), "connection refused")
}
