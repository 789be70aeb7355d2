package seats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/constants"
)

// ScriptRunner executes a registered script by name. Satisfied by
// cache.ScriptExecutor; tests substitute a fake.
type ScriptRunner interface {
	Run(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error)
}

// Engine is the authority for live seat state. All transitions between
// available, held and booked happen inside single Redis scripts, so no two
// bookings can ever interleave on the same seat. The relational catalog only
// describes seats; this engine decides who has them.
type Engine struct {
	client *redis.Client
	runner ScriptRunner
}

func NewEngine(client *redis.Client, runner ScriptRunner) *Engine {
	return &Engine{client: client, runner: runner}
}

// InitializeShowtimeSeats writes the full seat inventory for a showtime and
// sets the availability counter to the seat count. Re-initializing wipes
// whatever state was there, so callers must only do this before sales open.
func (e *Engine) InitializeShowtimeSeats(ctx context.Context, showtimeID string, seats []SeatRequest) error {
	if len(seats) == 0 {
		return apperrors.Validation(apperrors.CodeInvalidInput, "Cannot initialize a showtime with no seats")
	}

	seatsKey := constants.SeatsKey(showtimeID)
	counterKey := constants.AvailableKey(showtimeID)

	pipe := e.client.TxPipeline()
	pipe.Del(ctx, seatsKey, counterKey)
	for _, seat := range seats {
		record, err := json.Marshal(map[string]string{
			"status":    StatusAvailable,
			"seat_type": seat.SeatType,
		})
		if err != nil {
			return apperrors.Internal("Failed to encode seat record", err)
		}
		pipe.HSet(ctx, seatsKey, seat.SeatID, record)
	}
	pipe.Set(ctx, counterKey, len(seats), constants.TTL_SHOWTIME_KV)
	pipe.Expire(ctx, seatsKey, constants.TTL_SHOWTIME_KV)

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Internal("Failed to initialize showtime seats", err)
	}
	return nil
}

// BatchReserve atomically holds every requested seat for bookingID, or holds
// none of them; any unavailable seat fails the whole request with a
// SEATS_NOT_AVAILABLE conflict carrying the per-seat reasons. The hold expiry
// is computed inside the script from the Redis clock, so callers only choose
// a duration and never race their own clocks.
func (e *Engine) BatchReserve(ctx context.Context, showtimeID, bookingID string, holdDuration time.Duration, seatReqs []SeatRequest) (*ReserveResult, error) {
	seconds := int64(holdDuration.Seconds())
	if len(seatReqs) == 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "At least one seat must be requested")
	}
	if seconds <= 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Hold duration must be positive")
	}

	args := make([]interface{}, 0, 2+2*len(seatReqs))
	args = append(args, bookingID, seconds)
	for _, seat := range seatReqs {
		args = append(args, seat.SeatID, seat.SeatType)
	}

	payload, err := e.eval(ctx, scriptBatchReserve, engineKeys(showtimeID), args...)
	if err != nil {
		return nil, err
	}

	var result ReserveResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Internal("Failed to decode reserve result", err)
	}
	if result.Error == "INVALID_INPUT" {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Invalid seat reservation request")
	}
	if !result.Success {
		return nil, apperrors.Conflict("SEATS_NOT_AVAILABLE", "One or more seats are not available").
			WithDetails(map[string]interface{}{"unavailable": result.Unavailable})
	}
	return &result, nil
}

// ConfirmSeats flips held seats to booked for bookingID. Outcomes are per
// seat: an already-confirmed seat stays confirmed even when a sibling fails,
// and the caller is responsible for reconciling a partial result.
func (e *Engine) ConfirmSeats(ctx context.Context, showtimeID, bookingID string, seatIDs []string) (*ConfirmResult, error) {
	args := make([]interface{}, 0, 1+len(seatIDs))
	args = append(args, bookingID)
	for _, id := range seatIDs {
		args = append(args, id)
	}

	payload, err := e.eval(ctx, scriptConfirmSeats, []string{constants.SeatsKey(showtimeID)}, args...)
	if err != nil {
		return nil, err
	}

	var result ConfirmResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Internal("Failed to decode confirm result", err)
	}
	return &result, nil
}

// ReleaseSeats returns bookingID's seats to the pool, whether they were held
// or already booked. Seats that do not belong to the booking are left alone
// and reported, which makes blind retries safe.
func (e *Engine) ReleaseSeats(ctx context.Context, showtimeID, bookingID, reason string, seatIDs []string) (*ReleaseResult, error) {
	args := make([]interface{}, 0, 2+len(seatIDs))
	args = append(args, bookingID, reason)
	for _, id := range seatIDs {
		args = append(args, id)
	}

	payload, err := e.eval(ctx, scriptReleaseSeats, engineKeys(showtimeID), args...)
	if err != nil {
		return nil, err
	}

	var result ReleaseResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Internal("Failed to decode release result", err)
	}
	return &result, nil
}

// CleanupExpiredHolds sweeps one showtime and releases every hold whose
// expiry has passed.
func (e *Engine) CleanupExpiredHolds(ctx context.Context, showtimeID string) (*CleanupResult, error) {
	payload, err := e.eval(ctx, scriptCleanupHolds, engineKeys(showtimeID))
	if err != nil {
		return nil, err
	}

	var result CleanupResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Internal("Failed to decode cleanup result", err)
	}
	return &result, nil
}

// GetSeatsStatus reads live seat state. Passing no seat ids returns the full
// map. The read reaps expired holds first, so callers always see holds that
// are actually enforceable.
func (e *Engine) GetSeatsStatus(ctx context.Context, showtimeID string, seatIDs ...string) (*StatusResult, error) {
	args := make([]interface{}, 0, len(seatIDs))
	for _, id := range seatIDs {
		args = append(args, id)
	}

	payload, err := e.eval(ctx, scriptSeatsStatus, engineKeys(showtimeID), args...)
	if err != nil {
		return nil, err
	}

	var result StatusResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Internal("Failed to decode seats status", err)
	}
	return &result, nil
}

// ExtendHold pushes the expiry of live holds further out. Expired holds are
// reported as failed, never revived.
func (e *Engine) ExtendHold(ctx context.Context, showtimeID, bookingID string, additional time.Duration, seatIDs []string) (*ExtendResult, error) {
	seconds := int64(additional.Seconds())
	if len(seatIDs) == 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "At least one seat must be requested")
	}
	if seconds <= 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Extension duration must be positive")
	}

	args := make([]interface{}, 0, 2+len(seatIDs))
	args = append(args, bookingID, seconds)
	for _, id := range seatIDs {
		args = append(args, id)
	}

	payload, err := e.eval(ctx, scriptExtendHold, []string{constants.SeatsKey(showtimeID)}, args...)
	if err != nil {
		return nil, err
	}

	var result ExtendResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, apperrors.Internal("Failed to decode extend result", err)
	}
	if result.Error == "INVALID_INPUT" {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "Invalid hold extension request")
	}
	return &result, nil
}

func (e *Engine) eval(ctx context.Context, script string, keys []string, args ...interface{}) ([]byte, error) {
	result, err := e.runner.Run(ctx, script, keys, args...)
	if err != nil {
		return nil, apperrors.Internal("Seat engine script failed", err)
	}
	payload, ok := result.(string)
	if !ok {
		return nil, apperrors.Internal("Seat engine script failed", fmt.Errorf("unexpected result type %T", result))
	}
	return []byte(payload), nil
}

func engineKeys(showtimeID string) []string {
	return []string{constants.SeatsKey(showtimeID), constants.AvailableKey(showtimeID)}
}
