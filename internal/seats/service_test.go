package seats

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/showtimes"
)

type mockCatalog struct {
	showtime *showtimes.ShowtimeResponse
	seats    []showtimes.ShowtimeSeat
}

func (m *mockCatalog) GetShowtimeByID(ctx context.Context, id uuid.UUID) (*showtimes.ShowtimeResponse, error) {
	if m.showtime == nil {
		return nil, apperrors.NotFound("SHOWTIME_NOT_FOUND", "Showtime not found")
	}
	return m.showtime, nil
}

func (m *mockCatalog) ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]showtimes.ShowtimeSeat, error) {
	return m.seats, nil
}

func seatRow(seatID, seatType string, price int64) showtimes.ShowtimeSeat {
	return showtimes.ShowtimeSeat{
		SeatID:   seatID,
		SeatType: showtimes.SeatType(seatType),
		Price:    decimal.NewFromInt(price),
	}
}

func TestGetSeatMapMergesEngineState(t *testing.T) {
	showtimeID := uuid.New()
	catalog := &mockCatalog{
		showtime: &showtimes.ShowtimeResponse{ID: showtimeID.String()},
		seats: []showtimes.ShowtimeSeat{
			seatRow("A10", "standard", 90000),
			seatRow("F7", "vip", 135000),
			seatRow("A1", "standard", 90000),
			seatRow("A2", "standard", 90000),
		},
	}
	runner := &fakeRunner{payload: `{"exists":true,"available":2,"reaped":0,"seats":[{"seat_id":"A1","status":"held","seat_type":"standard","booking_id":"booking-1","remaining_seconds":300},{"seat_id":"F7","status":"booked","seat_type":"vip","booking_id":"booking-2"}]}`}
	svc := NewService(newTestEngine(runner), catalog)

	seatMap, err := svc.GetSeatMap(context.Background(), showtimeID)

	require.NoError(t, err)
	assert.Equal(t, showtimeID.String(), seatMap.ShowtimeID)
	assert.Equal(t, int64(2), seatMap.Available)
	assert.Equal(t, 4, seatMap.Total)

	ids := make([]string, 0, len(seatMap.Seats))
	for _, entry := range seatMap.Seats {
		ids = append(ids, entry.SeatID)
	}
	assert.Equal(t, []string{"A1", "A2", "A10", "F7"}, ids, "seat order must be row then number")

	byID := make(map[string]SeatMapEntry)
	for _, entry := range seatMap.Seats {
		byID[entry.SeatID] = entry
	}
	assert.Equal(t, StatusHeld, byID["A1"].Status)
	assert.Equal(t, int64(300), byID["A1"].RemainingSeconds)
	assert.Equal(t, StatusBooked, byID["F7"].Status)
	assert.Equal(t, StatusAvailable, byID["A2"].Status)
	assert.True(t, byID["F7"].Price.Equal(decimal.NewFromInt(135000)))
}

func TestGetSeatMapWithoutEngineState(t *testing.T) {
	showtimeID := uuid.New()
	catalog := &mockCatalog{
		showtime: &showtimes.ShowtimeResponse{ID: showtimeID.String()},
		seats: []showtimes.ShowtimeSeat{
			seatRow("A1", "standard", 90000),
			seatRow("A2", "standard", 90000),
		},
	}
	runner := &fakeRunner{payload: `{"exists":false}`}
	svc := NewService(newTestEngine(runner), catalog)

	seatMap, err := svc.GetSeatMap(context.Background(), showtimeID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), seatMap.Available)
	for _, entry := range seatMap.Seats {
		assert.Equal(t, StatusAvailable, entry.Status)
	}
}

func TestGetSeatMapUnknownShowtime(t *testing.T) {
	runner := &fakeRunner{payload: `{"exists":false}`}
	svc := NewService(newTestEngine(runner), &mockCatalog{})

	_, err := svc.GetSeatMap(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "SHOWTIME_NOT_FOUND"))
	assert.Empty(t, runner.calls, "missing showtime must not hit the engine")
}
