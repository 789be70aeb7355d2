package seats

import (
	"context"
	"log"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"cinebook/internal/showtimes"
)

// Catalog is the slice of the showtime catalog the seat map needs.
// Implemented by the showtimes service.
type Catalog interface {
	GetShowtimeByID(ctx context.Context, id uuid.UUID) (*showtimes.ShowtimeResponse, error)
	ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]showtimes.ShowtimeSeat, error)
}

type Service interface {
	GetSeatMap(ctx context.Context, showtimeID uuid.UUID) (*SeatMapResponse, error)
}

type service struct {
	engine  *Engine
	catalog Catalog
}

func NewService(engine *Engine, catalog Catalog) Service {
	return &service{engine: engine, catalog: catalog}
}

// GetSeatMap merges catalog metadata (type, price) with the engine's live
// state. The engine read reaps expired holds first, so a seat reported held
// always has a positive remaining_seconds. If the engine has no state for
// the showtime the map is served from the catalog alone, all seats available.
func (s *service) GetSeatMap(ctx context.Context, showtimeID uuid.UUID) (*SeatMapResponse, error) {
	if _, err := s.catalog.GetShowtimeByID(ctx, showtimeID); err != nil {
		return nil, err
	}

	seatRows, err := s.catalog.ListSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	status, err := s.engine.GetSeatsStatus(ctx, showtimeID.String())
	if err != nil {
		return nil, err
	}

	live := make(map[string]SeatState, len(status.Seats))
	if status.Exists {
		for _, st := range status.Seats {
			live[st.SeatID] = st
		}
	} else {
		log.Printf("Seat engine has no state for showtime %s, serving catalog-only map", showtimeID)
	}

	entries := make([]SeatMapEntry, 0, len(seatRows))
	for _, seat := range seatRows {
		entry := SeatMapEntry{
			SeatID:   seat.SeatID,
			SeatType: string(seat.SeatType),
			Price:    seat.Price,
			Status:   StatusAvailable,
		}
		if st, ok := live[seat.SeatID]; ok {
			entry.Status = st.Status
			entry.RemainingSeconds = st.RemainingSeconds
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return seatLess(entries[i].SeatID, entries[j].SeatID)
	})

	available := int64(len(seatRows))
	if status.Exists {
		available = status.Available
	}

	return &SeatMapResponse{
		ShowtimeID: showtimeID.String(),
		Available:  available,
		Total:      len(entries),
		Seats:      entries,
	}, nil
}

// seatLess orders "A2" before "A10": row label first, then seat number.
func seatLess(a, b string) bool {
	rowA, numA := splitSeatID(a)
	rowB, numB := splitSeatID(b)
	if rowA != rowB {
		return rowA < rowB
	}
	if numA != numB {
		return numA < numB
	}
	return a < b
}

func splitSeatID(id string) (string, int) {
	i := 0
	for i < len(id) && (id[i] < '0' || id[i] > '9') {
		i++
	}
	num, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, 0
	}
	return id[:i], num
}
