package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reaperService stubs only the two Service methods the reaper touches.
type reaperService struct {
	Service

	mu       sync.Mutex
	expired  []Booking
	failFor  map[uuid.UUID]error
	expireds []uuid.UUID
}

func (s *reaperService) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.expired) > limit {
		return s.expired[:limit], nil
	}
	return s.expired, nil
}

func (s *reaperService) ExpireBooking(ctx context.Context, booking *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[booking.ID]; err != nil {
		return err
	}
	s.expireds = append(s.expireds, booking.ID)
	return nil
}

func TestReaperSweep(t *testing.T) {
	lapsed := make([]Booking, 0, 5)
	for i := 0; i < 5; i++ {
		lapsed = append(lapsed, Booking{ID: uuid.New(), Status: StatusPending, HoldExpiresAt: time.Now().Add(-1 * time.Minute)})
	}

	t.Run("expires the whole batch", func(t *testing.T) {
		svc := &reaperService{expired: lapsed}
		idem := newMockIdempotency()
		idem.purged = 7

		reaper := NewReaper(svc, idem, &ReaperConfig{Period: time.Hour, BatchSize: 100, Parallelism: 3})
		reaper.sweep(context.Background())

		assert.Len(t, svc.expireds, 5)
		stats := reaper.Stats()
		assert.Equal(t, int64(1), stats.Sweeps)
		assert.Equal(t, int64(5), stats.BookingsExpired)
		assert.Equal(t, int64(0), stats.Failures)
		assert.Equal(t, int64(7), stats.RecordsPurged)
		assert.False(t, stats.LastSweepAt.IsZero())
	})

	t.Run("one failure does not stop the sweep", func(t *testing.T) {
		svc := &reaperService{
			expired: lapsed,
			failFor: map[uuid.UUID]error{lapsed[2].ID: errors.New("redis timeout")},
		}

		reaper := NewReaper(svc, newMockIdempotency(), &ReaperConfig{Period: time.Hour, BatchSize: 100, Parallelism: 2})
		reaper.sweep(context.Background())

		assert.Len(t, svc.expireds, 4)
		stats := reaper.Stats()
		assert.Equal(t, int64(4), stats.BookingsExpired)
		assert.Equal(t, int64(1), stats.Failures)
	})

	t.Run("respects the batch size", func(t *testing.T) {
		svc := &reaperService{expired: lapsed}

		reaper := NewReaper(svc, newMockIdempotency(), &ReaperConfig{Period: time.Hour, BatchSize: 2, Parallelism: 2})
		reaper.sweep(context.Background())

		assert.Len(t, svc.expireds, 2)
	})
}

func TestReaperDefaults(t *testing.T) {
	reaper := NewReaper(&reaperService{}, newMockIdempotency(), nil)
	require.NotNil(t, reaper.config)
	assert.Equal(t, 1*time.Minute, reaper.config.Period)
	assert.Equal(t, 100, reaper.config.BatchSize)
	assert.Equal(t, 10, reaper.config.Parallelism)

	clamped := NewReaper(&reaperService{}, newMockIdempotency(), &ReaperConfig{Period: time.Second, BatchSize: 10, Parallelism: 0})
	assert.Equal(t, 1, clamped.config.Parallelism)
}
