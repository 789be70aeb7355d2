package analytics

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cinebook/internal/shared/apperrors"
)

type mockRepository struct {
	overview  *OverviewMetrics
	byStatus  map[string]int
	topMovies []MoviePerformance
	daily     []DailyBookingStats
	showtimes map[uuid.UUID]*ShowtimeAnalytics
	personal  map[uuid.UUID]*PersonalStats

	lastDailyDays int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		overview:  &OverviewMetrics{},
		byStatus:  make(map[string]int),
		showtimes: make(map[uuid.UUID]*ShowtimeAnalytics),
		personal:  make(map[uuid.UUID]*PersonalStats),
	}
}

func (m *mockRepository) GetOverviewMetrics(ctx context.Context) (*OverviewMetrics, error) {
	return m.overview, nil
}

func (m *mockRepository) GetBookingsByStatus(ctx context.Context) (map[string]int, error) {
	return m.byStatus, nil
}

func (m *mockRepository) GetTopMovies(ctx context.Context, limit int) ([]MoviePerformance, error) {
	if limit < len(m.topMovies) {
		return m.topMovies[:limit], nil
	}
	return m.topMovies, nil
}

func (m *mockRepository) GetDailyBookingStats(ctx context.Context, days int) ([]DailyBookingStats, error) {
	m.lastDailyDays = days
	return m.daily, nil
}

func (m *mockRepository) GetShowtimeAnalytics(ctx context.Context, showtimeID uuid.UUID) (*ShowtimeAnalytics, error) {
	analytics, ok := m.showtimes[showtimeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return analytics, nil
}

func (m *mockRepository) GetPersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error) {
	stats, ok := m.personal[userID]
	if !ok {
		return &PersonalStats{TotalSpent: decimal.Zero}, nil
	}
	return stats, nil
}

func TestGetDashboardAnalytics(t *testing.T) {
	repo := newMockRepository()
	repo.overview = &OverviewMetrics{
		TotalBookings:     120,
		ConfirmedBookings: 95,
		TotalRevenue:      decimal.NewFromInt(10450000),
		SeatsSold:         212,
		CancellationRate:  8.3,
	}
	repo.byStatus = map[string]int{"confirmed": 95, "cancelled": 10, "expired": 15}
	repo.topMovies = []MoviePerformance{
		{Title: "The Midnight Heist", Revenue: decimal.NewFromInt(6200000)},
		{Title: "Quantum Paradox", Revenue: decimal.NewFromInt(4250000)},
	}
	repo.daily = []DailyBookingStats{{Date: "2025-11-01", TotalBookings: 40}}

	svc := NewService(repo)

	dashboard, err := svc.GetDashboardAnalytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, dashboard.Overview.TotalBookings)
	assert.True(t, dashboard.Overview.TotalRevenue.Equal(decimal.NewFromInt(10450000)))
	assert.Equal(t, 95, dashboard.BookingsByStatus["confirmed"])
	assert.Len(t, dashboard.TopMovies, 2)
	assert.Equal(t, "The Midnight Heist", dashboard.TopMovies[0].Title)
	require.Len(t, dashboard.DailyBookings, 1)
	assert.Equal(t, defaultStatDays, repo.lastDailyDays)
}

func TestGetShowtimeAnalytics(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	showtimeID := uuid.New()
	repo.showtimes[showtimeID] = &ShowtimeAnalytics{
		ShowtimeID: showtimeID.String(),
		MovieTitle: "Letters from Da Lat",
		TotalSeats: 96,
		SeatsSold:  72,
		Occupancy:  75.0,
		Revenue:    decimal.NewFromInt(6480000),
	}

	t.Run("known showtime", func(t *testing.T) {
		analytics, err := svc.GetShowtimeAnalytics(ctx, showtimeID)
		require.NoError(t, err)
		assert.Equal(t, 72, analytics.SeatsSold)
		assert.InDelta(t, 75.0, analytics.Occupancy, 0.001)
	})

	t.Run("unknown showtime", func(t *testing.T) {
		_, err := svc.GetShowtimeAnalytics(ctx, uuid.New())
		assert.True(t, apperrors.IsCode(err, "SHOWTIME_NOT_FOUND"), "got %v", err)
	})
}

func TestGetDailyBookingStatsClampsRange(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	tests := []struct {
		name     string
		days     int
		wantDays int
	}{
		{name: "default on zero", days: 0, wantDays: defaultStatDays},
		{name: "default on negative", days: -5, wantDays: defaultStatDays},
		{name: "capped at max", days: 365, wantDays: maxStatDays},
		{name: "in range passes through", days: 7, wantDays: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetDailyBookingStats(ctx, tt.days)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDays, repo.lastDailyDays)
		})
	}
}

func TestGetPersonalStats(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	userID := uuid.New()
	repo.personal[userID] = &PersonalStats{
		TotalBookings:     6,
		ConfirmedBookings: 5,
		SeatsBooked:       11,
		TotalSpent:        decimal.NewFromInt(1240000),
		FavoriteGenre:     "Sci-Fi",
		UpcomingShows:     2,
	}

	stats, err := svc.GetPersonalStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.ConfirmedBookings)
	assert.Equal(t, "Sci-Fi", stats.FavoriteGenre)
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(1240000)))

	empty, err := svc.GetPersonalStats(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty.TotalBookings)
}
