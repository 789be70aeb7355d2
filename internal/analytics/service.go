package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/constants"
	"cinebook/pkg/cache"
)

const (
	topMoviesLimit  = 5
	defaultStatDays = 30
	maxStatDays     = 90
)

type Service interface {
	SetCacheService(cacheService cache.Service)

	GetDashboardAnalytics(ctx context.Context) (*DashboardAnalytics, error)
	GetShowtimeAnalytics(ctx context.Context, showtimeID uuid.UUID) (*ShowtimeAnalytics, error)
	GetDailyBookingStats(ctx context.Context, days int) ([]DailyBookingStats, error)
	GetPersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error)
}

type service struct {
	repo         Repository
	cacheService cache.Service
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) setCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.cacheService == nil {
		return nil
	}
	return s.cacheService.Set(ctx, key, value, ttl)
}

func (s *service) getCache(ctx context.Context, key string, dest interface{}) error {
	if s.cacheService == nil {
		return fmt.Errorf("cache service not available")
	}
	return s.cacheService.Get(ctx, key, dest)
}

// GetDashboardAnalytics assembles the admin dashboard from its component
// aggregates. The whole payload is cached as one unit, so all numbers in a
// response come from the same snapshot.
func (s *service) GetDashboardAnalytics(ctx context.Context) (*DashboardAnalytics, error) {
	cacheKey := constants.CACHE_KEY_ANALYTICS_DASHBOARD

	var cached DashboardAnalytics
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	overview, err := s.repo.GetOverviewMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get overview metrics: %w", err)
	}

	byStatus, err := s.repo.GetBookingsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by status: %w", err)
	}

	topMovies, err := s.repo.GetTopMovies(ctx, topMoviesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top movies: %w", err)
	}

	daily, err := s.repo.GetDailyBookingStats(ctx, defaultStatDays)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily booking stats: %w", err)
	}

	dashboard := &DashboardAnalytics{
		Overview:         *overview,
		BookingsByStatus: byStatus,
		TopMovies:        topMovies,
		DailyBookings:    daily,
	}

	if err := s.setCache(ctx, cacheKey, dashboard, constants.TTL_ANALYTICS_DASHBOARD); err != nil {
		log.Printf("Warning: failed to cache dashboard analytics: %v", err)
	}

	return dashboard, nil
}

func (s *service) GetShowtimeAnalytics(ctx context.Context, showtimeID uuid.UUID) (*ShowtimeAnalytics, error) {
	cacheKey := constants.BuildAnalyticsShowtimeKey(showtimeID.String())

	var cached ShowtimeAnalytics
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	analytics, err := s.repo.GetShowtimeAnalytics(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("SHOWTIME_NOT_FOUND", "Showtime not found")
		}
		return nil, fmt.Errorf("failed to get showtime analytics: %w", err)
	}

	if err := s.setCache(ctx, cacheKey, analytics, constants.TTL_ANALYTICS_SHOWTIME); err != nil {
		log.Printf("Warning: failed to cache showtime analytics: %v", err)
	}

	return analytics, nil
}

func (s *service) GetDailyBookingStats(ctx context.Context, days int) ([]DailyBookingStats, error) {
	if days <= 0 {
		days = defaultStatDays
	}
	if days > maxStatDays {
		days = maxStatDays
	}

	stats, err := s.repo.GetDailyBookingStats(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily booking stats: %w", err)
	}

	return stats, nil
}

// GetPersonalStats is never cached: a user checks it right after booking and
// expects to see that booking.
func (s *service) GetPersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error) {
	stats, err := s.repo.GetPersonalStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get personal stats: %w", err)
	}

	return stats, nil
}
