package showtimes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/constants"
	"cinebook/pkg/cache"
)

type Service interface {
	SetCacheService(cacheService cache.Service)

	// Public catalog reads.
	GetShowtimeByID(ctx context.Context, id uuid.UUID) (*ShowtimeResponse, error)
	GetAllShowtimes(ctx context.Context, query ShowtimeListQuery) (*PaginatedShowtimes, error)
	GetMovieByID(ctx context.Context, id uuid.UUID) (*MovieResponse, error)
	GetAllMovies(ctx context.Context, query MovieListQuery) (*PaginatedMovies, error)

	// Booking-flow reads.
	GetShowtimeForBooking(ctx context.Context, id uuid.UUID) (*Showtime, error)
	ResolveSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []string) ([]SeatInfo, error)
	ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]ShowtimeSeat, error)
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

// Cache helper methods
func (s *service) setCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.cacheService == nil {
		return nil // Skip caching if cache service is not available
	}
	return s.cacheService.Set(ctx, key, value, ttl)
}

func (s *service) getCache(ctx context.Context, key string, dest interface{}) error {
	if s.cacheService == nil {
		return fmt.Errorf("cache service not available")
	}
	return s.cacheService.Get(ctx, key, dest)
}

func (s *service) GetShowtimeByID(ctx context.Context, id uuid.UUID) (*ShowtimeResponse, error) {
	cacheKey := constants.BuildShowtimeDetailKey(id.String())

	// Try to get from cache first
	var cached ShowtimeResponse
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	// Cache miss - get from database
	showtime, err := s.repo.GetShowtimeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("SHOWTIME_NOT_FOUND", "Showtime not found")
		}
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}

	response := showtime.ToResponse()

	if err := s.setCache(ctx, cacheKey, response, constants.TTL_SHOWTIME_DETAIL); err != nil {
		log.Printf("Warning: failed to cache showtime detail: %v", err)
	}

	return &response, nil
}

func (s *service) GetAllShowtimes(ctx context.Context, query ShowtimeListQuery) (*PaginatedShowtimes, error) {
	// Set defaults
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	// Only the unfiltered pages are cached; filtered queries go to Postgres.
	cacheable := query.MovieID == "" && query.CinemaID == "" && query.City == "" &&
		query.DateFrom == "" && query.DateTo == "" && query.Status == ""

	cacheKey := constants.BuildShowtimeListKey(query.Page, query.Limit)
	if cacheable {
		var cached PaginatedShowtimes
		if err := s.getCache(ctx, cacheKey, &cached); err == nil {
			log.Printf("Cache HIT for showtime list: %s", cacheKey)
			return &cached, nil
		}
	}

	showtimes, totalCount, err := s.repo.GetAllShowtimes(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get showtimes: %w", err)
	}

	responses := make([]ShowtimeResponse, len(showtimes))
	for i, showtime := range showtimes {
		responses[i] = showtime.ToResponse()
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(query.Limit)))

	result := &PaginatedShowtimes{
		Showtimes:  responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}

	if cacheable {
		if err := s.setCache(ctx, cacheKey, result, constants.TTL_SHOWTIME_LIST); err != nil {
			log.Printf("Warning: failed to cache showtime list: %v", err)
		}
	}

	return result, nil
}

func (s *service) GetMovieByID(ctx context.Context, id uuid.UUID) (*MovieResponse, error) {
	cacheKey := constants.BuildMovieDetailKey(id.String())

	var cached MovieResponse
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	movie, err := s.repo.GetMovieByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("MOVIE_NOT_FOUND", "Movie not found")
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	response := movie.ToResponse()

	if err := s.setCache(ctx, cacheKey, response, constants.TTL_MOVIE_DETAIL); err != nil {
		log.Printf("Warning: failed to cache movie detail: %v", err)
	}

	return &response, nil
}

func (s *service) GetAllMovies(ctx context.Context, query MovieListQuery) (*PaginatedMovies, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	movies, totalCount, err := s.repo.GetAllMovies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get movies: %w", err)
	}

	responses := make([]MovieResponse, len(movies))
	for i, movie := range movies {
		responses[i] = movie.ToResponse()
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(query.Limit)))

	return &PaginatedMovies{
		Movies:     responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetShowtimeForBooking loads a showtime and applies the bookability checks
// in order: existence, status, start time. Each failure keeps its own error
// code so clients can tell a sold-out race from a dead showtime.
func (s *service) GetShowtimeForBooking(ctx context.Context, id uuid.UUID) (*Showtime, error) {
	showtime, err := s.repo.GetShowtimeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("SHOWTIME_NOT_FOUND", "Showtime not found")
		}
		return nil, fmt.Errorf("failed to get showtime: %w", err)
	}

	if !showtime.Status.CanBeBooked() {
		return nil, apperrors.Precondition("SHOWTIME_NOT_AVAILABLE",
			fmt.Sprintf("Showtime is not open for booking (status: %s)", showtime.Status))
	}

	if !showtime.StartsAt.After(time.Now()) {
		return nil, apperrors.Precondition("SHOWTIME_ALREADY_STARTED", "Showtime has already started")
	}

	return showtime, nil
}

// ResolveSeats maps requested seat ids to their authoritative metadata.
// Any id with no showtime_seats row fails the whole request.
func (s *service) ResolveSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []string) ([]SeatInfo, error) {
	if len(seatIDs) == 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "At least one seat must be requested")
	}

	rows, err := s.repo.GetSeatsByIDs(ctx, showtimeID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve seats: %w", err)
	}

	byID := make(map[string]ShowtimeSeat, len(rows))
	for _, row := range rows {
		byID[row.SeatID] = row
	}

	resolved := make([]SeatInfo, 0, len(seatIDs))
	var unknown []string
	for _, seatID := range seatIDs {
		row, ok := byID[seatID]
		if !ok {
			unknown = append(unknown, seatID)
			continue
		}
		resolved = append(resolved, SeatInfo{
			SeatID:   row.SeatID,
			SeatType: string(row.SeatType),
			Price:    row.Price,
		})
	}

	if len(unknown) > 0 {
		return nil, apperrors.Validation("INVALID_SEAT", "One or more seats do not exist for this showtime").
			WithDetails(map[string]interface{}{"unknown_seats": unknown})
	}

	return resolved, nil
}

func (s *service) ListSeats(ctx context.Context, showtimeID uuid.UUID) ([]ShowtimeSeat, error) {
	return s.repo.GetSeats(ctx, showtimeID)
}
