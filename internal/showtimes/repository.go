package showtimes

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetShowtimeByID(ctx context.Context, id uuid.UUID) (*Showtime, error)
	GetAllShowtimes(ctx context.Context, query ShowtimeListQuery) ([]Showtime, int64, error)
	GetSeats(ctx context.Context, showtimeID uuid.UUID) ([]ShowtimeSeat, error)
	GetSeatsByIDs(ctx context.Context, showtimeID uuid.UUID, seatIDs []string) ([]ShowtimeSeat, error)
	GetMovieByID(ctx context.Context, id uuid.UUID) (*Movie, error)
	GetAllMovies(ctx context.Context, query MovieListQuery) ([]Movie, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetShowtimeByID(ctx context.Context, id uuid.UUID) (*Showtime, error) {
	var showtime Showtime
	err := r.db.WithContext(ctx).
		Preload("Movie").
		Preload("Hall").
		Preload("Hall.Cinema").
		Where("id = ?", id).
		First(&showtime).Error
	if err != nil {
		return nil, err
	}
	return &showtime, nil
}

func (r *repository) GetAllShowtimes(ctx context.Context, query ShowtimeListQuery) ([]Showtime, int64, error) {
	var showtimes []Showtime
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Showtime{})

	if query.MovieID != "" {
		db = db.Where("movie_id = ?", query.MovieID)
	}

	if query.CinemaID != "" {
		subquery := r.db.Table("halls").
			Where("cinema_id = ?", query.CinemaID).
			Select("id")
		db = db.Where("hall_id IN (?)", subquery)
	}

	if query.City != "" {
		subquery := r.db.Table("halls").
			Joins("JOIN cinemas ON halls.cinema_id = cinemas.id").
			Where("LOWER(cinemas.city) = ?", strings.ToLower(query.City)).
			Select("halls.id")
		db = db.Where("hall_id IN (?)", subquery)
	}

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	// Date filters
	if query.DateFrom != "" {
		if dateFrom, err := time.Parse("2006-01-02", query.DateFrom); err == nil {
			db = db.Where("starts_at >= ?", dateFrom)
		}
	}

	if query.DateTo != "" {
		if dateTo, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			// Add 24 hours to include the entire day
			dateTo = dateTo.Add(24 * time.Hour)
			db = db.Where("starts_at < ?", dateTo)
		}
	}

	// Count total records
	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}

	offset := (query.Page - 1) * query.Limit

	err := db.Preload("Movie").
		Preload("Hall").
		Preload("Hall.Cinema").
		Order("starts_at ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&showtimes).Error

	return showtimes, totalCount, err
}

func (r *repository) GetSeats(ctx context.Context, showtimeID uuid.UUID) ([]ShowtimeSeat, error) {
	var seats []ShowtimeSeat
	err := r.db.WithContext(ctx).
		Where("showtime_id = ?", showtimeID).
		Order("seat_id ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) GetSeatsByIDs(ctx context.Context, showtimeID uuid.UUID, seatIDs []string) ([]ShowtimeSeat, error) {
	var seats []ShowtimeSeat
	err := r.db.WithContext(ctx).
		Where("showtime_id = ? AND seat_id IN ?", showtimeID, seatIDs).
		Find(&seats).Error
	return seats, err
}

func (r *repository) GetMovieByID(ctx context.Context, id uuid.UUID) (*Movie, error) {
	var movie Movie
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&movie).Error
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

func (r *repository) GetAllMovies(ctx context.Context, query MovieListQuery) ([]Movie, int64, error) {
	var movies []Movie
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Movie{})

	if query.Search != "" {
		searchTerm := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(genre) LIKE ?", searchTerm, searchTerm)
	}

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}

	offset := (query.Page - 1) * query.Limit

	err := db.Order("title ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&movies).Error

	return movies, totalCount, err
}
