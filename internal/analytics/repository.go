package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Dashboard aggregates
	GetOverviewMetrics(ctx context.Context) (*OverviewMetrics, error)
	GetBookingsByStatus(ctx context.Context) (map[string]int, error)
	GetTopMovies(ctx context.Context, limit int) ([]MoviePerformance, error)
	GetDailyBookingStats(ctx context.Context, days int) ([]DailyBookingStats, error)

	// Per-showtime aggregates
	GetShowtimeAnalytics(ctx context.Context, showtimeID uuid.UUID) (*ShowtimeAnalytics, error)

	// User-facing aggregates
	GetPersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOverviewMetrics(ctx context.Context) (*OverviewMetrics, error) {
	var metrics OverviewMetrics

	var totalBookings int64
	err := r.db.WithContext(ctx).Table("bookings").Count(&totalBookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	metrics.TotalBookings = int(totalBookings)

	var confirmedBookings int64
	err = r.db.WithContext(ctx).Table("bookings").
		Where("status = ?", "confirmed").
		Count(&confirmedBookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmed bookings: %w", err)
	}
	metrics.ConfirmedBookings = int(confirmedBookings)

	// Revenue is recognized at confirmation, so final_amount on confirmed
	// bookings is the figure, not the payments table.
	err = r.db.WithContext(ctx).Table("bookings").
		Where("status = ?", "confirmed").
		Select("COALESCE(SUM(final_amount), 0)").
		Scan(&metrics.TotalRevenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to calculate total revenue: %w", err)
	}

	var seatsSold int64
	err = r.db.WithContext(ctx).Table("booking_seats bs").
		Joins("JOIN bookings b ON b.id = bs.booking_id").
		Where("b.status = ?", "confirmed").
		Count(&seatsSold).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count seats sold: %w", err)
	}
	metrics.SeatsSold = int(seatsSold)

	var totalUsers int64
	err = r.db.WithContext(ctx).Table("users").Count(&totalUsers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	metrics.TotalUsers = int(totalUsers)

	var activeShowtimes int64
	err = r.db.WithContext(ctx).Table("showtimes").
		Where("status = ? AND starts_at > ?", "scheduled", time.Now()).
		Count(&activeShowtimes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active showtimes: %w", err)
	}
	metrics.ActiveShowtimes = int(activeShowtimes)

	var cancelledBookings int64
	err = r.db.WithContext(ctx).Table("bookings").
		Where("status = ?", "cancelled").
		Count(&cancelledBookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count cancelled bookings: %w", err)
	}
	if totalBookings > 0 {
		metrics.CancellationRate = float64(cancelledBookings) / float64(totalBookings) * 100
	}

	return &metrics, nil
}

func (r *repository) GetBookingsByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}

	err := r.db.WithContext(ctx).Table("bookings").
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group bookings by status: %w", err)
	}

	byStatus := make(map[string]int, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row.Count
	}

	return byStatus, nil
}

func (r *repository) GetTopMovies(ctx context.Context, limit int) ([]MoviePerformance, error) {
	var movies []MoviePerformance

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			m.id::text as movie_id,
			m.title,
			m.genre,
			COUNT(DISTINCT b.id) as bookings,
			COUNT(bs.id) as seats_sold,
			COALESCE(SUM(bs.price), 0) as revenue
		FROM bookings b
		JOIN showtimes st ON st.id = b.showtime_id
		JOIN movies m ON m.id = st.movie_id
		JOIN booking_seats bs ON bs.booking_id = b.id
		WHERE b.status = 'confirmed'
		GROUP BY m.id, m.title, m.genre
		ORDER BY revenue DESC
		LIMIT ?
	`, limit).Scan(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top movies: %w", err)
	}

	return movies, nil
}

func (r *repository) GetDailyBookingStats(ctx context.Context, days int) ([]DailyBookingStats, error) {
	var stats []DailyBookingStats

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			DATE(created_at)::text as date,
			COUNT(*) as total_bookings,
			SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END) as confirmed_bookings,
			SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END) as cancelled_bookings,
			SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END) as expired_bookings,
			COALESCE(SUM(CASE WHEN status = 'confirmed' THEN final_amount ELSE 0 END), 0) as revenue
		FROM bookings
		WHERE created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY date DESC
	`, time.Now().AddDate(0, 0, -days)).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily booking stats: %w", err)
	}

	return stats, nil
}

func (r *repository) GetShowtimeAnalytics(ctx context.Context, showtimeID uuid.UUID) (*ShowtimeAnalytics, error) {
	var header struct {
		MovieTitle string    `json:"movie_title"`
		CinemaName string    `json:"cinema_name"`
		HallName   string    `json:"hall_name"`
		StartsAt   time.Time `json:"starts_at"`
	}

	err := r.db.WithContext(ctx).Table("showtimes st").
		Select("m.title as movie_title, c.name as cinema_name, h.name as hall_name, st.starts_at").
		Joins("JOIN movies m ON m.id = st.movie_id").
		Joins("JOIN halls h ON h.id = st.hall_id").
		Joins("JOIN cinemas c ON c.id = h.cinema_id").
		Where("st.id = ?", showtimeID).
		Take(&header).Error
	if err != nil {
		return nil, err
	}

	analytics := &ShowtimeAnalytics{
		ShowtimeID: showtimeID.String(),
		MovieTitle: header.MovieTitle,
		CinemaName: header.CinemaName,
		HallName:   header.HallName,
		StartsAt:   header.StartsAt,
	}

	var totalSeats int64
	err = r.db.WithContext(ctx).Table("showtime_seats").
		Where("showtime_id = ?", showtimeID).
		Count(&totalSeats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count showtime seats: %w", err)
	}
	analytics.TotalSeats = int(totalSeats)

	var statusRows []struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	err = r.db.WithContext(ctx).Table("bookings").
		Select("status, COUNT(*) as count").
		Where("showtime_id = ?", showtimeID).
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group bookings by status: %w", err)
	}
	analytics.BookingsByStatus = make(map[string]int, len(statusRows))
	for _, row := range statusRows {
		analytics.BookingsByStatus[row.Status] = row.Count
	}

	err = r.db.WithContext(ctx).Table("bookings").
		Where("showtime_id = ? AND status = ?", showtimeID, "confirmed").
		Select("COALESCE(SUM(final_amount), 0)").
		Scan(&analytics.Revenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to calculate showtime revenue: %w", err)
	}

	var seatTypeSales []SeatTypeSales
	err = r.db.WithContext(ctx).Raw(`
		SELECT
			bs.seat_type,
			COUNT(*) as seats_sold,
			COALESCE(SUM(bs.price), 0) as revenue
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE b.showtime_id = ? AND b.status = 'confirmed'
		GROUP BY bs.seat_type
		ORDER BY revenue DESC
	`, showtimeID).Scan(&seatTypeSales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get seat type sales: %w", err)
	}
	analytics.SalesBySeatType = seatTypeSales

	for _, sale := range seatTypeSales {
		analytics.SeatsSold += sale.SeatsSold
	}
	if analytics.TotalSeats > 0 {
		analytics.Occupancy = float64(analytics.SeatsSold) / float64(analytics.TotalSeats) * 100
	}

	return analytics, nil
}

func (r *repository) GetPersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error) {
	var stats PersonalStats

	var statusRows []struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	err := r.db.WithContext(ctx).Table("bookings").
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group user bookings by status: %w", err)
	}
	for _, row := range statusRows {
		stats.TotalBookings += row.Count
		switch row.Status {
		case "confirmed":
			stats.ConfirmedBookings = row.Count
		case "cancelled":
			stats.CancelledBookings = row.Count
		}
	}

	err = r.db.WithContext(ctx).Table("bookings").
		Where("user_id = ? AND status = ?", userID, "confirmed").
		Select("COALESCE(SUM(final_amount), 0)").
		Scan(&stats.TotalSpent).Error
	if err != nil {
		return nil, fmt.Errorf("failed to calculate user spend: %w", err)
	}

	var seatsBooked int64
	err = r.db.WithContext(ctx).Table("booking_seats bs").
		Joins("JOIN bookings b ON b.id = bs.booking_id").
		Where("b.user_id = ? AND b.status = ?", userID, "confirmed").
		Count(&seatsBooked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count booked seats: %w", err)
	}
	stats.SeatsBooked = int(seatsBooked)

	// No rows leaves the field empty, which serializes as omitted.
	err = r.db.WithContext(ctx).Raw(`
		SELECT m.genre
		FROM bookings b
		JOIN showtimes st ON st.id = b.showtime_id
		JOIN movies m ON m.id = st.movie_id
		WHERE b.user_id = ? AND b.status = 'confirmed' AND m.genre <> ''
		GROUP BY m.genre
		ORDER BY COUNT(*) DESC
		LIMIT 1
	`, userID).Scan(&stats.FavoriteGenre).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite genre: %w", err)
	}

	var upcomingShows int64
	err = r.db.WithContext(ctx).Table("bookings b").
		Joins("JOIN showtimes st ON st.id = b.showtime_id").
		Where("b.user_id = ? AND b.status = ? AND st.starts_at > ?", userID, "confirmed", time.Now()).
		Count(&upcomingShows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming shows: %w", err)
	}
	stats.UpcomingShows = int(upcomingShows)

	return &stats, nil
}
