package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Admin Dashboard Models

type DashboardAnalytics struct {
	Overview         OverviewMetrics     `json:"overview"`
	BookingsByStatus map[string]int      `json:"bookings_by_status"`
	TopMovies        []MoviePerformance  `json:"top_movies"`
	DailyBookings    []DailyBookingStats `json:"daily_bookings"`
}

type OverviewMetrics struct {
	TotalBookings     int             `json:"total_bookings"`
	ConfirmedBookings int             `json:"confirmed_bookings"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	SeatsSold         int             `json:"seats_sold"`
	TotalUsers        int             `json:"total_users"`
	ActiveShowtimes   int             `json:"active_showtimes"`
	CancellationRate  float64         `json:"cancellation_rate"`
}

type MoviePerformance struct {
	MovieID   string          `json:"movie_id"`
	Title     string          `json:"title"`
	Genre     string          `json:"genre"`
	Bookings  int             `json:"bookings"`
	SeatsSold int             `json:"seats_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type DailyBookingStats struct {
	Date              string          `json:"date"`
	TotalBookings     int             `json:"total_bookings"`
	ConfirmedBookings int             `json:"confirmed_bookings"`
	CancelledBookings int             `json:"cancelled_bookings"`
	ExpiredBookings   int             `json:"expired_bookings"`
	Revenue           decimal.Decimal `json:"revenue"`
}

// Per-Showtime Models

// ShowtimeAnalytics is the operator view of one screening: how full the hall
// is, what it earned, and where bookings sit in their lifecycle. Occupancy is
// confirmed seats only; held seats are transient and live in the seat engine.
type ShowtimeAnalytics struct {
	ShowtimeID       string          `json:"showtime_id"`
	MovieTitle       string          `json:"movie_title"`
	CinemaName       string          `json:"cinema_name"`
	HallName         string          `json:"hall_name"`
	StartsAt         time.Time       `json:"starts_at"`
	TotalSeats       int             `json:"total_seats"`
	SeatsSold        int             `json:"seats_sold"`
	Occupancy        float64         `json:"occupancy"`
	Revenue          decimal.Decimal `json:"revenue"`
	BookingsByStatus map[string]int  `json:"bookings_by_status"`
	SalesBySeatType  []SeatTypeSales `json:"sales_by_seat_type"`
}

type SeatTypeSales struct {
	SeatType  string          `json:"seat_type"`
	SeatsSold int             `json:"seats_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// User-Facing Models

type PersonalStats struct {
	TotalBookings     int             `json:"total_bookings"`
	ConfirmedBookings int             `json:"confirmed_bookings"`
	CancelledBookings int             `json:"cancelled_bookings"`
	SeatsBooked       int             `json:"seats_booked"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	FavoriteGenre     string          `json:"favorite_genre,omitempty"`
	UpcomingShows     int             `json:"upcoming_shows"`
}
