package database

import (
	"cinebook/internal/bookings"
	"cinebook/internal/idempotency"
	"cinebook/internal/payments"
	"cinebook/internal/showtimes"
	"cinebook/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&showtimes.Movie{},
		&showtimes.Cinema{},
		&showtimes.Hall{},
		&showtimes.Showtime{},
		&showtimes.ShowtimeSeat{},
		&bookings.Booking{},
		&bookings.BookingSeat{},
		&payments.Payment{},
		&idempotency.Record{},
	)
}
