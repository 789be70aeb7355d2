package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the indexes gorm tags cannot express. The unique
// indexes here are the only cross-process mutex in the system: duplicate
// idempotency keys and duplicate gateway transactions must lose at the
// database, not in application code.
func MigrateConstraints(db *gorm.DB) error {
	// Sparse-unique gateway transaction id: uniqueness applies only once the
	// gateway has assigned one. Rows carry '' until then, so the predicate
	// excludes empty rather than NULL.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_gateway_transaction_id
		ON payments (gateway_transaction_id)
		WHERE gateway_transaction_id <> '';
	`).Error
	if err != nil {
		return err
	}

	// Reaper scan: pending bookings past their hold deadline.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_bookings_status_hold_expires_at
		ON bookings (status, hold_expires_at);
	`).Error
	if err != nil {
		return err
	}

	// Idempotency housekeeping delete by expiry.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_idempotency_keys_expires_at
		ON idempotency_keys (expires_at);
	`).Error
	if err != nil {
		return err
	}

	// Webhook lookup path.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payments_booking_id
		ON payments (booking_id);
	`).Error
	if err != nil {
		return err
	}

	// Seat metadata resolution during hold.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_showtime_seats_showtime_id
		ON showtime_seats (showtime_id);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
