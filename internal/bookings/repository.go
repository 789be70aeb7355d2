package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolationCode = "23505"

// ErrBookingCodeTaken signals a booking-code collision. The caller mints a
// fresh code and retries; any other unique violation bubbles up as-is.
var ErrBookingCodeTaken = errors.New("booking code already taken")

type Repository interface {
	// Core booking operations
	CreateWithSeats(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Booking, error)

	// Guarded state transitions. The bool reports whether a row actually
	// flipped, so callers can tell a transition from a lost race.
	MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string, cancelledAt time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID, reason string, cancelledAt time.Time) (bool, error)

	// Bookkeeping
	SetPaymentID(ctx context.Context, id uuid.UUID, paymentID uuid.UUID) error
	RecordPendingSeats(ctx context.Context, id uuid.UUID, pending PendingSeats) error

	// Reaper scan
	FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateWithSeats inserts the booking and its seat line items in one create.
// GORM cascades the Seats association inside a transaction.
func (r *repository) CreateWithSeats(ctx context.Context, booking *Booking) error {
	err := r.db.WithContext(ctx).Create(booking).Error
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
		// Postgres reports the violated index name as the constraint name.
		if pgErr.ConstraintName == "uq_bookings_booking_code" {
			return ErrBookingCodeTaken
		}
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("idempotency_key = ?", key).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusConfirmed,
			"confirmed_at": confirmedAt,
			"updated_at":   time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, cancelledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":              StatusCancelled,
			"cancelled_at":        cancelledAt,
			"cancellation_reason": reason,
			"updated_at":          time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID, reason string, cancelledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":              StatusExpired,
			"cancelled_at":        cancelledAt,
			"cancellation_reason": reason,
			"updated_at":          time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_id": paymentID,
			"updated_at": time.Now(),
		}).Error
}

func (r *repository) RecordPendingSeats(ctx context.Context, id uuid.UUID, pending PendingSeats) error {
	return r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pending_seats": pending,
			"updated_at":    time.Now(),
		}).Error
}

// FindExpiredPending returns pending bookings whose hold window closed at or
// before cutoff, oldest first. The limit caps one reaper sweep.
func (r *repository) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Where("status = ? AND hold_expires_at <= ?", StatusPending, cutoff).
		Order("hold_expires_at ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}
