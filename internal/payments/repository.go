package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolationCode = "23505"

// ErrDuplicateIdempotencyKey signals that a concurrent request holding the
// same key won the insert. The caller reads the winner back instead of
// surfacing an error.
var ErrDuplicateIdempotencyKey = errors.New("payment idempotency key already used")

type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	GetByGatewayTransactionID(ctx context.Context, transactionID string) (*Payment, error)

	// FindActiveByBookingID returns the newest payment on the booking that is
	// pending, processing or completed. Failed attempts do not count; the
	// user is allowed to try again after one.
	FindActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)

	// Guarded state transitions. The bool reports whether a row actually
	// flipped, so duplicate webhook deliveries can be told apart from the
	// first one.
	MarkProcessing(ctx context.Context, id uuid.UUID, transactionID string, paymentURL string) (bool, error)
	MarkCompleted(ctx context.Context, transactionID string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, transactionID string, reason string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, payment *Payment) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
		// Postgres reports the violated index name as the constraint name.
		if pgErr.ConstraintName == "uq_payments_idempotency_key" {
			return ErrDuplicateIdempotencyKey
		}
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) GetByGatewayTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("gateway_transaction_id = ?", transactionID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindActiveByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID,
			[]PaymentStatus{StatusPending, StatusProcessing, StatusCompleted}).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID, transactionID string, paymentURL string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":                 StatusProcessing,
			"gateway_transaction_id": transactionID,
			"payment_url":            paymentURL,
			"attempt_count":          gorm.Expr("attempt_count + 1"),
			"version":                gorm.Expr("version + 1"),
			"updated_at":             time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// MarkCompleted flips the payment to completed unless it already is. The
// transaction id in the predicate pins the update to the gateway's row even
// if the booking has seen several attempts.
func (r *repository) MarkCompleted(ctx context.Context, transactionID string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("gateway_transaction_id = ? AND status <> ?", transactionID, StatusCompleted).
		Updates(map[string]interface{}{
			"status":     StatusCompleted,
			"paid_at":    paidAt,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// MarkFailed records a gateway failure. A completed payment is never
// downgraded, even if the gateway delivers contradictory callbacks.
func (r *repository) MarkFailed(ctx context.Context, transactionID string, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Payment{}).
		Where("gateway_transaction_id = ? AND status <> ?", transactionID, StatusCompleted).
		Updates(map[string]interface{}{
			"status":         StatusFailed,
			"failure_reason": reason,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}
