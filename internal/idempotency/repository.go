package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

// ErrDuplicateRecord reports that another request won the race to create the
// record for this (key, user) pair.
var ErrDuplicateRecord = errors.New("idempotency record already exists")

type Repository interface {
	Create(ctx context.Context, record *Record) error
	Find(ctx context.Context, key string, userID uuid.UUID) (*Record, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte, resourceID *uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *Record) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return ErrDuplicateRecord
		}
		return err
	}
	return nil
}

func (r *repository) Find(ctx context.Context, key string, userID uuid.UUID) (*Record, error) {
	var record Record
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND user_id = ?", key, userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Record{}, "id = ?", id).Error
}

// MarkCompleted advances processing -> completed and stores the response.
// Returns false when the record already left processing, which callers treat
// as a no-op.
func (r *repository) MarkCompleted(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte, resourceID *uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&Record{}).
		Where("idempotency_key = ? AND user_id = ? AND status = ?", key, userID, StatusProcessing).
		Updates(map[string]interface{}{
			"status":        StatusCompleted,
			"status_code":   statusCode,
			"response_body": JSONRaw(body),
			"resource_id":   resourceID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed advances processing -> failed with the captured error envelope.
func (r *repository) MarkFailed(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte) (bool, error) {
	result := r.db.WithContext(ctx).Model(&Record{}).
		Where("idempotency_key = ? AND user_id = ? AND status = ?", key, userID, StatusProcessing).
		Updates(map[string]interface{}{
			"status":        StatusFailed,
			"status_code":   statusCode,
			"response_body": JSONRaw(body),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&Record{})
	return result.RowsAffected, result.Error
}
