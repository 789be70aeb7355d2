package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/utils/response"
)

type Service interface {
	// Check registers (key, user) for this request. A New result means the
	// caller owns the request; otherwise the stored outcome is replayed.
	Check(ctx context.Context, key string, userID uuid.UUID, requestPath, requestHash, resourceType string) (*CheckResult, error)
	// Complete stores the successful response against the key.
	Complete(ctx context.Context, key string, userID uuid.UUID, statusCode int, body interface{}, resourceID *uuid.UUID) error
	// Fail stores the failure envelope so retries replay the same error.
	Fail(ctx context.Context, key string, userID uuid.UUID, failure error) error
	// Forget drops the record so the client may retry after a transient
	// server-side failure. Business failures use Fail instead.
	Forget(ctx context.Context, key string, userID uuid.UUID) error
	// DeleteExpired removes records past their retention window.
	DeleteExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Check(ctx context.Context, key string, userID uuid.UUID, requestPath, requestHash, resourceType string) (*CheckResult, error) {
	if key == "" || len(key) > MaxKeyLength {
		return nil, apperrors.Validation("INVALID_IDEMPOTENCY_KEY", "Idempotency key must be a non-empty string of at most 100 characters")
	}

	// Two passes: if the insert loses a unique-index race, re-read once and
	// classify whatever the winner left behind.
	for attempt := 0; attempt < 2; attempt++ {
		record, err := s.repo.Find(ctx, key, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Internal("Failed to look up idempotency key", err)
		}

		if record != nil && record.Expired() {
			// Expired records are treated as absent.
			if err := s.repo.DeleteByID(ctx, record.ID); err != nil {
				return nil, apperrors.Internal("Failed to purge expired idempotency record", err)
			}
			record = nil
		}

		if record == nil {
			fresh := &Record{
				IdempotencyKey: key,
				UserID:         userID,
				RequestPath:    requestPath,
				RequestHash:    requestHash,
				ResourceType:   resourceType,
				Status:         StatusProcessing,
				ExpiresAt:      time.Now().Add(RecordTTL),
			}
			err := s.repo.Create(ctx, fresh)
			if err == nil {
				return &CheckResult{New: true}, nil
			}
			if errors.Is(err, ErrDuplicateRecord) {
				continue
			}
			return nil, apperrors.Internal("Failed to register idempotency key", err)
		}

		if record.RequestHash != requestHash {
			return nil, apperrors.Validation("KEY_REUSED_DIFFERENT_BODY", "Idempotency key was already used with a different request body")
		}

		switch record.Status {
		case StatusProcessing:
			return nil, apperrors.Conflict("REQUEST_IN_FLIGHT", "A request with this idempotency key is still being processed")
		case StatusCompleted, StatusFailed:
			return &CheckResult{
				New:          false,
				CachedStatus: record.StatusCode,
				CachedBody:   json.RawMessage(record.ResponseBody),
			}, nil
		default:
			return nil, apperrors.Internal("Idempotency record in unknown state", nil)
		}
	}

	return nil, apperrors.Internal("Idempotency check did not converge", nil)
}

func (s *service) Complete(ctx context.Context, key string, userID uuid.UUID, statusCode int, body interface{}, resourceID *uuid.UUID) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Internal("Failed to encode idempotent response", err)
	}

	updated, err := s.repo.MarkCompleted(ctx, key, userID, statusCode, payload, resourceID)
	if err != nil {
		return apperrors.Internal("Failed to complete idempotency record", err)
	}
	if !updated {
		log.Printf("Idempotency record for key %s already advanced, skipping complete", key)
	}
	return nil
}

func (s *service) Fail(ctx context.Context, key string, userID uuid.UUID, failure error) error {
	appErr := apperrors.FromError(failure)
	envelope := response.ErrorEnvelope{
		StatusCode: appErr.Status,
		ErrorCode:  appErr.Code,
		Message:    appErr.Message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Details:    appErr.Details,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.Internal("Failed to encode failure envelope", err)
	}

	updated, err := s.repo.MarkFailed(ctx, key, userID, appErr.Status, payload)
	if err != nil {
		return apperrors.Internal("Failed to fail idempotency record", err)
	}
	if !updated {
		log.Printf("Idempotency record for key %s already advanced, skipping fail", key)
	}
	return nil
}

func (s *service) Forget(ctx context.Context, key string, userID uuid.UUID) error {
	record, err := s.repo.Find(ctx, key, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to look up idempotency key", err)
	}
	return s.repo.DeleteByID(ctx, record.ID)
}

func (s *service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now())
}
