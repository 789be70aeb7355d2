package idempotency

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cinebook/internal/shared/apperrors"
)

type mockRepository struct {
	records map[string]*Record
	// when set, the next Create loses the unique-index race to this record
	raceWinner *Record
}

func newMockRepository() *mockRepository {
	return &mockRepository{records: make(map[string]*Record)}
}

func recordKey(key string, userID uuid.UUID) string {
	return key + "|" + userID.String()
}

func (m *mockRepository) Create(ctx context.Context, record *Record) error {
	if m.raceWinner != nil {
		winner := m.raceWinner
		m.raceWinner = nil
		m.records[recordKey(winner.IdempotencyKey, winner.UserID)] = winner
		return ErrDuplicateRecord
	}
	k := recordKey(record.IdempotencyKey, record.UserID)
	if _, exists := m.records[k]; exists {
		return ErrDuplicateRecord
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	stored := *record
	m.records[k] = &stored
	return nil
}

func (m *mockRepository) Find(ctx context.Context, key string, userID uuid.UUID) (*Record, error) {
	record, ok := m.records[recordKey(key, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *record
	return &found, nil
}

func (m *mockRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	for k, record := range m.records {
		if record.ID == id {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *mockRepository) MarkCompleted(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte, resourceID *uuid.UUID) (bool, error) {
	record, ok := m.records[recordKey(key, userID)]
	if !ok || record.Status != StatusProcessing {
		return false, nil
	}
	record.Status = StatusCompleted
	record.StatusCode = statusCode
	record.ResponseBody = JSONRaw(body)
	record.ResourceID = resourceID
	return true, nil
}

func (m *mockRepository) MarkFailed(ctx context.Context, key string, userID uuid.UUID, statusCode int, body []byte) (bool, error) {
	record, ok := m.records[recordKey(key, userID)]
	if !ok || record.Status != StatusProcessing {
		return false, nil
	}
	record.Status = StatusFailed
	record.StatusCode = statusCode
	record.ResponseBody = JSONRaw(body)
	return true, nil
}

func (m *mockRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	for k, record := range m.records {
		if record.ExpiresAt.Before(before) {
			delete(m.records, k)
			removed++
		}
	}
	return removed, nil
}

func seedRecord(repo *mockRepository, key string, userID uuid.UUID, status Status, hash string) *Record {
	record := &Record{
		ID:             uuid.New(),
		IdempotencyKey: key,
		UserID:         userID,
		RequestPath:    "/api/v1/bookings/hold",
		RequestHash:    hash,
		ResourceType:   "booking",
		Status:         status,
		ExpiresAt:      time.Now().Add(RecordTTL),
	}
	repo.records[recordKey(key, userID)] = record
	return record
}

func TestCheckNewKey(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()

	result, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "hash-1", "booking")

	require.NoError(t, err)
	assert.True(t, result.New)

	stored := repo.records[recordKey("key-1", userID)]
	require.NotNil(t, stored)
	assert.Equal(t, StatusProcessing, stored.Status)
	assert.Equal(t, "hash-1", stored.RequestHash)
	assert.WithinDuration(t, time.Now().Add(RecordTTL), stored.ExpiresAt, time.Minute)
}

func TestCheckReplaysCompleted(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()

	record := seedRecord(repo, "key-1", userID, StatusCompleted, "hash-1")
	record.StatusCode = http.StatusCreated
	record.ResponseBody = JSONRaw(`{"booking_code":"BK-AAAA1111"}`)

	result, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "hash-1", "booking")

	require.NoError(t, err)
	assert.False(t, result.New)
	assert.Equal(t, http.StatusCreated, result.CachedStatus)
	assert.JSONEq(t, `{"booking_code":"BK-AAAA1111"}`, string(result.CachedBody))
}

func TestCheckReplaysFailure(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()

	record := seedRecord(repo, "key-1", userID, StatusFailed, "hash-1")
	record.StatusCode = http.StatusConflict
	record.ResponseBody = JSONRaw(`{"errorCode":"SEATS_NOT_AVAILABLE"}`)

	result, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "hash-1", "booking")

	require.NoError(t, err)
	assert.False(t, result.New)
	assert.Equal(t, http.StatusConflict, result.CachedStatus)
}

func TestCheckInFlight(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()
	seedRecord(repo, "key-1", userID, StatusProcessing, "hash-1")

	_, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "hash-1", "booking")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "REQUEST_IN_FLIGHT"))
}

func TestCheckRejectsKeyReuseWithDifferentBody(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()
	seedRecord(repo, "key-1", userID, StatusCompleted, "hash-1")

	_, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "other-hash", "booking")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "KEY_REUSED_DIFFERENT_BODY"))
}

func TestCheckTreatsExpiredAsAbsent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()

	stale := seedRecord(repo, "key-1", userID, StatusCompleted, "old-hash")
	stale.ExpiresAt = time.Now().Add(-time.Hour)

	result, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "new-hash", "booking")

	require.NoError(t, err)
	assert.True(t, result.New, "an expired record must not block reuse")

	fresh := repo.records[recordKey("key-1", userID)]
	require.NotNil(t, fresh)
	assert.Equal(t, "new-hash", fresh.RequestHash)
	assert.Equal(t, StatusProcessing, fresh.Status)
}

func TestCheckLosesCreateRace(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()

	repo.raceWinner = &Record{
		ID:             uuid.New(),
		IdempotencyKey: "key-1",
		UserID:         userID,
		RequestHash:    "hash-1",
		Status:         StatusProcessing,
		ExpiresAt:      time.Now().Add(RecordTTL),
	}

	_, err := svc.Check(context.Background(), "key-1", userID, "/api/v1/bookings/hold", "hash-1", "booking")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "REQUEST_IN_FLIGHT"), "losing the race re-reads the winner's record")
}

func TestCheckRejectsOversizedKey(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Check(context.Background(), strings.Repeat("k", MaxKeyLength+1), uuid.New(), "/p", "h", "booking")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_IDEMPOTENCY_KEY"))
}

func TestCompleteStoresResponseOnce(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()
	seedRecord(repo, "key-1", userID, StatusProcessing, "hash-1")

	type holdResponse struct {
		BookingCode string `json:"booking_code"`
	}
	resourceID := uuid.New()
	err := svc.Complete(context.Background(), "key-1", userID, http.StatusCreated, holdResponse{BookingCode: "BK-AAAA1111"}, &resourceID)
	require.NoError(t, err)

	stored := repo.records[recordKey("key-1", userID)]
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, http.StatusCreated, stored.StatusCode)
	assert.JSONEq(t, `{"booking_code":"BK-AAAA1111"}`, string(stored.ResponseBody))
	require.NotNil(t, stored.ResourceID)
	assert.Equal(t, resourceID, *stored.ResourceID)

	// A second complete is a no-op, not an error.
	err = svc.Complete(context.Background(), "key-1", userID, http.StatusOK, holdResponse{BookingCode: "BK-OTHER"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"booking_code":"BK-AAAA1111"}`, string(stored.ResponseBody))
}

func TestFailStoresEnvelope(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()
	seedRecord(repo, "key-1", userID, StatusProcessing, "hash-1")

	failure := apperrors.Conflict("SEATS_NOT_AVAILABLE", "One or more seats are not available")
	err := svc.Fail(context.Background(), "key-1", userID, failure)
	require.NoError(t, err)

	stored := repo.records[recordKey("key-1", userID)]
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, http.StatusConflict, stored.StatusCode)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(stored.ResponseBody, &envelope))
	assert.Equal(t, "SEATS_NOT_AVAILABLE", envelope["errorCode"])
	assert.Equal(t, float64(http.StatusConflict), envelope["statusCode"])
}

func TestForgetRemovesRecord(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	userID := uuid.New()
	seedRecord(repo, "key-1", userID, StatusProcessing, "hash-1")

	require.NoError(t, svc.Forget(context.Background(), "key-1", userID))
	assert.Empty(t, repo.records)

	// Forgetting a missing key is a no-op.
	require.NoError(t, svc.Forget(context.Background(), "key-1", userID))
}
