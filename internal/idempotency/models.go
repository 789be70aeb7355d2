package idempotency

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle of one idempotency record.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	// RecordTTL is how long a key pins its response before it may be reused.
	RecordTTL = 24 * time.Hour

	// MaxKeyLength bounds the opaque key accepted by the core. The HTTP
	// boundary additionally enforces UUID-v4 shape via middleware.
	MaxKeyLength = 100
)

// JSONRaw stores pre-marshaled JSON in a jsonb column without re-encoding.
type JSONRaw json.RawMessage

// Value implements the driver.Valuer interface for database storage
func (j JSONRaw) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONRaw) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSONRaw(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return nil
}

// GormDataType tells GORM how to handle this type
func (JSONRaw) GormDataType() string {
	return "jsonb"
}

// Record pins one (idempotency_key, user_id) pair to the outcome of the first
// request that carried it. Replays serve the stored response, byte for byte,
// without re-executing the operation.
type Record struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	IdempotencyKey string     `json:"idempotency_key" gorm:"size:100;not null;uniqueIndex:uq_idempotency_key_user,priority:1"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uq_idempotency_key_user,priority:2"`
	RequestPath    string     `json:"request_path" gorm:"size:255;not null"`
	RequestHash    string     `json:"request_hash" gorm:"size:64;not null"`
	ResourceType   string     `json:"resource_type" gorm:"size:32;not null"`
	ResourceID     *uuid.UUID `json:"resource_id,omitempty" gorm:"type:uuid"`
	Status         Status     `json:"status" gorm:"type:varchar(20);not null;default:'processing'"`
	StatusCode     int        `json:"status_code"`
	ResponseBody   JSONRaw    `json:"response_body,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	ExpiresAt      time.Time  `json:"expires_at" gorm:"not null;index"`
}

// TableName sets the table name for Record
func (Record) TableName() string {
	return "idempotency_keys"
}

// Expired reports whether the record's retention window has passed.
func (r *Record) Expired() bool {
	return time.Now().After(r.ExpiresAt)
}

// CheckResult is the outcome of registering a key. New means the caller owns
// the request and must execute it; otherwise CachedStatus and CachedBody
// replay the stored outcome verbatim.
type CheckResult struct {
	New          bool            `json:"new"`
	CachedStatus int             `json:"cached_status,omitempty"`
	CachedBody   json.RawMessage `json:"cached_body,omitempty"`
}
