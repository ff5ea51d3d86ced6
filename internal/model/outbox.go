package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SideEffectKind string

const (
	SideEffectAudit        SideEffectKind = "audit"
	SideEffectNotification SideEffectKind = "notification"
)

type SideEffectStatus string

const (
	SideEffectStatusPending   SideEffectStatus = "PENDING"
	SideEffectStatusDelivered SideEffectStatus = "DELIVERED"
	SideEffectStatusFailed    SideEffectStatus = "FAILED"
)

// SideEffect is a secondary write (audit entry or notification) that
// failed inline after the primary status transition already committed.
// The reconciliation worker redelivers it at least once; consumers must
// tolerate duplicates.
type SideEffect struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	TenantID    string           `json:"tenant_id" db:"tenant_id"`
	Kind        SideEffectKind   `json:"kind" db:"kind"`
	Payload     json.RawMessage  `json:"payload" db:"payload"`
	Status      SideEffectStatus `json:"status" db:"status"`
	RetryCount  int              `json:"retry_count" db:"retry_count"`
	RetryAt     *time.Time       `json:"retry_at,omitempty" db:"retry_at"`
	LastError   *string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	DeliveredAt *time.Time       `json:"delivered_at,omitempty" db:"delivered_at"`
}
