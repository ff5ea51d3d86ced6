package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates lifecycle transitions, one value per type.
type AuditAction string

const (
	AuditActionVisitCreated   AuditAction = "visit_created"
	AuditActionVisitSubmitted AuditAction = "visit_submitted"
	AuditActionVisitRejected  AuditAction = "visit_rejected"
	AuditActionVisitApproved  AuditAction = "visit_approved"
)

// Entity types
const (
	AuditEntityVisit = "visit"
	AuditEntityShift = "shift"
)

// AuditLog is append-only: rows are never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	ActorID    string          `json:"actor_id" db:"actor_id"`
	ActorRole  Role            `json:"actor_role" db:"actor_role"`
	Action     AuditAction     `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Details    json.RawMessage `json:"details" db:"details"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AuditDetails is the payload stored with every transition entry.
type AuditDetails struct {
	PreviousStatus VisitStatus `json:"previous_status,omitempty"`
	NewStatus      VisitStatus `json:"new_status"`
	Reason         string      `json:"reason,omitempty"`
}
