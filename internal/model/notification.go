package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType mirrors the transition that produced the notification.
type NotificationType string

const (
	NotificationTypeVisitPendingReview NotificationType = "visit_pending_review"
	NotificationTypeVisitRejected      NotificationType = "visit_rejected"
	NotificationTypeVisitApproved      NotificationType = "visit_approved"
	NotificationTypeVisitSummaryReady  NotificationType = "visit_summary_ready"
)

// Notification is created by the dispatcher with Read=false; read-state
// mutation happens elsewhere.
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	TenantID    string           `json:"tenant_id" db:"tenant_id"`
	RecipientID string           `json:"recipient_id" db:"recipient_id"`
	Type        NotificationType `json:"type" db:"type"`
	Message     string           `json:"message" db:"message"`
	EntityType  string           `json:"entity_type" db:"entity_type"`
	EntityID    string           `json:"entity_id" db:"entity_id"`
	Read        bool             `json:"read" db:"read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
