package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/visit-api/internal/model"
)

// Sentinel errors for conditional-write outcomes. The store offers only
// single-item conditional writes; these are how implementations report
// that the guard predicate did not hold.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrStale     = errors.New("record state changed since read")
)

// All repository interfaces in one file
type (
	// ShiftRepository reads scheduling data; the engine writes the visit
	// back-reference exactly once.
	ShiftRepository interface {
		Get(ctx context.Context, id string) (*model.Shift, error)
		SetVisitRef(ctx context.Context, shiftID, visitID string) error
	}

	// VisitRepository performs the conditional writes the lifecycle engine
	// relies on for per-item optimistic concurrency.
	VisitRepository interface {
		// Insert fails with ErrDuplicate if a visit with the same id exists.
		Insert(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, id string) (*model.Visit, error)
		// Transition writes the visit's status and workflow fields only if
		// the stored status is still one of from; ErrStale otherwise.
		Transition(ctx context.Context, visit *model.Visit, from []model.VisitStatus) error
		// UpdateDocumentation writes kardex/vitals/medications/tasks only
		// while the visit is still editable (DRAFT or REJECTED).
		UpdateDocumentation(ctx context.Context, visit *model.Visit) error
		ListByPatient(ctx context.Context, tenantID, patientID string, status model.VisitStatus) ([]*model.Visit, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id string) (*model.User, error)
		ListAdmins(ctx context.Context, tenantID string) ([]*model.User, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id string) (*model.Patient, error)
	}

	// AuditRepository is append-only; entries are never updated or deleted.
	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		ListWithPagination(ctx context.Context, tenantID string, limit, offset int) ([]*model.AuditLog, int64, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
	}

	// OutboxRepository queues failed secondary effects for redelivery.
	OutboxRepository interface {
		Create(ctx context.Context, effect *model.SideEffect) error
		ListPending(ctx context.Context, limit int) ([]*model.SideEffect, error)
		MarkDelivered(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time) error
		CountPending(ctx context.Context) (int64, error)
	}
)
