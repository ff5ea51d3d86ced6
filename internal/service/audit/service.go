package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

// Entry is one immutable transition record. The caller supplies its
// network origin explicitly; the recorder never reads request state.
type Entry struct {
	TenantID   string
	ActorID    string
	ActorRole  model.Role
	Action     model.AuditAction
	EntityType string
	EntityID   string
	Details    model.AuditDetails
	Origin     string
}

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

// Record appends one audit log entry.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	log := &model.AuditLog{
		ID:         uuid.New(),
		TenantID:   entry.TenantID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    details,
		IPAddress:  entry.Origin,
		CreatedAt:  time.Now(),
	}

	return s.repo.Create(ctx, log)
}

// RecordRaw appends a pre-built entry, used by the reconciliation worker
// when redelivering a failed audit write.
func (s *Service) RecordRaw(ctx context.Context, log *model.AuditLog) error {
	return s.repo.Create(ctx, log)
}

func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]*model.AuditLog, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListWithPagination(ctx, tenantID, limit, offset)
}
