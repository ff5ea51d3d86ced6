package postgres

import (
	"context"
	"fmt"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
        INSERT INTO audit_logs (
            id, tenant_id, actor_id, actor_role, action,
            entity_type, entity_id, details, ip_address, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		log.ID,
		log.TenantID,
		log.ActorID,
		log.ActorRole,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Details,
		log.IPAddress,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) ListWithPagination(ctx context.Context, tenantID string, limit, offset int) ([]*model.AuditLog, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM audit_logs WHERE tenant_id = $1`
	if err := r.GetDB().GetContext(ctx, &total, countQuery, tenantID); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := `
        SELECT * FROM audit_logs
        WHERE tenant_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `

	var logs []*model.AuditLog
	if err := r.GetDB().SelectContext(ctx, &logs, query, tenantID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
