package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, effect *model.SideEffect) error {
	query := `
        INSERT INTO side_effect_outbox (
            id, tenant_id, kind, payload, status,
            retry_count, retry_at, last_error, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		effect.ID,
		effect.TenantID,
		effect.Kind,
		effect.Payload,
		effect.Status,
		effect.RetryCount,
		effect.RetryAt,
		effect.LastError,
		effect.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue side effect: %w", err)
	}
	return nil
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]*model.SideEffect, error) {
	query := `
        SELECT * FROM side_effect_outbox
        WHERE status = $1 AND (retry_at IS NULL OR retry_at <= $2)
        ORDER BY created_at
        LIMIT $3
    `

	var effects []*model.SideEffect
	if err := r.GetDB().SelectContext(ctx, &effects, query, model.SideEffectStatusPending, time.Now(), limit); err != nil {
		return nil, fmt.Errorf("failed to list pending side effects: %w", err)
	}
	return effects, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE side_effect_outbox
        SET status = $2, delivered_at = $3
        WHERE id = $1
    `

	_, err := r.GetDB().ExecContext(ctx, query, id, model.SideEffectStatusDelivered, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark side effect delivered: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time) error {
	query := `
        UPDATE side_effect_outbox
        SET retry_count = retry_count + 1, last_error = $2, retry_at = $3
        WHERE id = $1
    `

	_, err := r.GetDB().ExecContext(ctx, query, id, lastError, retryAt)
	if err != nil {
		return fmt.Errorf("failed to record side effect failure: %w", err)
	}
	return nil
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM side_effect_outbox WHERE status = $1`
	if err := r.GetDB().GetContext(ctx, &count, query, model.SideEffectStatusPending); err != nil {
		return 0, fmt.Errorf("failed to count pending side effects: %w", err)
	}
	return count, nil
}
