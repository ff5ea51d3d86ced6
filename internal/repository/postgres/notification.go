package postgres

import (
	"context"
	"fmt"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (
            id, tenant_id, recipient_id, type, message,
            entity_type, entity_id, read, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO NOTHING
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		n.ID,
		n.TenantID,
		n.RecipientID,
		n.Type,
		n.Message,
		n.EntityType,
		n.EntityID,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
