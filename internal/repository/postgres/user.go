package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	query := `SELECT * FROM users WHERE id = $1`

	if err := r.GetDB().GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ListAdmins(ctx context.Context, tenantID string) ([]*model.User, error) {
	query := `
        SELECT * FROM users
        WHERE tenant_id = $1 AND role = $2
        ORDER BY name
    `

	var users []*model.User
	if err := r.GetDB().SelectContext(ctx, &users, query, tenantID, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to list tenant admins: %w", err)
	}
	return users, nil
}
