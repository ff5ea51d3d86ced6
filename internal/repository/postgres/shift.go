package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type shiftRepository struct {
	BaseRepository
}

func NewShiftRepository(base BaseRepository) repository.ShiftRepository {
	return &shiftRepository{base}
}

func (r *shiftRepository) Get(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	query := `SELECT * FROM shifts WHERE id = $1`

	if err := r.GetDB().GetContext(ctx, &shift, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return &shift, nil
}

// SetVisitRef writes the back-reference once; it never overwrites an
// existing one.
func (r *shiftRepository) SetVisitRef(ctx context.Context, shiftID, visitID string) error {
	query := `
        UPDATE shifts SET visit_id = $2, updated_at = $3
        WHERE id = $1 AND visit_id IS NULL
    `

	result, err := r.GetDB().ExecContext(ctx, query, shiftID, visitID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set shift visit reference: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return repository.ErrStale
	}
	return nil
}
