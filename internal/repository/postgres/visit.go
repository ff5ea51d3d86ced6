package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type visitRepository struct {
	BaseRepository
}

func NewVisitRepository(base BaseRepository) repository.VisitRepository {
	return &visitRepository{base}
}

// Insert is existence-guarded: two concurrent creations for the same shift
// cannot both succeed.
func (r *visitRepository) Insert(ctx context.Context, visit *model.Visit) error {
	query := `
        INSERT INTO visits (
            id, tenant_id, shift_id, patient_id, nurse_id, status,
            kardex, vitals, medications, tasks, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO NOTHING
    `

	result, err := r.GetDB().ExecContext(ctx, query,
		visit.ID,
		visit.TenantID,
		visit.ShiftID,
		visit.PatientID,
		visit.NurseID,
		visit.Status,
		visit.Kardex,
		visit.Vitals,
		visit.Medications,
		visit.Tasks,
		visit.CreatedAt,
		visit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if rows == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *visitRepository) Get(ctx context.Context, id string) (*model.Visit, error) {
	var visit model.Visit
	query := `SELECT * FROM visits WHERE id = $1`

	if err := r.GetDB().GetContext(ctx, &visit, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

// Transition is the primary status write: it only lands if the stored
// status is still one of from, which gives per-item optimistic concurrency.
func (r *visitRepository) Transition(ctx context.Context, visit *model.Visit, from []model.VisitStatus) error {
	query := `
        UPDATE visits SET
            status = $2,
            submitted_at = $3,
            reviewed_at = $4,
            reviewed_by = $5,
            rejection_reason = $6,
            approved_at = $7,
            approved_by = $8,
            updated_at = $9
        WHERE id = $1 AND status = ANY($10)
    `

	result, err := r.GetDB().ExecContext(ctx, query,
		visit.ID,
		visit.Status,
		visit.SubmittedAt,
		visit.ReviewedAt,
		visit.ReviewedBy,
		visit.RejectionReason,
		visit.ApprovedAt,
		visit.ApprovedBy,
		visit.UpdatedAt,
		pq.Array(statusStrings(from)),
	)
	if err != nil {
		return fmt.Errorf("failed to transition visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read transition result: %w", err)
	}
	if rows == 0 {
		return repository.ErrStale
	}
	return nil
}

// UpdateDocumentation only touches editable visits; a submitted or
// approved record is never modified by this path.
func (r *visitRepository) UpdateDocumentation(ctx context.Context, visit *model.Visit) error {
	query := `
        UPDATE visits SET
            kardex = $2,
            vitals = $3,
            medications = $4,
            tasks = $5,
            updated_at = $6
        WHERE id = $1 AND status = ANY($7)
    `

	editable := []model.VisitStatus{model.VisitStatusDraft, model.VisitStatusRejected}
	result, err := r.GetDB().ExecContext(ctx, query,
		visit.ID,
		visit.Kardex,
		visit.Vitals,
		visit.Medications,
		visit.Tasks,
		visit.UpdatedAt,
		pq.Array(statusStrings(editable)),
	)
	if err != nil {
		return fmt.Errorf("failed to update visit documentation: %w", err)
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

func (r *visitRepository) ListByPatient(ctx context.Context, tenantID, patientID string, status model.VisitStatus) ([]*model.Visit, error) {
	query := `
        SELECT * FROM visits
        WHERE tenant_id = $1 AND patient_id = $2 AND status = $3
        ORDER BY approved_at DESC NULLS LAST, created_at DESC
    `

	var visits []*model.Visit
	if err := r.GetDB().SelectContext(ctx, &visits, query, tenantID, patientID, status); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

func statusStrings(statuses []model.VisitStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
