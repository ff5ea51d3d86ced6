package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT * FROM patients WHERE id = $1`

	if err := r.GetDB().GetContext(ctx, &patient, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}
