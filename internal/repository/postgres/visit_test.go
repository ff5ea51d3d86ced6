package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

func newMockRepo(t *testing.T) (repository.VisitRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewVisitRepository(NewBaseRepository(sqlxDB)), mock
}

func sampleVisit() *model.Visit {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	return &model.Visit{
		ID:          "S1",
		TenantID:    "T1",
		ShiftID:     "S1",
		PatientID:   "P1",
		NurseID:     "N1",
		Status:      model.VisitStatusDraft,
		Kardex:      model.Kardex{GeneralObservations: "stable"},
		Medications: model.MedicationList{},
		Tasks:       model.TaskList{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInsertGuardedByExistence(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO visits`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Insert(context.Background(), sampleVisit()))

	// Zero rows affected means the guard held: a visit already exists.
	mock.ExpectExec(`INSERT INTO visits`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Insert(context.Background(), sampleVisit())
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPredicatedOnStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	visit := sampleVisit()
	now := time.Now()
	visit.Status = model.VisitStatusSubmitted
	visit.SubmittedAt = &now
	from := []model.VisitStatus{model.VisitStatusDraft, model.VisitStatusRejected}

	mock.ExpectExec(`UPDATE visits SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Transition(context.Background(), visit, from))

	// A concurrent writer moved the visit first; the predicate misses.
	mock.ExpectExec(`UPDATE visits SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Transition(context.Background(), visit, from)
	assert.ErrorIs(t, err, repository.ErrStale)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM visits WHERE id`).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDocumentationOnlyWhileEditable(t *testing.T) {
	repo, mock := newMockRepo(t)
	visit := sampleVisit()

	mock.ExpectExec(`UPDATE visits SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateDocumentation(context.Background(), visit))

	mock.ExpectExec(`UPDATE visits SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateDocumentation(context.Background(), visit)
	assert.ErrorIs(t, err, repository.ErrStale)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByPatient(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "shift_id", "patient_id", "nurse_id", "status"}).
		AddRow("S1", "T1", "S1", "P1", "N1", "APPROVED").
		AddRow("S2", "T1", "S2", "P1", "N1", "APPROVED")
	mock.ExpectQuery(`SELECT \* FROM visits`).
		WithArgs("T1", "P1", model.VisitStatusApproved).
		WillReturnRows(rows)

	visits, err := repo.ListByPatient(context.Background(), "T1", "P1", model.VisitStatusApproved)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "S1", visits[0].ID)
	assert.Equal(t, model.VisitStatusApproved, visits[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}
