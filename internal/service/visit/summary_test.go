package visit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/carelink/visit-api/pkg/errors"

	"github.com/carelink/visit-api/internal/model"
)

func family() model.CallerIdentity {
	return model.CallerIdentity{UserID: "F1", TenantID: "T1", Role: model.RoleFamily}
}

// approveWithDocumentation drives S1 to APPROVED carrying the given
// clinical content.
func approveWithDocumentation(t *testing.T, f *fixture, update DocumentationUpdate) {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, nurse(), "S1")
	require.NoError(t, err)
	if !update.Kardex.HasObservations() {
		update.Kardex.GeneralObservations = "routine visit, no incidents"
	}
	_, err = f.svc.UpdateDocumentation(ctx, nurse(), "S1", update)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, nurse(), "S1")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, admin(), "S1")
	require.NoError(t, err)
}

func TestListFamilySummaries(t *testing.T) {
	f := newFixture(t, Options{})
	measured := time.Date(2025, 6, 2, 10, 15, 0, 0, time.UTC)
	approveWithDocumentation(t, f, DocumentationUpdate{
		Kardex: model.Kardex{
			GeneralObservations: "patient in good spirits",
			Incidents:           "minor dizziness after lunch",
		},
		Vitals: model.VitalsSnapshot{Recorded: true, Temperature: 36.8, HeartRate: 72, MeasuredAt: &measured},
		Medications: model.MedicationList{
			{Name: "Metformin", Dose: "500mg", AdministeredAt: measured},
		},
		Tasks: model.TaskList{
			{Description: "assisted with bathing", CompletedAt: measured},
			{Description: "prepared lunch", CompletedAt: measured},
		},
	})

	summaries, err := f.svc.ListFamilySummaries(context.Background(), family(), "P1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "S1", s.VisitID)
	assert.Equal(t, "Nina Vargas", s.NurseName)
	assert.Equal(t, f.shifts.shifts["S1"].ScheduledStart, s.VisitDate)
	assert.Equal(t, 120, s.DurationMinutes)
	assert.Equal(t, "monitored", s.StatusLabel)
	assert.Equal(t, []string{"vitals checked", "medications administered", "2 tasks completed"}, s.Activities)
}

// The summary is a redaction boundary: no kardex text or raw measurements
// may survive serialization.
func TestFamilySummaryOmitsClinicalDetail(t *testing.T) {
	f := newFixture(t, Options{})
	approveWithDocumentation(t, f, DocumentationUpdate{
		Kardex: model.Kardex{
			GeneralObservations: "wound dressing changed",
			Incidents:           "refused morning medication",
		},
		Vitals: model.VitalsSnapshot{Recorded: true, Temperature: 38.9},
	})

	summaries, err := f.svc.ListFamilySummaries(context.Background(), family(), "P1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	raw, err := json.Marshal(summaries[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "wound dressing")
	assert.NotContains(t, string(raw), "refused")
	assert.NotContains(t, string(raw), "38.9")
}

func TestFamilySummaryStableWithoutMonitoring(t *testing.T) {
	f := newFixture(t, Options{})
	approveWithDocumentation(t, f, DocumentationUpdate{
		Kardex: model.Kardex{GeneralObservations: "social visit only"},
	})

	summaries, err := f.svc.ListFamilySummaries(context.Background(), family(), "P1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "stable", summaries[0].StatusLabel)
	assert.Empty(t, summaries[0].Activities)
}

func TestListFamilySummariesExcludesUnapproved(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.draftAt(t, model.VisitStatusSubmitted)

	summaries, err := f.svc.ListFamilySummaries(ctx, family(), "P1")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListFamilySummariesDeniedForNonMember(t *testing.T) {
	f := newFixture(t, Options{})
	f.draftAt(t, model.VisitStatusApproved)

	stranger := model.CallerIdentity{UserID: "F9", TenantID: "T1", Role: model.RoleFamily}
	_, err := f.svc.ListFamilySummaries(context.Background(), stranger, "P1")
	assertCode(t, err, apperrors.ErrUnauthorized)

	// Registration is the only gate: once listed, the same caller succeeds.
	f.patients.patients["P1"].FamilyMembers = append(f.patients.patients["P1"].FamilyMembers, "F9")
	summaries, err := f.svc.ListFamilySummaries(context.Background(), stranger, "P1")
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestListFamilySummariesDeniedAcrossTenants(t *testing.T) {
	f := newFixture(t, Options{})
	f.draftAt(t, model.VisitStatusApproved)

	foreign := model.CallerIdentity{UserID: "F1", TenantID: "T2", Role: model.RoleFamily}
	_, err := f.svc.ListFamilySummaries(context.Background(), foreign, "P1")
	assertCode(t, err, apperrors.ErrUnauthorized)
}

func TestListFamilySummariesUnknownPatient(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.ListFamilySummaries(context.Background(), family(), "P9")
	assertCode(t, err, apperrors.ErrNotFound)
}
