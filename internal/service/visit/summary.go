package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/carelink/visit-api/pkg/errors"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
)

// Coarse wellbeing labels shown to family members.
const (
	statusLabelStable    = "stable"
	statusLabelMonitored = "monitored"
)

// ListFamilySummaries returns redacted summaries of the patient's APPROVED
// visits for a registered family member, newest first. Kardex text and
// other clinical internals never appear in the result.
func (s *Service) ListFamilySummaries(ctx context.Context, identity model.CallerIdentity, patientID string) ([]model.VisitSummary, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, s.readErr("patient", err)
	}

	if err := s.guard.CanViewFamilySummaries(identity, patient); err != nil {
		return nil, err
	}

	visits, err := s.visits.ListByPatient(ctx, patient.TenantID, patient.ID, model.VisitStatusApproved)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	summaries := make([]model.VisitSummary, 0, len(visits))
	for _, v := range visits {
		summaries = append(summaries, s.buildSummary(ctx, v))
	}
	return summaries, nil
}

func (s *Service) buildSummary(ctx context.Context, v *model.Visit) model.VisitSummary {
	summary := model.VisitSummary{
		VisitID:     v.ID,
		StatusLabel: statusLabelStable,
		Activities:  activityFlags(v),
	}
	if v.Vitals.Recorded || len(v.Medications) > 0 {
		summary.StatusLabel = statusLabelMonitored
	}

	// The shift shares the visit's id; its scheduled window supplies the
	// visit date and duration.
	shift, err := s.shifts.Get(ctx, v.ShiftID)
	if err != nil {
		s.logger.Error(err, "failed to load shift for summary", "shift_id", v.ShiftID)
		summary.VisitDate = v.CreatedAt
	} else {
		summary.VisitDate = shift.ScheduledStart
		summary.DurationMinutes = int(shift.Duration() / time.Minute)
	}

	nurse, err := s.users.Get(ctx, v.NurseID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error(err, "failed to load nurse for summary", "nurse_id", v.NurseID)
		}
		summary.NurseName = ""
	} else {
		summary.NurseName = nurse.Name
	}
	return summary
}

// activityFlags derives the non-clinical activity list: what happened,
// never what was observed.
func activityFlags(v *model.Visit) []string {
	flags := make([]string, 0, 3)
	if v.Vitals.Recorded {
		flags = append(flags, "vitals checked")
	}
	if len(v.Medications) > 0 {
		flags = append(flags, "medications administered")
	}
	if n := len(v.Tasks); n > 0 {
		flags = append(flags, fmt.Sprintf("%d tasks completed", n))
	}
	return flags
}
