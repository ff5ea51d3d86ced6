package model

import "time"

// ShiftStatus is owned by the scheduling subsystem; the visit engine only
// checks for COMPLETED before documentation may start.
type ShiftStatus string

const (
	ShiftStatusPending    ShiftStatus = "PENDING"
	ShiftStatusInProgress ShiftStatus = "IN_PROGRESS"
	ShiftStatusCompleted  ShiftStatus = "COMPLETED"
	ShiftStatusCancelled  ShiftStatus = "CANCELLED"
)

// Shift is a scheduled caregiver assignment. The engine reads it and writes
// the visit back-reference exactly once when the draft is created.
type Shift struct {
	ID             string      `json:"id" db:"id"`
	TenantID       string      `json:"tenant_id" db:"tenant_id"`
	NurseID        string      `json:"nurse_id" db:"nurse_id"`
	PatientID      string      `json:"patient_id" db:"patient_id"`
	Status         ShiftStatus `json:"status" db:"status"`
	VisitID        *string     `json:"visit_id,omitempty" db:"visit_id"`
	ScheduledStart time.Time   `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd   time.Time   `json:"scheduled_end" db:"scheduled_end"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Duration derives the worked span from the scheduled window, preferring
// the actual completion timestamp when the shift recorded one.
func (s *Shift) Duration() time.Duration {
	end := s.ScheduledEnd
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	d := end.Sub(s.ScheduledStart)
	if d < 0 {
		return 0
	}
	return d
}
