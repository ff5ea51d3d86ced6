package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// VisitStatus is the closed set of clinical documentation states.
type VisitStatus string

const (
	VisitStatusDraft     VisitStatus = "DRAFT"
	VisitStatusSubmitted VisitStatus = "SUBMITTED"
	VisitStatusRejected  VisitStatus = "REJECTED"
	VisitStatusApproved  VisitStatus = "APPROVED"
)

// VisitEvent names a requested lifecycle transition.
type VisitEvent string

const (
	VisitEventSubmit  VisitEvent = "submit"
	VisitEventReject  VisitEvent = "reject"
	VisitEventApprove VisitEvent = "approve"
)

// NextStatus is the single source of truth for the transition table.
// APPROVED is terminal: no event ever moves a visit out of it.
func NextStatus(current VisitStatus, event VisitEvent) (VisitStatus, bool) {
	switch event {
	case VisitEventSubmit:
		if current == VisitStatusDraft || current == VisitStatusRejected {
			return VisitStatusSubmitted, true
		}
	case VisitEventReject:
		if current == VisitStatusSubmitted {
			return VisitStatusRejected, true
		}
	case VisitEventApprove:
		if current == VisitStatusSubmitted {
			return VisitStatusApproved, true
		}
	}
	return current, false
}

// SourceStatuses returns the set of statuses an event may fire from,
// used as the predicate of the conditional status write.
func SourceStatuses(event VisitEvent) []VisitStatus {
	switch event {
	case VisitEventSubmit:
		return []VisitStatus{VisitStatusDraft, VisitStatusRejected}
	case VisitEventReject, VisitEventApprove:
		return []VisitStatus{VisitStatusSubmitted}
	}
	return nil
}

// Kardex is the structured clinical note attached to a visit.
// GeneralObservations must be non-blank before submission.
type Kardex struct {
	GeneralObservations string `json:"general_observations"`
	Incidents           string `json:"incidents,omitempty"`
	FollowUp            string `json:"follow_up,omitempty"`
}

func (k Kardex) Value() (driver.Value, error) {
	return json.Marshal(k)
}

func (k *Kardex) Scan(src interface{}) error {
	return scanJSON(src, k)
}

// HasObservations reports whether the required free-text field is filled.
func (k Kardex) HasObservations() bool {
	return strings.TrimSpace(k.GeneralObservations) != ""
}

// VitalsSnapshot captures vitals measured during the shift. Recorded is
// false when the caregiver took no measurements.
type VitalsSnapshot struct {
	Recorded         bool       `json:"recorded"`
	Temperature      float64    `json:"temperature,omitempty"`
	HeartRate        int        `json:"heart_rate,omitempty"`
	RespiratoryRate  int        `json:"respiratory_rate,omitempty"`
	SystolicBP       int        `json:"systolic_bp,omitempty"`
	DiastolicBP      int        `json:"diastolic_bp,omitempty"`
	OxygenSaturation int        `json:"oxygen_saturation,omitempty"`
	MeasuredAt       *time.Time `json:"measured_at,omitempty"`
}

func (v VitalsSnapshot) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *VitalsSnapshot) Scan(src interface{}) error {
	return scanJSON(src, v)
}

// MedicationRecord is one administered medication, in administration order.
type MedicationRecord struct {
	Name           string    `json:"name"`
	Dose           string    `json:"dose"`
	Route          string    `json:"route,omitempty"`
	AdministeredAt time.Time `json:"administered_at"`
}

type MedicationList []MedicationRecord

func (m MedicationList) Value() (driver.Value, error) {
	if m == nil {
		m = MedicationList{}
	}
	return json.Marshal(m)
}

func (m *MedicationList) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// TaskRecord is one completed care task, in completion order.
type TaskRecord struct {
	Description string    `json:"description"`
	CompletedAt time.Time `json:"completed_at"`
}

type TaskList []TaskRecord

func (t TaskList) Value() (driver.Value, error) {
	if t == nil {
		t = TaskList{}
	}
	return json.Marshal(t)
}

func (t *TaskList) Scan(src interface{}) error {
	return scanJSON(src, t)
}

// Visit is the clinical documentation record for one completed shift.
// Its id always equals the originating shift's id; creation is guarded so
// at most one visit ever exists per shift.
type Visit struct {
	ID              string         `json:"id" db:"id"`
	TenantID        string         `json:"tenant_id" db:"tenant_id"`
	ShiftID         string         `json:"shift_id" db:"shift_id"`
	PatientID       string         `json:"patient_id" db:"patient_id"`
	NurseID         string         `json:"nurse_id" db:"nurse_id"`
	Status          VisitStatus    `json:"status" db:"status"`
	Kardex          Kardex         `json:"kardex" db:"kardex"`
	Vitals          VitalsSnapshot `json:"vitals" db:"vitals"`
	Medications     MedicationList `json:"medications" db:"medications"`
	Tasks           TaskList       `json:"tasks" db:"tasks"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty" db:"submitted_at"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewedBy      *string        `json:"reviewed_by,omitempty" db:"reviewed_by"`
	RejectionReason *string        `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy      *string        `json:"approved_by,omitempty" db:"approved_by"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// TransitionResult is the small result object lifecycle operations return.
// Message carries degraded-success warnings when a secondary effect
// (audit entry, notification) could not be delivered inline.
type TransitionResult struct {
	Success bool        `json:"success"`
	VisitID string      `json:"visit_id"`
	Status  VisitStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// VisitSummary is the redacted view exposed to family members. It never
// carries kardex text or other clinical internals.
type VisitSummary struct {
	VisitID         string    `json:"visit_id"`
	VisitDate       time.Time `json:"visit_date"`
	NurseName       string    `json:"nurse_name"`
	DurationMinutes int       `json:"duration_minutes"`
	StatusLabel     string    `json:"status_label"`
	Activities      []string  `json:"activities"`
}

func scanJSON(src, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
}
