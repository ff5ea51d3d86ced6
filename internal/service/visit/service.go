package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/carelink/visit-api/pkg/errors"
	"github.com/carelink/visit-api/pkg/logger"
	"github.com/carelink/visit-api/pkg/metrics"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
	"github.com/carelink/visit-api/internal/service/audit"
	"github.com/carelink/visit-api/internal/service/authz"
)

// AuditRecorder appends immutable transition records.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// NotificationDispatcher fans out user-facing notifications.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *model.Notification) error
}

// Options tune engine behavior.
type Options struct {
	// MaxFamilyFanout bounds how many family notifications are sent inline
	// on approval; the remainder is deferred to the side-effect outbox.
	MaxFamilyFanout int
}

// Service is the visit lifecycle engine. Every operation takes an explicit
// caller identity, consults the guard before touching clinical data, and
// performs its primary state change as a single conditional write. Audit
// and notification writes are secondary: their failure never rolls back a
// committed transition (see applyEffects).
type Service struct {
	shifts   repository.ShiftRepository
	visits   repository.VisitRepository
	users    repository.UserRepository
	patients repository.PatientRepository
	outbox   repository.OutboxRepository
	guard    *authz.Guard
	auditor  AuditRecorder
	notifier NotificationDispatcher
	logger   *logger.Logger
	metrics  *metrics.Metrics
	opts     Options
}

func NewService(
	shifts repository.ShiftRepository,
	visits repository.VisitRepository,
	users repository.UserRepository,
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	guard *authz.Guard,
	auditor AuditRecorder,
	notifier NotificationDispatcher,
	logger *logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Service {
	if opts.MaxFamilyFanout <= 0 {
		opts.MaxFamilyFanout = 25
	}
	return &Service{
		shifts:   shifts,
		visits:   visits,
		users:    users,
		patients: patients,
		outbox:   outbox,
		guard:    guard,
		auditor:  auditor,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		opts:     opts,
	}
}

// CreateDraft turns a completed shift into a DRAFT visit. The visit's id
// is the shift's id, and the insert is existence-guarded so concurrent
// calls cannot create two visits for one shift.
func (s *Service) CreateDraft(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.TransitionResult, error) {
	shift, err := s.shifts.Get(ctx, shiftID)
	if err != nil {
		return nil, s.readErr("shift", err)
	}

	if err := s.guard.CanCreateVisit(identity, shift); err != nil {
		s.countTransition(model.AuditActionVisitCreated, "denied")
		return nil, err
	}

	if shift.Status != model.ShiftStatusCompleted {
		s.countTransition(model.AuditActionVisitCreated, "invalid")
		return nil, apperrors.InvalidStateTransition(
			fmt.Sprintf("shift %s is %s; documentation requires a completed shift", shift.ID, shift.Status))
	}

	now := time.Now()
	visit := &model.Visit{
		ID:          shift.ID,
		TenantID:    shift.TenantID,
		ShiftID:     shift.ID,
		PatientID:   shift.PatientID,
		NurseID:     shift.NurseID,
		Status:      model.VisitStatusDraft,
		Kardex:      model.Kardex{},
		Medications: model.MedicationList{},
		Tasks:       model.TaskList{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.visits.Insert(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.countTransition(model.AuditActionVisitCreated, "duplicate")
			return nil, apperrors.DuplicateResource("visit for this shift")
		}
		return nil, apperrors.Persistence(err)
	}
	s.countTransition(model.AuditActionVisitCreated, "ok")

	var warnings []string
	// ErrStale here means the back-reference was already set; with
	// visit id == shift id that can only be this visit.
	if err := s.shifts.SetVisitRef(ctx, shift.ID, visit.ID); err != nil && !errors.Is(err, repository.ErrStale) {
		s.logger.Error(err, "failed to set shift visit reference", "shift_id", shift.ID)
		warnings = append(warnings, "shift back-reference not updated")
	}

	intents := []effectIntent{
		auditIntent(audit.Entry{
			TenantID:   visit.TenantID,
			ActorID:    identity.UserID,
			ActorRole:  identity.Role,
			Action:     model.AuditActionVisitCreated,
			EntityType: model.AuditEntityVisit,
			EntityID:   visit.ID,
			Details:    model.AuditDetails{NewStatus: model.VisitStatusDraft},
			Origin:     identity.Origin,
		}),
	}
	warnings = append(warnings, s.applyEffects(ctx, intents)...)

	return transitionResult(visit, warnings), nil
}

// Submit moves a DRAFT or REJECTED visit to SUBMITTED and alerts every
// administrator in the tenant.
func (s *Service) Submit(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.TransitionResult, error) {
	visit, err := s.visits.Get(ctx, shiftID)
	if err != nil {
		return nil, s.readErr("visit", err)
	}

	if err := s.guard.CanEditVisit(identity, visit); err != nil {
		s.countTransition(model.AuditActionVisitSubmitted, "denied")
		return nil, err
	}

	next, ok := model.NextStatus(visit.Status, model.VisitEventSubmit)
	if !ok {
		s.countTransition(model.AuditActionVisitSubmitted, "invalid")
		return nil, apperrors.InvalidStateTransition(
			fmt.Sprintf("visit %s is %s and cannot be submitted", visit.ID, visit.Status))
	}

	if !visit.Kardex.HasObservations() {
		return nil, apperrors.Validation("kardex general observations are required before submission")
	}

	previous := visit.Status
	now := time.Now()
	visit.Status = next
	visit.SubmittedAt = &now
	visit.UpdatedAt = now

	if err := s.transition(visit, model.VisitEventSubmit)(ctx); err != nil {
		s.countTransition(model.AuditActionVisitSubmitted, "stale")
		return nil, err
	}
	s.countTransition(model.AuditActionVisitSubmitted, "ok")

	intents := []effectIntent{
		auditIntent(audit.Entry{
			TenantID:   visit.TenantID,
			ActorID:    identity.UserID,
			ActorRole:  identity.Role,
			Action:     model.AuditActionVisitSubmitted,
			EntityType: model.AuditEntityVisit,
			EntityID:   visit.ID,
			Details:    model.AuditDetails{PreviousStatus: previous, NewStatus: visit.Status},
			Origin:     identity.Origin,
		}),
	}

	var warnings []string
	admins, err := s.users.ListAdmins(ctx, visit.TenantID)
	if err != nil {
		s.logger.Error(err, "failed to list tenant admins", "tenant_id", visit.TenantID)
		warnings = append(warnings, "administrator notifications skipped")
	}
	for _, admin := range admins {
		intents = append(intents, notificationIntent(&model.Notification{
			TenantID:    visit.TenantID,
			RecipientID: admin.ID,
			Type:        model.NotificationTypeVisitPendingReview,
			Message:     fmt.Sprintf("Visit %s is awaiting review", visit.ID),
			EntityType:  model.AuditEntityVisit,
			EntityID:    visit.ID,
		}))
	}
	warnings = append(warnings, s.applyEffects(ctx, intents)...)

	return transitionResult(visit, warnings), nil
}

// Reject returns a SUBMITTED visit to the nurse with a reason. The caller
// must resolve, by lookup, to an administrator in the visit's tenant.
func (s *Service) Reject(ctx context.Context, identity model.CallerIdentity, shiftID, reason string) (*model.TransitionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}

	visit, reviewer, err := s.visitForReview(ctx, identity, shiftID, model.AuditActionVisitRejected)
	if err != nil {
		return nil, err
	}

	if _, ok := model.NextStatus(visit.Status, model.VisitEventReject); !ok {
		s.countTransition(model.AuditActionVisitRejected, "invalid")
		return nil, apperrors.InvalidStateTransition(
			fmt.Sprintf("visit %s is %s and cannot be rejected", visit.ID, visit.Status))
	}

	previous := visit.Status
	now := time.Now()
	visit.Status = model.VisitStatusRejected
	visit.RejectionReason = &reason
	visit.ReviewedAt = &now
	visit.ReviewedBy = &identity.UserID
	visit.UpdatedAt = now

	if err := s.transition(visit, model.VisitEventReject)(ctx); err != nil {
		s.countTransition(model.AuditActionVisitRejected, "stale")
		return nil, err
	}
	s.countTransition(model.AuditActionVisitRejected, "ok")

	intents := []effectIntent{
		auditIntent(audit.Entry{
			TenantID:   visit.TenantID,
			ActorID:    identity.UserID,
			ActorRole:  reviewer.Role,
			Action:     model.AuditActionVisitRejected,
			EntityType: model.AuditEntityVisit,
			EntityID:   visit.ID,
			Details:    model.AuditDetails{PreviousStatus: previous, NewStatus: visit.Status, Reason: reason},
			Origin:     identity.Origin,
		}),
		notificationIntent(&model.Notification{
			TenantID:    visit.TenantID,
			RecipientID: visit.NurseID,
			Type:        model.NotificationTypeVisitRejected,
			Message:     fmt.Sprintf("Visit %s was returned for changes: %s", visit.ID, reason),
			EntityType:  model.AuditEntityVisit,
			EntityID:    visit.ID,
		}),
	}
	warnings := s.applyEffects(ctx, intents)

	return transitionResult(visit, warnings), nil
}

// Approve is the terminal transition. Besides the nurse, every registered
// family member of the patient is notified that a summary is available.
func (s *Service) Approve(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.TransitionResult, error) {
	visit, reviewer, err := s.visitForReview(ctx, identity, shiftID, model.AuditActionVisitApproved)
	if err != nil {
		return nil, err
	}

	if _, ok := model.NextStatus(visit.Status, model.VisitEventApprove); !ok {
		s.countTransition(model.AuditActionVisitApproved, "invalid")
		return nil, apperrors.InvalidStateTransition(
			fmt.Sprintf("visit %s is %s and cannot be approved", visit.ID, visit.Status))
	}

	previous := visit.Status
	now := time.Now()
	visit.Status = model.VisitStatusApproved
	visit.ApprovedAt = &now
	visit.ApprovedBy = &identity.UserID
	visit.ReviewedAt = &now
	visit.ReviewedBy = &identity.UserID
	visit.UpdatedAt = now

	if err := s.transition(visit, model.VisitEventApprove)(ctx); err != nil {
		s.countTransition(model.AuditActionVisitApproved, "stale")
		return nil, err
	}
	s.countTransition(model.AuditActionVisitApproved, "ok")

	intents := []effectIntent{
		auditIntent(audit.Entry{
			TenantID:   visit.TenantID,
			ActorID:    identity.UserID,
			ActorRole:  reviewer.Role,
			Action:     model.AuditActionVisitApproved,
			EntityType: model.AuditEntityVisit,
			EntityID:   visit.ID,
			Details:    model.AuditDetails{PreviousStatus: previous, NewStatus: visit.Status},
			Origin:     identity.Origin,
		}),
		notificationIntent(&model.Notification{
			TenantID:    visit.TenantID,
			RecipientID: visit.NurseID,
			Type:        model.NotificationTypeVisitApproved,
			Message:     fmt.Sprintf("Visit %s was approved", visit.ID),
			EntityType:  model.AuditEntityVisit,
			EntityID:    visit.ID,
		}),
	}

	var warnings []string
	intents, familyWarnings := s.appendFamilyFanout(ctx, intents, visit)
	warnings = append(warnings, familyWarnings...)
	warnings = append(warnings, s.applyEffects(ctx, intents)...)

	return transitionResult(visit, warnings), nil
}

// UpdateDocumentation edits the clinical note while the visit is still
// DRAFT or REJECTED. It is not a lifecycle transition and is not audited.
func (s *Service) UpdateDocumentation(ctx context.Context, identity model.CallerIdentity, shiftID string, update DocumentationUpdate) (*model.Visit, error) {
	visit, err := s.visits.Get(ctx, shiftID)
	if err != nil {
		return nil, s.readErr("visit", err)
	}

	if err := s.guard.CanEditVisit(identity, visit); err != nil {
		return nil, err
	}

	if visit.Status != model.VisitStatusDraft && visit.Status != model.VisitStatusRejected {
		return nil, apperrors.InvalidStateTransition(
			fmt.Sprintf("visit %s is %s and can no longer be edited", visit.ID, visit.Status))
	}

	visit.Kardex = update.Kardex
	visit.Vitals = update.Vitals
	visit.Medications = update.Medications
	visit.Tasks = update.Tasks
	visit.UpdatedAt = time.Now()

	if err := s.visits.UpdateDocumentation(ctx, visit); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, apperrors.InvalidStateTransition("visit state changed concurrently")
		}
		return nil, apperrors.Persistence(err)
	}
	return visit, nil
}

// GetVisit returns the full clinical record to the assigned nurse or a
// tenant administrator.
func (s *Service) GetVisit(ctx context.Context, identity model.CallerIdentity, shiftID string) (*model.Visit, error) {
	visit, err := s.visits.Get(ctx, shiftID)
	if err != nil {
		return nil, s.readErr("visit", err)
	}

	var reader *model.User
	if identity.UserID != visit.NurseID {
		reader, err = s.users.Get(ctx, identity.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Persistence(err)
		}
	}
	if err := s.guard.CanReadVisit(identity, reader, visit); err != nil {
		return nil, err
	}
	return visit, nil
}

// DocumentationUpdate carries the editable clinical content of a visit.
type DocumentationUpdate struct {
	Kardex      model.Kardex         `json:"kardex"`
	Vitals      model.VitalsSnapshot `json:"vitals"`
	Medications model.MedicationList `json:"medications"`
	Tasks       model.TaskList       `json:"tasks"`
}

// visitForReview loads the visit and resolves the caller to a reviewing
// administrator, enforcing the admin check shared by Reject and Approve.
func (s *Service) visitForReview(ctx context.Context, identity model.CallerIdentity, shiftID string, action model.AuditAction) (*model.Visit, *model.User, error) {
	visit, err := s.visits.Get(ctx, shiftID)
	if err != nil {
		return nil, nil, s.readErr("visit", err)
	}

	reviewer, err := s.users.Get(ctx, identity.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.Persistence(err)
	}
	if err := s.guard.CanReviewVisit(identity, reviewer, visit); err != nil {
		s.countTransition(action, "denied")
		return nil, nil, err
	}
	return visit, reviewer, nil
}

// transition wraps the conditional status write; a stale predicate means a
// concurrent caller won the race and surfaces as InvalidStateTransition.
func (s *Service) transition(visit *model.Visit, event model.VisitEvent) func(context.Context) error {
	return func(ctx context.Context) error {
		err := s.visits.Transition(ctx, visit, model.SourceStatuses(event))
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrStale) {
			return apperrors.InvalidStateTransition("visit state changed concurrently")
		}
		return apperrors.Persistence(err)
	}
}

func (s *Service) readErr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Persistence(err)
}

func (s *Service) countTransition(action model.AuditAction, outcome string) {
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(string(action), outcome).Inc()
	}
}

func transitionResult(visit *model.Visit, warnings []string) *model.TransitionResult {
	return &model.TransitionResult{
		Success: true,
		VisitID: visit.ID,
		Status:  visit.Status,
		Message: strings.Join(warnings, "; "),
	}
}
