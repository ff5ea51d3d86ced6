package visit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/service/audit"
)

// effectIntent is one secondary write owed after a committed transition.
// Intents are computed up front and applied in order; a failed intent is
// queued in the side-effect outbox for at-least-once redelivery and
// surfaced to the caller as a degraded-success warning. Consumers must
// tolerate duplicate deliveries.
type effectIntent struct {
	kind         model.SideEffectKind
	audit        *audit.Entry
	notification *model.Notification
}

func auditIntent(entry audit.Entry) effectIntent {
	return effectIntent{kind: model.SideEffectAudit, audit: &entry}
}

func notificationIntent(n *model.Notification) effectIntent {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return effectIntent{kind: model.SideEffectNotification, notification: n}
}

func (s *Service) applyEffects(ctx context.Context, intents []effectIntent) []string {
	var warnings []string
	for _, intent := range intents {
		var err error
		switch intent.kind {
		case model.SideEffectAudit:
			err = s.auditor.Record(ctx, *intent.audit)
		case model.SideEffectNotification:
			err = s.notifier.Dispatch(ctx, intent.notification)
		}
		if err == nil {
			continue
		}

		if s.metrics != nil {
			s.metrics.SideEffectFailures.WithLabelValues(string(intent.kind)).Inc()
		}
		s.logger.Error(err, "secondary effect failed after committed transition",
			"kind", string(intent.kind))

		if qerr := s.enqueueEffect(ctx, intent); qerr != nil {
			s.logger.Error(qerr, "failed to queue side effect for redelivery",
				"kind", string(intent.kind))
			warnings = append(warnings, fmt.Sprintf("%s delivery failed", intent.kind))
		} else {
			warnings = append(warnings, fmt.Sprintf("%s deferred for redelivery", intent.kind))
		}
	}
	return warnings
}

func (s *Service) enqueueEffect(ctx context.Context, intent effectIntent) error {
	var (
		payload  []byte
		tenantID string
		err      error
	)
	switch intent.kind {
	case model.SideEffectAudit:
		payload, err = json.Marshal(intent.audit)
		tenantID = intent.audit.TenantID
	case model.SideEffectNotification:
		payload, err = json.Marshal(intent.notification)
		tenantID = intent.notification.TenantID
	}
	if err != nil {
		return fmt.Errorf("failed to marshal side effect: %w", err)
	}

	return s.outbox.Create(ctx, &model.SideEffect{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Kind:      intent.kind,
		Payload:   payload,
		Status:    model.SideEffectStatusPending,
		CreatedAt: time.Now(),
	})
}

// appendFamilyFanout adds one summary notification per registered family
// member. The fan-out is bounded: members beyond MaxFamilyFanout are not
// notified inline but deferred straight to the outbox.
func (s *Service) appendFamilyFanout(ctx context.Context, intents []effectIntent, visit *model.Visit) ([]effectIntent, []string) {
	var warnings []string

	patient, err := s.patients.Get(ctx, visit.PatientID)
	if err != nil {
		s.logger.Error(err, "failed to load patient for family fan-out",
			"patient_id", visit.PatientID)
		return intents, append(warnings, "family notifications skipped")
	}

	for i, memberID := range patient.FamilyMembers {
		n := &model.Notification{
			TenantID:    visit.TenantID,
			RecipientID: memberID,
			Type:        model.NotificationTypeVisitSummaryReady,
			Message:     fmt.Sprintf("A new visit summary for %s is available", patient.Name),
			EntityType:  model.AuditEntityVisit,
			EntityID:    visit.ID,
		}
		if i < s.opts.MaxFamilyFanout {
			intents = append(intents, notificationIntent(n))
			continue
		}
		if err := s.enqueueEffect(ctx, notificationIntent(n)); err != nil {
			s.logger.Error(err, "failed to defer family notification",
				"recipient_id", memberID)
			warnings = append(warnings, "some family notifications failed")
		}
	}
	if len(patient.FamilyMembers) > s.opts.MaxFamilyFanout {
		s.logger.Warn("family fan-out exceeded inline bound, remainder deferred",
			"patient_id", patient.ID,
			"family_members", len(patient.FamilyMembers),
			"bound", s.opts.MaxFamilyFanout)
	}
	return intents, warnings
}
