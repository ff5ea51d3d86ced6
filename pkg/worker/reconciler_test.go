package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/visit-api/pkg/logger"

	"github.com/carelink/visit-api/internal/model"
	auditservice "github.com/carelink/visit-api/internal/service/audit"
)

type fakeOutbox struct {
	effects   []*model.SideEffect
	delivered []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeOutbox) Create(_ context.Context, e *model.SideEffect) error {
	f.effects = append(f.effects, e)
	return nil
}

func (f *fakeOutbox) ListPending(_ context.Context, limit int) ([]*model.SideEffect, error) {
	var out []*model.SideEffect
	for _, e := range f.effects {
		if e.Status == model.SideEffectStatusPending {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkDelivered(_ context.Context, id uuid.UUID) error {
	f.delivered = append(f.delivered, id)
	for _, e := range f.effects {
		if e.ID == id {
			e.Status = model.SideEffectStatusDelivered
		}
	}
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string, retryAt time.Time) error {
	f.failed = append(f.failed, id)
	for _, e := range f.effects {
		if e.ID == id {
			e.RetryCount++
			e.LastError = &lastError
			e.RetryAt = &retryAt
		}
	}
	return nil
}

func (f *fakeOutbox) CountPending(_ context.Context) (int64, error) {
	var n int64
	for _, e := range f.effects {
		if e.Status == model.SideEffectStatusPending {
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	logs []*model.AuditLog
	err  error
}

func (f *fakeAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) ListWithPagination(context.Context, string, int, int) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}

type fakeNotifier struct {
	sent []*model.Notification
	err  error
}

func (f *fakeNotifier) Dispatch(_ context.Context, n *model.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func auditEffect(t *testing.T) *model.SideEffect {
	t.Helper()
	payload, err := json.Marshal(auditservice.Entry{
		TenantID: "T1",
		ActorID:  "A1",
		Action:   model.AuditActionVisitApproved,
		EntityID: "S1",
	})
	require.NoError(t, err)
	return &model.SideEffect{
		ID:        uuid.New(),
		TenantID:  "T1",
		Kind:      model.SideEffectAudit,
		Payload:   payload,
		Status:    model.SideEffectStatusPending,
		CreatedAt: time.Now(),
	}
}

func notificationEffect(t *testing.T) *model.SideEffect {
	t.Helper()
	payload, err := json.Marshal(&model.Notification{
		ID:          uuid.New(),
		TenantID:    "T1",
		RecipientID: "F1",
		Type:        model.NotificationTypeVisitSummaryReady,
		Message:     "A new visit summary is available",
		EntityType:  model.AuditEntityVisit,
		EntityID:    "S1",
	})
	require.NoError(t, err)
	return &model.SideEffect{
		ID:        uuid.New(),
		TenantID:  "T1",
		Kind:      model.SideEffectNotification,
		Payload:   payload,
		Status:    model.SideEffectStatusPending,
		CreatedAt: time.Now(),
	}
}

func newTestReconciler(outbox *fakeOutbox, auditRepo *fakeAuditRepo, notifier *fakeNotifier) *Reconciler {
	quiet := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return NewReconciler(outbox, auditservice.NewService(auditRepo), notifier, ReconcilerConfig{
		BatchSize:    10,
		PollInterval: time.Second,
		RetryBackoff: time.Second,
	}, quiet, nil)
}

func TestProcessBatchDelivers(t *testing.T) {
	outbox := &fakeOutbox{}
	auditRepo := &fakeAuditRepo{}
	notifier := &fakeNotifier{}
	outbox.effects = append(outbox.effects, auditEffect(t), notificationEffect(t))

	r := newTestReconciler(outbox, auditRepo, notifier)
	r.processBatch(context.Background())

	assert.Len(t, auditRepo.logs, 1)
	assert.Equal(t, model.AuditActionVisitApproved, auditRepo.logs[0].Action)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, "F1", notifier.sent[0].RecipientID)
	assert.Len(t, outbox.delivered, 2)
	assert.Empty(t, outbox.failed)

	pending, err := outbox.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestProcessBatchRecordsFailure(t *testing.T) {
	outbox := &fakeOutbox{}
	auditRepo := &fakeAuditRepo{err: fmt.Errorf("audit store down")}
	effect := auditEffect(t)
	outbox.effects = append(outbox.effects, effect)

	r := newTestReconciler(outbox, auditRepo, &fakeNotifier{})
	r.processBatch(context.Background())

	assert.Empty(t, outbox.delivered)
	require.Len(t, outbox.failed, 1)
	assert.Equal(t, 1, effect.RetryCount)
	require.NotNil(t, effect.LastError)
	assert.Contains(t, *effect.LastError, "audit store down")
	assert.Equal(t, model.SideEffectStatusPending, effect.Status)
}

func TestProcessBatchSkipsMalformedPayload(t *testing.T) {
	outbox := &fakeOutbox{}
	outbox.effects = append(outbox.effects, &model.SideEffect{
		ID:        uuid.New(),
		TenantID:  "T1",
		Kind:      model.SideEffectKind("bogus"),
		Payload:   json.RawMessage(`{}`),
		Status:    model.SideEffectStatusPending,
		CreatedAt: time.Now(),
	})

	r := newTestReconciler(outbox, &fakeAuditRepo{}, &fakeNotifier{})
	r.processBatch(context.Background())

	assert.Empty(t, outbox.delivered)
	assert.Len(t, outbox.failed, 1)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	r := newTestReconciler(&fakeOutbox{}, &fakeAuditRepo{}, &fakeNotifier{})

	assert.Equal(t, time.Second, r.backoff(0))
	assert.Equal(t, 2*time.Second, r.backoff(1))
	assert.Equal(t, 8*time.Second, r.backoff(3))
	assert.Equal(t, 64*time.Second, r.backoff(6))
	assert.Equal(t, 64*time.Second, r.backoff(20))
}
