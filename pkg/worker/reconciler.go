package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
	auditservice "github.com/carelink/visit-api/internal/service/audit"
	"github.com/carelink/visit-api/internal/service/notification"
	"github.com/carelink/visit-api/pkg/logger"
	"github.com/carelink/visit-api/pkg/metrics"
)

type ReconcilerConfig struct {
	BatchSize    int
	PollInterval time.Duration
	RetryBackoff time.Duration
}

// Reconciler redelivers side effects that failed inline after a committed
// visit transition. Delivery is at-least-once: an effect is retried with
// exponential backoff until it lands, and consumers tolerate duplicates.
type Reconciler struct {
	outbox   repository.OutboxRepository
	auditor  *auditservice.Service
	notifier notification.Service
	config   ReconcilerConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewReconciler(
	outbox repository.OutboxRepository,
	auditor *auditservice.Service,
	notifier notification.Service,
	config ReconcilerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Reconciler {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 30 * time.Second
	}
	return &Reconciler{
		outbox:   outbox,
		auditor:  auditor,
		notifier: notifier,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run polls until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.processBatch(ctx)
		}
	}
}

func (r *Reconciler) processBatch(ctx context.Context) {
	effects, err := r.outbox.ListPending(ctx, r.config.BatchSize)
	if err != nil {
		r.logger.Error(err, "failed to list pending side effects")
		return
	}

	if pending, err := r.outbox.CountPending(ctx); err == nil && r.metrics != nil {
		r.metrics.OutboxPending.Set(float64(pending))
	}

	for _, effect := range effects {
		if err := r.deliver(ctx, effect); err != nil {
			r.logger.Error(err, "side effect redelivery failed",
				"effect_id", effect.ID.String(),
				"kind", string(effect.Kind),
				"retry_count", effect.RetryCount)
			if r.metrics != nil {
				r.metrics.OutboxFailed.Inc()
			}
			retryAt := time.Now().Add(r.backoff(effect.RetryCount))
			if merr := r.outbox.MarkFailed(ctx, effect.ID, err.Error(), retryAt); merr != nil {
				r.logger.Error(merr, "failed to record redelivery failure",
					"effect_id", effect.ID.String())
			}
			continue
		}

		if r.metrics != nil {
			r.metrics.OutboxDelivered.Inc()
		}
		if err := r.outbox.MarkDelivered(ctx, effect.ID); err != nil {
			r.logger.Error(err, "failed to mark side effect delivered",
				"effect_id", effect.ID.String())
		}
	}
}

func (r *Reconciler) deliver(ctx context.Context, effect *model.SideEffect) error {
	switch effect.Kind {
	case model.SideEffectAudit:
		var entry auditservice.Entry
		if err := json.Unmarshal(effect.Payload, &entry); err != nil {
			return fmt.Errorf("failed to decode audit payload: %w", err)
		}
		return r.auditor.Record(ctx, entry)
	case model.SideEffectNotification:
		var n model.Notification
		if err := json.Unmarshal(effect.Payload, &n); err != nil {
			return fmt.Errorf("failed to decode notification payload: %w", err)
		}
		return r.notifier.Dispatch(ctx, &n)
	default:
		return fmt.Errorf("unknown side effect kind %q", effect.Kind)
	}
}

func (r *Reconciler) backoff(retryCount int) time.Duration {
	shift := retryCount
	if shift > 6 {
		shift = 6
	}
	return r.config.RetryBackoff * time.Duration(1<<uint(shift))
}
