package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/visit-api/internal/email"
	"github.com/carelink/visit-api/internal/model"
	"github.com/carelink/visit-api/internal/repository"
	"github.com/carelink/visit-api/pkg/logger"
	"github.com/carelink/visit-api/pkg/messaging"
)

const eventsChannel = "notifications"

// Service fans user-facing notifications out to their recipients.
type Service interface {
	Dispatch(ctx context.Context, n *model.Notification) error
}

type service struct {
	repo     repository.NotificationRepository
	users    repository.UserRepository
	emailSvc email.Service
	broker   messaging.Broker
	logger   *logger.Logger
}

func NewService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	emailSvc email.Service,
	broker messaging.Broker,
	logger *logger.Logger,
) Service {
	return &service{
		repo:     repo,
		users:    users,
		emailSvc: emailSvc,
		broker:   broker,
		logger:   logger,
	}
}

// Dispatch persists the notification and then attempts best-effort
// delivery over the broker and e-mail. Only the persistence failure is
// returned; delivery failures are logged and left to the pub/sub
// consumers' own retry behavior.
func (s *service) Dispatch(ctx context.Context, n *model.Notification) error {
	if err := s.validate(n); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.Read = false

	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if s.broker != nil {
		if err := s.broker.Publish(ctx, eventsChannel, n); err != nil {
			s.logger.Error(err, "failed to publish notification event",
				"notification_id", n.ID.String())
		}
	}

	s.sendEmailCopy(ctx, n)
	return nil
}

func (s *service) sendEmailCopy(ctx context.Context, n *model.Notification) {
	recipient, err := s.users.Get(ctx, n.RecipientID)
	if err != nil || recipient.Email == "" {
		return
	}

	subject := fmt.Sprintf("CareLink: %s", subjectFor(n.Type))
	if err := s.emailSvc.SendCustom(ctx, recipient.Email, subject, n.Message); err != nil {
		s.logger.Error(err, "failed to send notification e-mail",
			"notification_id", n.ID.String())
	}
}

func subjectFor(t model.NotificationType) string {
	switch t {
	case model.NotificationTypeVisitPendingReview:
		return "a visit is awaiting review"
	case model.NotificationTypeVisitRejected:
		return "a visit was returned for changes"
	case model.NotificationTypeVisitApproved:
		return "a visit was approved"
	case model.NotificationTypeVisitSummaryReady:
		return "a new visit summary is available"
	default:
		return string(t)
	}
}

func (s *service) validate(n *model.Notification) error {
	if n.TenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if n.RecipientID == "" {
		return fmt.Errorf("recipient ID is required")
	}
	if n.Type == "" {
		return fmt.Errorf("type is required")
	}
	if n.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}
