package email

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/carelink/visit-api/internal/config"
)

// Service delivers e-mail copies of notifications. Delivery is always
// best-effort: a failed send never affects the persisted notification.
type Service interface {
	SendCustom(ctx context.Context, to, subject, body string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService returns a gomail-backed sender.
func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendCustom(_ context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

type disabledService struct{}

// NewDisabled returns a sender that silently drops everything, used when
// SMTP is not configured.
func NewDisabled() Service {
	return disabledService{}
}

func (disabledService) SendCustom(context.Context, string, string, string) error {
	return nil
}
