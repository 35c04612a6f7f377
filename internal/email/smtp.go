package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/netraseva/intake-api/internal/config"
)

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *smtpService) SendApprovalNotice(_ context.Context, to, name, role string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour %s role has been approved. You can now log in to the screening app.\n",
		name, role,
	)
	return s.send(to, "Role approved", body)
}

func (s *smtpService) SendRegistrationReceived(_ context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour registration was received and is awaiting admin approval.\n",
		name,
	)
	return s.send(to, "Registration received", body)
}
