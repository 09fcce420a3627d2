// Package email provides outbound email delivery for reclamation
// notifications. Delivery goes through the configured SMTP server; when
// email is disabled a no-op sender is used so callers never branch.
package email

import (
	"context"

	"reclamation_backend/platform/config"
)

type Sender interface {
	SendSLAAlertEmail(ctx context.Context, toEmail, workerName, reclamationID, alertType, tier string, remainingHours int) error
	SendEscalationEmail(ctx context.Context, toEmail, workerName, reclamationID string, auto bool) error
	SendAssignmentEmail(ctx context.Context, toEmail, workerName, reclamationID string) error
}

type NoopSender struct{}

func (NoopSender) SendSLAAlertEmail(ctx context.Context, toEmail, workerName, reclamationID, alertType, tier string, remainingHours int) error {
	return nil
}

func (NoopSender) SendEscalationEmail(ctx context.Context, toEmail, workerName, reclamationID string, auto bool) error {
	return nil
}

func (NoopSender) SendAssignmentEmail(ctx context.Context, toEmail, workerName, reclamationID string) error {
	return nil
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
		cfg.GetAppBaseURL(),
	), nil
}
