package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface over a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host       string
	port       int
	username   string
	password   string
	fromName   string
	fromEmail  string
	appBaseURL string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName, appBaseURL string) *SMTPSender {
	return &SMTPSender{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		fromName:   fromName,
		fromEmail:  fromEmail,
		appBaseURL: appBaseURL,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) reclamationURL(reclamationID string) string {
	return fmt.Sprintf("%s/reclamations/%s", s.appBaseURL, reclamationID)
}

func (s *SMTPSender) SendSLAAlertEmail(ctx context.Context, toEmail, workerName, reclamationID, alertType, tier string, remainingHours int) error {
	content, err := renderEmailTemplate("sla_alert.html", slaAlertEmailData{
		baseEmailData: baseEmailData{
			Title:    "Échéance SLA proche",
			Heading:  "Échéance SLA proche",
			CTALabel: "Ouvrir la réclamation",
			CTAURL:   s.reclamationURL(reclamationID),
		},
		WorkerName:     workerName,
		ReclamationID:  reclamationID,
		AlertType:      alertType,
		Tier:           tier,
		RemainingHours: remainingHours,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectSLAAlertFmt, alertType), content)
}

func (s *SMTPSender) SendEscalationEmail(ctx context.Context, toEmail, workerName, reclamationID string, auto bool) error {
	heading := "Réclamation escaladée"
	if auto {
		heading = "Réclamation escaladée automatiquement"
	}
	content, err := renderEmailTemplate("escalation.html", escalationEmailData{
		baseEmailData: baseEmailData{
			Title:    heading,
			Heading:  heading,
			CTALabel: "Ouvrir la réclamation",
			CTAURL:   s.reclamationURL(reclamationID),
		},
		WorkerName:    workerName,
		ReclamationID: reclamationID,
		Auto:          auto,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectEscalation, content)
}

func (s *SMTPSender) SendAssignmentEmail(ctx context.Context, toEmail, workerName, reclamationID string) error {
	content, err := renderEmailTemplate("assignment.html", assignmentEmailData{
		baseEmailData: baseEmailData{
			Title:    "Nouvelle réclamation assignée",
			Heading:  "Nouvelle réclamation assignée",
			CTALabel: "Ouvrir la réclamation",
			CTAURL:   s.reclamationURL(reclamationID),
		},
		WorkerName:    workerName,
		ReclamationID: reclamationID,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAssignment, content)
}
