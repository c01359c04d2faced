package notification

import (
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/frahmantamala/billing-reconciliation/internal"
)

// Mailer sends one message. Implementations are advisory: callers treat a
// send failure as a log line, never as a processing failure.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// SMTPMailer delivers through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	from     string
	password string
	logger   *slog.Logger
}

func NewSMTPMailer(cfg internal.NotificationConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		password: cfg.SMTPPassword,
		logger:   logger,
	}
}

func (m *SMTPMailer) SendEmail(to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		htmlBody + "\r\n")

	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, message); err != nil {
		m.logger.Error("smtp send failed", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	m.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}
