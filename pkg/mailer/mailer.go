package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/pkg/config"
)

// Mailer delivers transactional notifications.
type Mailer interface {
	Send(to, subject, body string) error
}

// New returns an SMTP mailer when enabled, otherwise a log-only mailer
// so development environments never need an SMTP server.
func New(cfg config.MailerConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return &logMailer{logger: logger}
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg config.MailerConfig
}

func (m *smtpMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) Send(to, subject, body string) error {
	m.logger.Info("mail suppressed (mailer disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
