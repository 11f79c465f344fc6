package services

import (
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"imovia/marketplace-api/config"
	"imovia/marketplace-api/utils"
)

// Mailer sends transactional email (reset codes, opt-in confirmations).
// Delivery failures are the caller's to log; nothing here retries.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewMailer builds an SMTP mailer from config. Auth is skipped when no
// user is configured (local relay).
func NewMailer(cfg *config.Config) Mailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}

	return &smtpMailer{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.SMTPFrom,
	}
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	headers := []string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// LogMailer is a drop-in used in development and tests: it records instead
// of delivering. Safe for concurrent sends.
type LogMailer struct {
	logger *utils.Logger

	mu   sync.Mutex
	sent []string
}

func NewLogMailer(logger *utils.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	m.logger.Info("Email suppressed (log mailer)", "to", to, "subject", subject)
	return nil
}

// Sent returns the recipients of every recorded send.
func (m *LogMailer) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}
