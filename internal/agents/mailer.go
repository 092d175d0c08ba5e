package agents

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Configured reports whether enough settings are present to send mail
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPMailer delivers outreach over SMTP, upgrading to TLS when the server offers it
type SMTPMailer struct {
	config SMTPConfig
	logger zerolog.Logger
	// send is replaceable in tests
	send func(ctx context.Context, to string, msg []byte) error
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(config SMTPConfig, logger zerolog.Logger) *SMTPMailer {
	if config.Port == 0 {
		config.Port = 587
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	m := &SMTPMailer{config: config, logger: logger.With().Str("component", "mailer").Logger()}
	m.send = m.deliver
	return m
}

// Send delivers one message
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) (bool, string) {
	if strings.TrimSpace(to) == "" {
		return false, "candidate has no email address"
	}

	msg := buildMessage(m.config.From, to, subject, body, time.Now())
	if err := m.send(ctx, to, msg); err != nil {
		m.logger.Warn().Err(err).Str("to", to).Msg("outreach delivery failed")
		return false, fmt.Sprintf("delivery failed: %v", err)
	}

	m.logger.Info().Str("to", to).Msg("outreach delivered")
	return true, fmt.Sprintf("Email sent to %s", to)
}

func (m *SMTPMailer) deliver(ctx context.Context, to string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.config.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if m.config.Username != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := c.Mail(m.config.From); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return c.Quit()
}

// buildMessage renders a plain-text RFC 5322 message
func buildMessage(from, to, subject, body string, date time.Time) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	sb.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogMailer records outreach in the log instead of sending it.
// It is used when SMTP is not configured.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a logging mailer
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

// Send logs the message and reports success
func (m *LogMailer) Send(_ context.Context, to, subject, body string) (bool, string) {
	if strings.TrimSpace(to) == "" {
		return false, "candidate has no email address"
	}
	m.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_chars", len(body)).
		Msg("outreach recorded (SMTP not configured)")
	return true, fmt.Sprintf("Email to %s recorded (SMTP not configured)", to)
}

// NewMailer returns an SMTP mailer when config is complete, otherwise a logging mailer
func NewMailer(config SMTPConfig, logger zerolog.Logger) Mailer {
	if config.Configured() {
		return NewSMTPMailer(config, logger)
	}
	return NewLogMailer(logger)
}
