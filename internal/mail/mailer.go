// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package mail turns mail events into plain-text messages and delivers them
// over SMTP. Without an SMTP host, messages are written to the log.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/logging"
)

const dialTimeout = 30 * time.Second

// Message is a plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string

	// UnsubscribeURL adds List-Unsubscribe headers when set.
	UnsubscribeURL string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTPMailer, or a LogMailer when cfg.Host is empty.
func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.Host == "" {
		logging.Warn().Msg("SMTP host not configured, mails will only be logged")
		return LogMailer{}
	}
	return &SMTPMailer{cfg: *cfg}
}

// LogMailer logs messages instead of sending them.
type LogMailer struct{}

// Send logs the recipient and subject.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	logging.Ctx(ctx).Info().
		Str("to", logging.SanitizeEmail(msg.To)).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Body)).
		Msg("Mail not sent (no SMTP host)")
	return nil
}

// SMTPMailer sends through a single SMTP relay, upgrading with STARTTLS
// when UseTLS is set.
type SMTPMailer struct {
	cfg config.MailConfig
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // closed by client.Quit on success
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // best effort

	if m.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(&m.cfg, &msg, time.Now()))); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// The message is accepted once Data is closed.
	_ = client.Quit() //nolint:errcheck // see above
	return nil
}

// buildMessage renders headers and body with CRLF line endings.
func buildMessage(cfg *config.MailConfig, msg *Message, now time.Time) string {
	var b strings.Builder

	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Analytodon"
	}
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	if cfg.SupportEmail != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", cfg.SupportEmail)
	}
	if msg.UnsubscribeURL != "" {
		fmt.Fprintf(&b, "List-Unsubscribe: <%s>\r\n", msg.UnsubscribeURL)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return b.String()
}
