// Package mail sends plaintext notifications to email addresses. Delivery is
// best-effort: callers persist any state they depend on before dispatching,
// and a failed send never propagates to the API caller.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Notifier sends a plaintext message to an address. Fire-and-forget: no
// delivery guarantee is surfaced beyond the immediate transport error.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPNotifier delivers mail over a plain-auth SMTP connection.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPNotifier creates an SMTP-backed notifier.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers a plaintext message. Headers follow RFC 822 with CRLF line
// endings and a blank line before the body.
func (n *SMTPNotifier) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	headers := []string{
		fmt.Sprintf("From: %s", n.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}
	message := strings.Join(headers, "\r\n")

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := smtp.SendMail(addr, auth, n.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogNotifier writes outgoing mail to the logger instead of a mail server.
// Used in development and tests.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logger-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message and always succeeds.
func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("outgoing mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
