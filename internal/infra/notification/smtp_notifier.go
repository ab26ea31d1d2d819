package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"geodex/internal/domain/service"

	"github.com/pkg/errors"
)

// smtpNotifier delivers subscriber messages over plain SMTP.
type smtpNotifier struct {
	addr     string
	from     string
	auth     smtp.Auth
	baseURL  string
	logger   *slog.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an SMTP-backed notifier. Auth is only used when a
// username is configured.
func NewSMTPNotifier(host string, port int, from, username, password, baseURL string, logger *slog.Logger) service.Notifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &smtpNotifier{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		auth:     auth,
		baseURL:  baseURL,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Send delivers a change notification to one recipient.
func (n *smtpNotifier) Send(ctx context.Context, recipient string, summary service.EventSummary) error {
	return n.deliver(ctx, recipient, changeSubject(summary.Kind), changeBody(summary, n.baseURL))
}

// SendConfirmation delivers a confirmation request carrying a token link.
func (n *smtpNotifier) SendConfirmation(ctx context.Context, recipient, subject, confirmURL string) error {
	return n.deliver(ctx, recipient, subject, confirmationBody(confirmURL))
}

func (n *smtpNotifier) deliver(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := formatMessage(n.from, recipient, subject, body)

	if err := n.sendMail(n.addr, n.auth, n.from, []string{recipient}, msg); err != nil {
		n.logger.Warn("SMTP delivery failed",
			slog.String("recipient", recipient),
			slog.String("error", err.Error()),
		)

		// SMTP failures are transient by default: connection refused,
		// greylisting, temporary 4xx replies. The dispatcher retries them.
		return service.Retryable(errors.Wrap(err, "smtp send failed"))
	}

	return nil
}

func formatMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return []byte(b.String())
}
