package notification

import (
	"context"
	"log/slog"

	"geodex/internal/domain/service"
)

// logNotifier writes messages to the log instead of sending them. Used in
// development and tests.
type logNotifier struct {
	baseURL string
	logger  *slog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(baseURL string, logger *slog.Logger) service.Notifier {
	return &logNotifier{
		baseURL: baseURL,
		logger:  logger,
	}
}

func (n *logNotifier) Send(_ context.Context, recipient string, summary service.EventSummary) error {
	n.logger.Info("[LogNotifier] change notification",
		slog.String("recipient", recipient),
		slog.String("subject", changeSubject(summary.Kind)),
		slog.String("body", changeBody(summary, n.baseURL)),
	)

	return nil
}

func (n *logNotifier) SendConfirmation(_ context.Context, recipient, subject, confirmURL string) error {
	n.logger.Info("[LogNotifier] confirmation request",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", confirmationBody(confirmURL)),
	)

	return nil
}
