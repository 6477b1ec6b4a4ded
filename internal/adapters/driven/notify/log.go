// Package notify provides Notifier implementations. The log notifier is the
// default delivery channel; an SMTP or webhook notifier can replace it
// without touching the worker.
package notify

import (
	"context"
	"log/slog"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the structured log instead of
// delivering them externally.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs deliveries. A nil logger
// falls back to slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the notification
func (n *LogNotifier) Send(ctx context.Context, notification domain.Notification) error {
	attrs := []any{
		"recipient", notification.Recipient,
		"kind", string(notification.Kind),
		"document_id", notification.DocumentID,
		"document_title", notification.DocumentTitle,
	}
	if notification.Note != "" {
		attrs = append(attrs, "note", notification.Note)
	}
	if notification.Secret != "" {
		attrs = append(attrs, "has_secret", true)
	}

	n.logger.InfoContext(ctx, "notification dispatched", attrs...)
	return nil
}
