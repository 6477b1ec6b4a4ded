package driven

import (
	"context"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// Notifier delivers lifecycle notifications. Dispatch is best-effort:
// callers enqueue after commit and never roll back on delivery failure.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) error
}
