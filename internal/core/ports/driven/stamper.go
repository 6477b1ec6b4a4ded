package driven

import (
	"context"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// Stamper renders final annotations onto a base PDF and returns a new,
// independent artifact. The base bytes are never mutated, so a later
// re-stamp after send-back always starts from the pristine original.
//
// Text annotations whose page index exceeds the page count are silently
// skipped. A signature image that decodes as neither PNG nor JPEG aborts
// the whole operation with domain.ErrUnsupportedImageFormat; no partial
// output is returned.
type Stamper interface {
	Stamp(ctx context.Context, base []byte, anns []*domain.Annotation, images map[string][]byte) ([]byte, error)
}
