package driving

import (
	"context"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// AssignRequest routes a document to a recipient for signature
type AssignRequest struct {
	RecipientEmail string     `json:"recipient_email"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// AnnotationSetRequest carries a recipient's full annotation set for a
// draft save or a submission. Each call replaces the prior set of the
// same kind wholesale.
type AnnotationSetRequest struct {
	TextFields []domain.TextFieldInput `json:"text_fields"`
	Signatures []domain.SignatureInput `json:"signatures"`
}

// SendBackRequest reopens a signed pair for revision
type SendBackRequest struct {
	RecipientID string `json:"recipient_id"`
	Note        string `json:"note"`
}

// SubmitResult reports the outcome of a signature submission
type SubmitResult struct {
	Document    *domain.Document            `json:"document"`
	Assignment  *domain.RecipientAssignment `json:"assignment"`
	AllComplete bool                        `json:"all_complete"`
}

// LifecycleService owns the document-wide state machine. Every mutating
// operation takes the caller's auth context; ownership and assignment
// checks happen here, not in transport.
type LifecycleService interface {
	// Assign routes the document to a recipient (idempotent upsert).
	// Moves a draft document to sent_for_signing on first assignment.
	Assign(ctx context.Context, caller *domain.AuthContext, documentID string, req AssignRequest) (*domain.RecipientAssignment, error)

	// SaveDraft replaces the caller's draft annotation set for the document.
	SaveDraft(ctx context.Context, caller *domain.AuthContext, documentID string, req AnnotationSetRequest) error

	// SubmitSignature finalizes the caller's annotation set, stamps the
	// document with every recipient's final annotations, and advances the
	// document state. Stamping completes (or fails) before this returns.
	SubmitSignature(ctx context.Context, caller *domain.AuthContext, documentID string, req AnnotationSetRequest) (*SubmitResult, error)

	// SendBack reopens a signed pair for revision with a mandatory note.
	SendBack(ctx context.Context, caller *domain.AuthContext, documentID string, req SendBackRequest) error

	// Confirm finalizes a fully signed document. Terminal.
	Confirm(ctx context.Context, caller *domain.AuthContext, documentID string) (*domain.Document, error)
}
