package driven

import (
	"context"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByOwner retrieves all documents owned by a user, newest first
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)

	// ListByRecipient retrieves all documents the user is assigned to sign,
	// newest first
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*domain.Document, error)

	// Delete deletes a document and its dependent rows
	Delete(ctx context.Context, id string) error

	// CountByOwner returns the document count for an owner
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// AssignmentStore handles recipient assignment persistence (PostgreSQL).
// The (document_id, recipient_id) pair is unique; Upsert resolves concurrent
// duplicate assignment at the storage layer.
type AssignmentStore interface {
	// Upsert creates the pair or replaces its status, due date, signed_at and
	// revision note if it already exists
	Upsert(ctx context.Context, a *domain.RecipientAssignment) error

	// Get retrieves the assignment for a (document, recipient) pair
	Get(ctx context.Context, documentID, recipientID string) (*domain.RecipientAssignment, error)

	// ListByDocument retrieves all assignments for a document, oldest first
	ListByDocument(ctx context.Context, documentID string) ([]*domain.RecipientAssignment, error)

	// ListDueBefore retrieves pending/draft assignments whose due date falls
	// before the cutoff (for reminders)
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.RecipientAssignment, error)

	// DeleteByDocument deletes all assignments for a document
	DeleteByDocument(ctx context.Context, documentID string) error
}

// AnnotationStore handles annotation persistence (PostgreSQL). Draft and
// final sets for a pair are replaced wholesale, never patched, so concurrent
// retries cannot leave a mixed set behind.
type AnnotationStore interface {
	// ReplaceDraft atomically replaces the pair's draft annotations
	ReplaceDraft(ctx context.Context, documentID, recipientID string, anns []*domain.Annotation) error

	// ReplaceFinal atomically replaces the pair's final annotations
	ReplaceFinal(ctx context.Context, documentID, recipientID string, anns []*domain.Annotation) error

	// ListDraft retrieves the pair's draft annotations in insertion order
	ListDraft(ctx context.Context, documentID, recipientID string) ([]*domain.Annotation, error)

	// ListFinalByDocument retrieves every final annotation across all
	// recipients of the document, ordered by recipient then insertion order
	ListFinalByDocument(ctx context.Context, documentID string) ([]*domain.Annotation, error)

	// DeleteByDocument deletes all annotations for a document
	DeleteByDocument(ctx context.Context, documentID string) error
}
