package driving

import (
	"context"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// CreateDocumentRequest uploads a new document
type CreateDocumentRequest struct {
	Title   string `json:"title"`
	Content []byte `json:"-"` // PDF bytes from the multipart upload
}

// ArtifactKind selects which artifact of a document to download
type ArtifactKind string

const (
	ArtifactOriginal ArtifactKind = "original"
	ArtifactSigned   ArtifactKind = "signed"
)

// DocumentService provides document CRUD and artifact access with
// visibility rules: owners see their own documents; a non-owner sees a
// document only if an assignment row exists for them.
type DocumentService interface {
	// Create stores the uploaded artifact and creates a draft document.
	Create(ctx context.Context, caller *domain.AuthContext, req CreateDocumentRequest) (*domain.Document, error)

	// Get retrieves a document the caller may see.
	Get(ctx context.Context, caller *domain.AuthContext, id string) (*domain.DocumentWithAssignments, error)

	// ListOwned retrieves documents the caller created.
	ListOwned(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error)

	// ListAssigned retrieves documents the caller is assigned to sign.
	ListAssigned(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error)

	// Download returns the named artifact's bytes for a visible document.
	Download(ctx context.Context, caller *domain.AuthContext, id string, kind ArtifactKind) ([]byte, error)

	// Annotations returns the caller's draft annotation set for the document.
	Annotations(ctx context.Context, caller *domain.AuthContext, id string) ([]*domain.Annotation, error)

	// UploadSignatureImage stores a signature image for later placement and
	// returns its blob key.
	UploadSignatureImage(ctx context.Context, caller *domain.AuthContext, data []byte) (string, error)

	// Delete removes a draft document the caller owns.
	Delete(ctx context.Context, caller *domain.AuthContext, id string) error
}
