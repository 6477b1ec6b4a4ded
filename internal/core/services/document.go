package services

import (
	"bytes"
	"context"
	"strings"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
	"github.com/quillflow/quillflow-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

var pdfMagic = []byte("%PDF-")

// pngMagic and jpegMagic are the leading bytes of the two accepted
// signature image formats.
var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xff, 0xd8}
)

// documentService implements the DocumentService interface
type documentService struct {
	documentStore   driven.DocumentStore
	assignmentStore driven.AssignmentStore
	annotationStore driven.AnnotationStore
	blobStore       driven.BlobStore
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documentStore driven.DocumentStore,
	assignmentStore driven.AssignmentStore,
	annotationStore driven.AnnotationStore,
	blobStore driven.BlobStore,
) driving.DocumentService {
	return &documentService{
		documentStore:   documentStore,
		assignmentStore: assignmentStore,
		annotationStore: annotationStore,
		blobStore:       blobStore,
	}
}

// Create stores the uploaded artifact and creates a draft document.
func (s *documentService) Create(ctx context.Context, caller *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.Document, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(req.Content) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(req.Content, pdfMagic) {
		return nil, domain.ErrInvalidInput
	}

	doc := domain.NewDocument(caller.UserID, title, "")
	doc.OriginalKey = originalArtifactKey(doc.ID)

	if err := s.blobStore.Write(ctx, doc.OriginalKey, req.Content); err != nil {
		return nil, err
	}
	if err := s.documentStore.Save(ctx, doc); err != nil {
		_ = s.blobStore.Delete(ctx, doc.OriginalKey)
		return nil, err
	}

	return doc, nil
}

// Get retrieves a document the caller may see, with its assignments.
func (s *documentService) Get(ctx context.Context, caller *domain.AuthContext, id string) (*domain.DocumentWithAssignments, error) {
	doc, err := s.visibleDocument(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignmentStore.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	return &domain.DocumentWithAssignments{
		Document:    doc,
		Assignments: assignments,
	}, nil
}

// ListOwned retrieves documents the caller created, newest first.
func (s *documentService) ListOwned(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error) {
	return s.documentStore.ListByOwner(ctx, caller.UserID, clampLimit(limit), offset)
}

// ListAssigned retrieves documents the caller is assigned to sign.
func (s *documentService) ListAssigned(ctx context.Context, caller *domain.AuthContext, limit, offset int) ([]*domain.Document, error) {
	return s.documentStore.ListByRecipient(ctx, caller.UserID, clampLimit(limit), offset)
}

// Download returns the named artifact's bytes for a visible document.
func (s *documentService) Download(ctx context.Context, caller *domain.AuthContext, id string, kind driving.ArtifactKind) ([]byte, error) {
	doc, err := s.visibleDocument(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	switch kind {
	case driving.ArtifactOriginal:
		return s.blobStore.Read(ctx, doc.OriginalKey)
	case driving.ArtifactSigned:
		if !doc.HasSignedArtifact() {
			return nil, domain.ErrArtifactMissing
		}
		return s.blobStore.Read(ctx, doc.SignedKey)
	default:
		return nil, domain.ErrInvalidInput
	}
}

// Annotations returns the caller's own draft annotation set.
func (s *documentService) Annotations(ctx context.Context, caller *domain.AuthContext, id string) ([]*domain.Annotation, error) {
	doc, err := s.documentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.assignmentStore.Get(ctx, doc.ID, caller.UserID); err != nil {
		return nil, domain.ErrNotAssigned
	}
	return s.annotationStore.ListDraft(ctx, doc.ID, caller.UserID)
}

// UploadSignatureImage stores a PNG or JPEG signature image and returns
// its blob key. Anything else is rejected up front rather than at
// stamping time.
func (s *documentService) UploadSignatureImage(ctx context.Context, caller *domain.AuthContext, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(data, pngMagic) && !bytes.HasPrefix(data, jpegMagic) {
		return "", domain.ErrUnsupportedImageFormat
	}

	key := signatureImageKey(caller.UserID, domain.GenerateID())
	if err := s.blobStore.Write(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes a draft document the caller owns, together with its
// dependent rows and blobs.
func (s *documentService) Delete(ctx context.Context, caller *domain.AuthContext, id string) error {
	doc, err := s.documentStore.Get(ctx, id)
	if err != nil {
		return err
	}
	if !doc.IsOwner(caller.UserID) {
		return domain.ErrAccessDenied
	}
	if doc.Status != domain.DocumentStatusDraft {
		return domain.ErrInvalidTransition
	}

	if err := s.annotationStore.DeleteByDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.assignmentStore.DeleteByDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.documentStore.Delete(ctx, doc.ID); err != nil {
		return err
	}
	_ = s.blobStore.Delete(ctx, doc.OriginalKey)
	return nil
}

// visibleDocument loads the document and enforces the visibility rule:
// owners always see their documents, anyone else needs an assignment row.
func (s *documentService) visibleDocument(ctx context.Context, caller *domain.AuthContext, id string) (*domain.Document, error) {
	doc, err := s.documentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsOwner(caller.UserID) {
		return doc, nil
	}
	if _, err := s.assignmentStore.Get(ctx, doc.ID, caller.UserID); err != nil {
		return nil, domain.ErrAccessDenied
	}
	return doc, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
