package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
	"github.com/quillflow/quillflow-core/internal/core/ports/driving"
)

// Ensure lifecycleService implements LifecycleService
var _ driving.LifecycleService = (*lifecycleService)(nil)

// stampLockTTL bounds how long a stamping run may hold the per-document lock.
const stampLockTTL = 2 * time.Minute

// lifecycleService owns the document-wide state machine: routing to
// recipients, draft saves, signature submission with synchronous stamping,
// send-back and owner confirmation.
type lifecycleService struct {
	documentStore   driven.DocumentStore
	assignmentStore driven.AssignmentStore
	annotationStore driven.AnnotationStore
	userStore       driven.UserStore
	blobStore       driven.BlobStore
	stamper         driven.Stamper
	taskQueue       driven.TaskQueue
	lock            driven.DistributedLock
	logger          *slog.Logger
}

// LifecycleConfig holds dependencies for the lifecycle service.
// TaskQueue and Lock are optional; without a queue notifications are
// dropped, without a lock concurrent stamps of the same document may race
// (each still produces a complete artifact from the pristine original).
type LifecycleConfig struct {
	DocumentStore   driven.DocumentStore
	AssignmentStore driven.AssignmentStore
	AnnotationStore driven.AnnotationStore
	UserStore       driven.UserStore
	BlobStore       driven.BlobStore
	Stamper         driven.Stamper
	TaskQueue       driven.TaskQueue
	Lock            driven.DistributedLock
	Logger          *slog.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(cfg LifecycleConfig) driving.LifecycleService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &lifecycleService{
		documentStore:   cfg.DocumentStore,
		assignmentStore: cfg.AssignmentStore,
		annotationStore: cfg.AnnotationStore,
		userStore:       cfg.UserStore,
		blobStore:       cfg.BlobStore,
		stamper:         cfg.Stamper,
		taskQueue:       cfg.TaskQueue,
		lock:            cfg.Lock,
		logger:          logger,
	}
}

// Assign routes a document to a recipient. Re-assigning an existing
// recipient resets the pair to pending and discards prior signature state.
func (s *lifecycleService) Assign(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AssignRequest) (*domain.RecipientAssignment, error) {
	email := strings.TrimSpace(req.RecipientEmail)
	if email == "" {
		return nil, domain.ErrInvalidInput
	}

	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsOwner(caller.UserID) {
		return nil, domain.ErrAccessDenied
	}
	if doc.Status.Terminal() {
		return nil, domain.ErrInvalidTransition
	}

	recipient, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	assignment, err := s.assignmentStore.Get(ctx, doc.ID, recipient.ID)
	if err == nil {
		assignment.Reset(req.DueDate)
	} else {
		assignment = domain.NewAssignment(doc.ID, recipient.ID, req.DueDate)
	}
	if err := s.assignmentStore.Upsert(ctx, assignment); err != nil {
		return nil, err
	}

	// First assignment moves a draft out of draft. A new pending pair also
	// reopens a document that was waiting for confirmation, which drops the
	// stamped artifact reference.
	switch doc.Status {
	case domain.DocumentStatusDraft:
		doc.Status = domain.DocumentStatusSentForSigning
	case domain.DocumentStatusWaitingConfirmation:
		doc.Status = domain.DocumentStatusSentForSigning
		doc.SignedKey = ""
	}
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.enqueueNotify(ctx, domain.Notification{
		Recipient:     recipient.Email,
		Kind:          domain.NotifyAssigned,
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		Secret:        domain.GenerateID(),
	})

	return assignment, nil
}

// SaveDraft replaces the caller's draft annotation set wholesale.
func (s *lifecycleService) SaveDraft(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) error {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.Status.AcceptsSubmission() {
		return domain.ErrInvalidTransition
	}

	assignment, err := s.assignmentStore.Get(ctx, doc.ID, caller.UserID)
	if err != nil {
		return domain.ErrNotAssigned
	}
	if !assignment.CanSubmit() {
		return domain.ErrInvalidTransition
	}

	anns, err := domain.BuildAnnotations(doc.ID, caller.UserID, req.TextFields, req.Signatures, true)
	if err != nil {
		return err
	}
	if err := s.annotationStore.ReplaceDraft(ctx, doc.ID, caller.UserID, anns); err != nil {
		return err
	}

	assignment.MarkDraft()
	return s.assignmentStore.Upsert(ctx, assignment)
}

// SubmitSignature finalizes the caller's annotation set, re-stamps the
// document from the pristine original with every recipient's final
// annotations, then advances the pair and (if every pair is complete) the
// document. Stamping failures leave the pair and document untouched.
func (s *lifecycleService) SubmitSignature(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.AnnotationSetRequest) (*driving.SubmitResult, error) {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.AcceptsSubmission() {
		return nil, domain.ErrInvalidTransition
	}

	assignment, err := s.assignmentStore.Get(ctx, doc.ID, caller.UserID)
	if err != nil {
		return nil, domain.ErrNotAssigned
	}
	if !assignment.CanSubmit() {
		return nil, domain.ErrInvalidTransition
	}

	finals, err := domain.BuildAnnotations(doc.ID, caller.UserID, req.TextFields, req.Signatures, true)
	if err != nil {
		return nil, err
	}
	for _, a := range finals {
		a.IsDraft = false
	}
	if err := s.annotationStore.ReplaceFinal(ctx, doc.ID, caller.UserID, finals); err != nil {
		return nil, err
	}

	if s.lock != nil {
		lockName := "stamp:" + doc.ID
		acquired, lockErr := s.lock.Acquire(ctx, lockName, stampLockTTL)
		if lockErr != nil {
			s.logger.Warn("stamp lock unavailable, proceeding", "document_id", doc.ID, "error", lockErr)
		} else if acquired {
			defer func() { _ = s.lock.Release(ctx, lockName) }()
		}
	}

	signedKey, err := s.stampDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	assignment.MarkSigned()
	if err := s.assignmentStore.Upsert(ctx, assignment); err != nil {
		return nil, err
	}

	assignments, err := s.assignmentStore.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	allComplete := len(assignments) > 0 && domain.AllComplete(assignments)

	if allComplete {
		doc.Status = domain.DocumentStatusWaitingConfirmation
		doc.SignedKey = signedKey
	} else if doc.Status == domain.DocumentStatusSentBack {
		// The reopened pair signed again; remaining incomplete pairs keep
		// the document in ordinary signing.
		doc.Status = domain.DocumentStatusSentForSigning
	}
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, err
	}

	if owner, ownerErr := s.userStore.Get(ctx, doc.OwnerID); ownerErr == nil {
		s.enqueueNotify(ctx, domain.Notification{
			Recipient:     owner.Email,
			Kind:          domain.NotifySigned,
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
		})
	}

	return &driving.SubmitResult{
		Document:    doc,
		Assignment:  assignment,
		AllComplete: allComplete,
	}, nil
}

// stampDocument renders every final annotation of the document onto the
// pristine original and writes the stamped artifact. Returns the artifact
// key. Nothing is persisted on failure.
func (s *lifecycleService) stampDocument(ctx context.Context, doc *domain.Document) (string, error) {
	finals, err := s.annotationStore.ListFinalByDocument(ctx, doc.ID)
	if err != nil {
		return "", err
	}

	base, err := s.blobStore.Read(ctx, doc.OriginalKey)
	if err != nil {
		return "", err
	}

	images := make(map[string][]byte)
	for _, a := range finals {
		if a.Kind != domain.AnnotationKindSignature {
			continue
		}
		if _, ok := images[a.ImageKey]; ok {
			continue
		}
		img, err := s.blobStore.Read(ctx, a.ImageKey)
		if err != nil {
			return "", err
		}
		images[a.ImageKey] = img
	}

	stamped, err := s.stamper.Stamp(ctx, base, finals, images)
	if err != nil {
		return "", err
	}

	key := signedArtifactKey(doc.ID)
	if err := s.blobStore.Write(ctx, key, stamped); err != nil {
		return "", err
	}
	return key, nil
}

// SendBack reopens a signed pair for revision with a mandatory note.
func (s *lifecycleService) SendBack(ctx context.Context, caller *domain.AuthContext, documentID string, req driving.SendBackRequest) error {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if !doc.IsOwner(caller.UserID) {
		return domain.ErrAccessDenied
	}
	if doc.Status.Terminal() {
		return domain.ErrInvalidTransition
	}

	assignment, err := s.assignmentStore.Get(ctx, doc.ID, req.RecipientID)
	if err != nil {
		return err
	}
	if err := assignment.MarkSentBack(req.Note); err != nil {
		return err
	}
	if err := s.assignmentStore.Upsert(ctx, assignment); err != nil {
		return err
	}

	doc.Status = domain.DocumentStatusSentBack
	doc.SignedKey = ""
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return err
	}

	if recipient, rerr := s.userStore.Get(ctx, req.RecipientID); rerr == nil {
		s.enqueueNotify(ctx, domain.Notification{
			Recipient:     recipient.Email,
			Kind:          domain.NotifySentBack,
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Note:          assignment.RevisionNote,
		})
	}

	return nil
}

// Confirm finalizes a fully signed document. Terminal.
func (s *lifecycleService) Confirm(ctx context.Context, caller *domain.AuthContext, documentID string) (*domain.Document, error) {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsOwner(caller.UserID) {
		return nil, domain.ErrAccessDenied
	}
	if doc.Status != domain.DocumentStatusWaitingConfirmation {
		return nil, domain.ErrInvalidTransition
	}

	doc.Status = domain.DocumentStatusCompleted
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return nil, err
	}

	assignments, err := s.assignmentStore.ListByDocument(ctx, doc.ID)
	if err == nil {
		for _, a := range assignments {
			recipient, rerr := s.userStore.Get(ctx, a.RecipientID)
			if rerr != nil {
				continue
			}
			s.enqueueNotify(ctx, domain.Notification{
				Recipient:     recipient.Email,
				Kind:          domain.NotifyConfirmed,
				DocumentID:    doc.ID,
				DocumentTitle: doc.Title,
			})
		}
	}

	return doc, nil
}

// enqueueNotify dispatches a notification task. Best-effort: failures are
// logged and never surfaced to the caller.
func (s *lifecycleService) enqueueNotify(ctx context.Context, n domain.Notification) {
	if s.taskQueue == nil {
		return
	}
	if err := s.taskQueue.Enqueue(ctx, domain.NewNotifyTask(n)); err != nil {
		s.logger.Warn("failed to enqueue notification",
			"kind", n.Kind, "document_id", n.DocumentID, "error", err)
	}
}
