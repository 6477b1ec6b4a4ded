package domain

import "time"

// DocumentStatus represents the document-wide lifecycle state
type DocumentStatus string

const (
	// DocumentStatusDraft - uploaded, no recipients assigned yet
	DocumentStatusDraft DocumentStatus = "draft"
	// DocumentStatusSentForSigning - at least one recipient assigned, signing in progress
	DocumentStatusSentForSigning DocumentStatus = "sent_for_signing"
	// DocumentStatusSentBack - the owner reopened a signed pair for revision
	DocumentStatusSentBack DocumentStatus = "sent_back_for_signing"
	// DocumentStatusWaitingConfirmation - every recipient completed, awaiting owner confirmation
	DocumentStatusWaitingConfirmation DocumentStatus = "waiting_confirmation"
	// DocumentStatusCompleted - owner confirmed; terminal
	DocumentStatusCompleted DocumentStatus = "completed"
)

// Valid reports whether s is one of the closed set of document statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusDraft,
		DocumentStatusSentForSigning,
		DocumentStatusSentBack,
		DocumentStatusWaitingConfirmation,
		DocumentStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave this status.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusCompleted
}

// AcceptsSubmission reports whether a recipient may submit a signature
// while the document is in this status.
func (s DocumentStatus) AcceptsSubmission() bool {
	return s == DocumentStatusSentForSigning || s == DocumentStatusSentBack
}

// Document represents a file routed to recipients for signature
type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	OwnerID     string         `json:"owner_id"`
	Status      DocumentStatus `json:"status"`
	OriginalKey string         `json:"original_key"`         // blob key of the uploaded artifact
	SignedKey   string         `json:"signed_key,omitempty"` // blob key of the stamped artifact
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDocument creates a document in draft owned by ownerID.
func NewDocument(ownerID, title, originalKey string) *Document {
	now := time.Now()
	return &Document{
		ID:          GenerateID(),
		Title:       title,
		OwnerID:     ownerID,
		Status:      DocumentStatusDraft,
		OriginalKey: originalKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOwner reports whether userID owns the document.
func (d *Document) IsOwner(userID string) bool {
	return d.OwnerID == userID
}

// HasSignedArtifact reports whether a stamped artifact is recorded.
// Invariant: true exactly while the document is in waiting_confirmation
// or completed.
func (d *Document) HasSignedArtifact() bool {
	return d.SignedKey != ""
}

// DocumentWithAssignments combines a document with its recipient assignments
type DocumentWithAssignments struct {
	Document    *Document              `json:"document"`
	Assignments []*RecipientAssignment `json:"assignments"`
}
