package domain

import (
	"strings"
	"time"
)

// AssignmentStatus represents the signing state of one (document, recipient) pair
type AssignmentStatus string

const (
	AssignmentStatusPending  AssignmentStatus = "pending"
	AssignmentStatusDraft    AssignmentStatus = "draft"
	AssignmentStatusSigned   AssignmentStatus = "signed"
	AssignmentStatusSentBack AssignmentStatus = "sent_back_for_signing"
)

// Valid reports whether s is one of the closed set of assignment statuses.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusPending,
		AssignmentStatusDraft,
		AssignmentStatusSigned,
		AssignmentStatusSentBack:
		return true
	}
	return false
}

// Complete reports whether the pair counts as complete for the document-wide
// all-complete check. Only pending and draft count as incomplete; a pair
// sent back for revision does not block the rest of the document.
func (s AssignmentStatus) Complete() bool {
	return s != AssignmentStatusPending && s != AssignmentStatusDraft
}

// RecipientAssignment tracks signing status for one (document, recipient) pair.
// The pair is unique per document.
type RecipientAssignment struct {
	ID           string           `json:"id"`
	DocumentID   string           `json:"document_id"`
	RecipientID  string           `json:"recipient_id"`
	Status       AssignmentStatus `json:"status"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	SignedAt     *time.Time       `json:"signed_at,omitempty"`
	RevisionNote string           `json:"revision_note,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewAssignment creates a pending assignment for the pair.
func NewAssignment(documentID, recipientID string, dueDate *time.Time) *RecipientAssignment {
	now := time.Now()
	return &RecipientAssignment{
		ID:          GenerateID(),
		DocumentID:  documentID,
		RecipientID: recipientID,
		Status:      AssignmentStatusPending,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Reset returns the pair to pending with a new due date. Used when the owner
// re-assigns an existing recipient; any prior signature state is discarded.
func (a *RecipientAssignment) Reset(dueDate *time.Time) {
	a.Status = AssignmentStatusPending
	a.DueDate = dueDate
	a.SignedAt = nil
	a.RevisionNote = ""
	a.UpdatedAt = time.Now()
}

// MarkDraft records that the recipient saved work in progress.
func (a *RecipientAssignment) MarkDraft() {
	a.Status = AssignmentStatusDraft
	a.UpdatedAt = time.Now()
}

// MarkSigned transitions the pair to signed and stamps signed_at.
// Clears any revision note left over from a send-back.
func (a *RecipientAssignment) MarkSigned() {
	now := time.Now()
	a.Status = AssignmentStatusSigned
	a.SignedAt = &now
	a.RevisionNote = ""
	a.UpdatedAt = now
}

// MarkSentBack reopens a signed pair for revision. Only a signed pair can be
// sent back, and the note must be non-blank.
func (a *RecipientAssignment) MarkSentBack(note string) error {
	if a.Status != AssignmentStatusSigned {
		return ErrInvalidTransition
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrInvalidTransition
	}
	a.Status = AssignmentStatusSentBack
	a.SignedAt = nil
	a.RevisionNote = note
	a.UpdatedAt = time.Now()
	return nil
}

// CanSubmit reports whether the recipient may submit final annotations.
// A signed pair may only submit again after a send-back.
func (a *RecipientAssignment) CanSubmit() bool {
	return a.Status != AssignmentStatusSigned
}

// AllComplete reports whether every assignment counts as complete.
// An empty set is complete by definition; callers guard against
// documents with no recipients.
func AllComplete(assignments []*RecipientAssignment) bool {
	for _, a := range assignments {
		if !a.Status.Complete() {
			return false
		}
	}
	return true
}
