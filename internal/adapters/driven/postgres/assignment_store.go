package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AssignmentStore = (*AssignmentStore)(nil)

// AssignmentStore implements driven.AssignmentStore using PostgreSQL
type AssignmentStore struct {
	db *DB
}

// NewAssignmentStore creates a new AssignmentStore
func NewAssignmentStore(db *DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// Upsert creates the pair or replaces its status, due date, signed_at and
// revision note if it already exists. The (document_id, recipient_id) unique
// constraint makes concurrent duplicate assignment converge on one row.
func (s *AssignmentStore) Upsert(ctx context.Context, a *domain.RecipientAssignment) error {
	query := `
		INSERT INTO recipient_assignments (id, document_id, recipient_id, status, due_date, signed_at, revision_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id, recipient_id) DO UPDATE SET
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			signed_at = EXCLUDED.signed_at,
			revision_note = EXCLUDED.revision_note,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.DocumentID,
		a.RecipientID,
		string(a.Status),
		NullTime(a.DueDate),
		NullTime(a.SignedAt),
		a.RevisionNote,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

// Get retrieves the assignment for a (document, recipient) pair
func (s *AssignmentStore) Get(ctx context.Context, documentID, recipientID string) (*domain.RecipientAssignment, error) {
	query := `
		SELECT id, document_id, recipient_id, status, due_date, signed_at, revision_note, created_at, updated_at
		FROM recipient_assignments
		WHERE document_id = $1 AND recipient_id = $2
	`

	var a domain.RecipientAssignment
	var dueDate, signedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, documentID, recipientID).Scan(
		&a.ID,
		&a.DocumentID,
		&a.RecipientID,
		&a.Status,
		&dueDate,
		&signedAt,
		&a.RevisionNote,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.DueDate = TimePtr(dueDate)
	a.SignedAt = TimePtr(signedAt)
	return &a, nil
}

// ListByDocument retrieves all assignments for a document, oldest first
func (s *AssignmentStore) ListByDocument(ctx context.Context, documentID string) ([]*domain.RecipientAssignment, error) {
	query := `
		SELECT id, document_id, recipient_id, status, due_date, signed_at, revision_note, created_at, updated_at
		FROM recipient_assignments
		WHERE document_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAssignments(rows)
}

// ListDueBefore retrieves pending/draft assignments whose due date falls
// before the cutoff
func (s *AssignmentStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.RecipientAssignment, error) {
	query := `
		SELECT id, document_id, recipient_id, status, due_date, signed_at, revision_note, created_at, updated_at
		FROM recipient_assignments
		WHERE due_date IS NOT NULL
		  AND due_date < $1
		  AND status IN ($2, $3)
		ORDER BY due_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, cutoff,
		string(domain.AssignmentStatusPending),
		string(domain.AssignmentStatusDraft),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAssignments(rows)
}

func (s *AssignmentStore) scanAssignments(rows *sql.Rows) ([]*domain.RecipientAssignment, error) {
	var assignments []*domain.RecipientAssignment
	for rows.Next() {
		var a domain.RecipientAssignment
		var dueDate, signedAt sql.NullTime

		err := rows.Scan(
			&a.ID,
			&a.DocumentID,
			&a.RecipientID,
			&a.Status,
			&dueDate,
			&signedAt,
			&a.RevisionNote,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		a.DueDate = TimePtr(dueDate)
		a.SignedAt = TimePtr(signedAt)
		assignments = append(assignments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

// DeleteByDocument deletes all assignments for a document
func (s *AssignmentStore) DeleteByDocument(ctx context.Context, documentID string) error {
	query := `DELETE FROM recipient_assignments WHERE document_id = $1`
	_, err := s.db.ExecContext(ctx, query, documentID)
	return err
}
