package postgres

import (
	"context"
	"database/sql"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, title, owner_id, status, original_key, signed_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			original_key = EXCLUDED.original_key,
			signed_key = EXCLUDED.signed_key,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.OwnerID,
		string(doc.Status),
		doc.OriginalKey,
		doc.SignedKey,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, title, owner_id, status, original_key, signed_key, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

func (s *DocumentStore) scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var signedKey sql.NullString

	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.OwnerID,
		&doc.Status,
		&doc.OriginalKey,
		&signedKey,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.SignedKey = signedKey.String
	return &doc, nil
}

// ListByOwner retrieves all documents owned by a user, newest first
func (s *DocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT id, title, owner_id, status, original_key, signed_key, created_at, updated_at
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// ListByRecipient retrieves all documents the user is assigned to sign,
// newest first
func (s *DocumentStore) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT d.id, d.title, d.owner_id, d.status, d.original_key, d.signed_key, d.created_at, d.updated_at
		FROM documents d
		JOIN recipient_assignments ra ON ra.document_id = d.id
		WHERE ra.recipient_id = $1
		ORDER BY d.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

func (s *DocumentStore) scanDocuments(rows *sql.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var signedKey sql.NullString

		err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.OwnerID,
			&doc.Status,
			&doc.OriginalKey,
			&signedKey,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		doc.SignedKey = signedKey.String
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// Delete deletes a document
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// CountByOwner returns the document count for an owner
func (s *DocumentStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM documents WHERE owner_id = $1`
	var count int
	err := s.db.QueryRowContext(ctx, query, ownerID).Scan(&count)
	return count, err
}
