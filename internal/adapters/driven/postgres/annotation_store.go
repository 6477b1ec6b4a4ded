package postgres

import (
	"context"
	"database/sql"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AnnotationStore = (*AnnotationStore)(nil)

// AnnotationStore implements driven.AnnotationStore using PostgreSQL.
// Draft and final sets for a pair are replaced wholesale inside a transaction
// so a failed write never leaves a partial set behind.
type AnnotationStore struct {
	db *DB
}

// NewAnnotationStore creates a new AnnotationStore
func NewAnnotationStore(db *DB) *AnnotationStore {
	return &AnnotationStore{db: db}
}

// ReplaceDraft atomically replaces the pair's draft annotations
func (s *AnnotationStore) ReplaceDraft(ctx context.Context, documentID, recipientID string, anns []*domain.Annotation) error {
	return s.replace(ctx, documentID, recipientID, true, anns)
}

// ReplaceFinal atomically replaces the pair's final annotations
func (s *AnnotationStore) ReplaceFinal(ctx context.Context, documentID, recipientID string, anns []*domain.Annotation) error {
	return s.replace(ctx, documentID, recipientID, false, anns)
}

func (s *AnnotationStore) replace(ctx context.Context, documentID, recipientID string, isDraft bool, anns []*domain.Annotation) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		deleteQuery := `
			DELETE FROM annotations
			WHERE document_id = $1 AND recipient_id = $2 AND is_draft = $3
		`
		if _, err := tx.ExecContext(ctx, deleteQuery, documentID, recipientID, isDraft); err != nil {
			return err
		}

		if len(anns) == 0 {
			return nil
		}

		insertQuery := `
			INSERT INTO annotations (id, document_id, recipient_id, kind, page, x, y, width, height,
				text, font_size, image_key, is_draft, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`

		stmt, err := tx.PrepareContext(ctx, insertQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range anns {
			_, err = stmt.ExecContext(ctx,
				a.ID,
				a.DocumentID,
				a.RecipientID,
				string(a.Kind),
				a.Page,
				float64(a.X),
				float64(a.Y),
				float64(a.Width),
				float64(a.Height),
				a.Text,
				float64(a.FontSize),
				a.ImageKey,
				a.IsDraft,
				a.Position,
				a.CreatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// ListDraft retrieves the pair's draft annotations in insertion order
func (s *AnnotationStore) ListDraft(ctx context.Context, documentID, recipientID string) ([]*domain.Annotation, error) {
	query := `
		SELECT id, document_id, recipient_id, kind, page, x, y, width, height,
			   text, font_size, image_key, is_draft, position, created_at
		FROM annotations
		WHERE document_id = $1 AND recipient_id = $2 AND is_draft = TRUE
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAnnotations(rows)
}

// ListFinalByDocument retrieves every final annotation across all recipients
// of the document, ordered by recipient then insertion order
func (s *AnnotationStore) ListFinalByDocument(ctx context.Context, documentID string) ([]*domain.Annotation, error) {
	query := `
		SELECT id, document_id, recipient_id, kind, page, x, y, width, height,
			   text, font_size, image_key, is_draft, position, created_at
		FROM annotations
		WHERE document_id = $1 AND is_draft = FALSE
		ORDER BY recipient_id ASC, position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanAnnotations(rows)
}

func (s *AnnotationStore) scanAnnotations(rows *sql.Rows) ([]*domain.Annotation, error) {
	var anns []*domain.Annotation
	for rows.Next() {
		var a domain.Annotation
		var x, y, width, height, fontSize float64

		err := rows.Scan(
			&a.ID,
			&a.DocumentID,
			&a.RecipientID,
			&a.Kind,
			&a.Page,
			&x,
			&y,
			&width,
			&height,
			&a.Text,
			&fontSize,
			&a.ImageKey,
			&a.IsDraft,
			&a.Position,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		a.X = domain.Unit(x)
		a.Y = domain.Unit(y)
		a.Width = domain.Unit(width)
		a.Height = domain.Unit(height)
		a.FontSize = domain.Unit(fontSize)
		anns = append(anns, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return anns, nil
}

// DeleteByDocument deletes all annotations for a document
func (s *AnnotationStore) DeleteByDocument(ctx context.Context, documentID string) error {
	query := `DELETE FROM annotations WHERE document_id = $1`
	_, err := s.db.ExecContext(ctx, query, documentID)
	return err
}
