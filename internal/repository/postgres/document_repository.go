package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/models"
)

// ErrDocumentNotFound is returned when no document matches the lookup.
var ErrDocumentNotFound = fmt.Errorf("document not found")

// DocumentRepository handles document database operations.
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document in draft state.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, domain, number, state, amount, payload, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(
		ctx, query,
		doc.ID, doc.Domain, doc.Number, doc.State, doc.Amount, doc.Payload,
		doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetByNumber retrieves a document by domain and number
func (r *DocumentRepository) GetByNumber(ctx context.Context, domain models.DocumentDomain, number string) (*models.Document, error) {
	query := `
		SELECT id, domain, number, state, amount, payload, version, created_at, updated_at
		FROM documents
		WHERE domain = $1 AND number = $2`

	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, domain, number).Scan(
		&doc.ID, &doc.Domain, &doc.Number, &doc.State, &doc.Amount, &doc.Payload,
		&doc.Version, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// UpdateState applies a state change guarded by an optimistic version check.
// Returns engine.ErrVersionConflict when a concurrent transition won the race.
// On success the document's State and Version are updated in place.
func (r *DocumentRepository) UpdateState(ctx context.Context, doc *models.Document, next models.DocumentState) error {
	query := `
		UPDATE documents
		SET state = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`

	result, err := r.db.ExecContext(ctx, query, next, doc.ID, doc.Version)
	if err != nil {
		return fmt.Errorf("failed to update document state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return engine.ErrVersionConflict
	}

	doc.State = next
	doc.Version++
	return nil
}

// List retrieves documents for a domain, newest first.
func (r *DocumentRepository) List(ctx context.Context, domain *models.DocumentDomain, limit, offset int) ([]models.Document, int64, error) {
	whereSQL := ""
	args := []interface{}{}
	argPos := 1

	if domain != nil {
		whereSQL = fmt.Sprintf("WHERE domain = $%d", argPos)
		args = append(args, *domain)
		argPos++
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM documents %s", whereSQL)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT id, domain, number, state, amount, payload, version, created_at, updated_at
		FROM documents %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereSQL, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc := models.Document{}
		if err := rows.Scan(
			&doc.ID, &doc.Domain, &doc.Number, &doc.State, &doc.Amount, &doc.Payload,
			&doc.Version, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, total, nil
}
