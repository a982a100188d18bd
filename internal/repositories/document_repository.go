package repositories

import (
	"context"
	"fmt"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DocumentRepository struct {
	db *postgres.DB
}

func NewDocumentRepository(db *postgres.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, client_id, uploaded_by, name, storage_path, content_type, size_bytes, category, deleted_at, created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	doc := &models.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.ClientID,
		&doc.UploadedBy,
		&doc.Name,
		&doc.StoragePath,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.Category,
		&doc.DeletedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Create inserts a new document row
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, client_id, uploaded_by, name, storage_path, content_type, size_bytes, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		doc.ID, doc.ClientID, doc.UploadedBy, doc.Name, doc.StoragePath,
		doc.ContentType, doc.SizeBytes, doc.Category,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create document", errors.ErrInternalServer.Status)
	}
	return nil
}

// GetByID fetches a non-deleted document scoped to a client
func (r *DocumentRepository) GetByID(ctx context.Context, id, clientID uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND client_id = $2 AND deleted_at IS NULL`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id, clientID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get document", errors.ErrInternalServer.Status)
	}
	return doc, nil
}

// List retrieves a client's documents with pagination and optional category filter
func (r *DocumentRepository) List(ctx context.Context, clientID uuid.UUID, category *string, page, limit int) ([]*models.Document, int, error) {
	offset := (page - 1) * limit

	whereClause := "WHERE client_id = $1 AND deleted_at IS NULL"
	args := []interface{}{clientID}
	argIndex := 2

	if category != nil && *category != "" {
		whereClause += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, *category)
		argIndex++
	}

	countQuery := "SELECT COUNT(*) FROM documents " + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count documents", errors.ErrInternalServer.Status)
	}

	query := fmt.Sprintf(`SELECT `+documentColumns+`
		FROM documents
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list documents", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan document", errors.ErrInternalServer.Status)
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// ResolveForExport returns the subset of the requested documents that
// belong to the client and are not soft-deleted, preserving the request
// order. Unknown or foreign ids are dropped, not reported.
func (r *DocumentRepository) ResolveForExport(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE client_id = $1 AND id = ANY($2) AND deleted_at IS NULL`

	rows, err := r.db.Query(ctx, query, clientID, idStrings)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve export documents: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export document: %w", err)
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Re-apply the requested order; the database gives no guarantee
	docs := make([]*models.Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// SoftDelete marks a document as removed without touching the blob
func (r *DocumentRepository) SoftDelete(ctx context.Context, id, clientID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE documents
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND client_id = $2 AND deleted_at IS NULL`,
		id, clientID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to delete document", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}
