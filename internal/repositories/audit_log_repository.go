package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AuditLogRepository struct {
	db *postgres.DB
}

func NewAuditLogRepository(db *postgres.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts a single audit event
func (r *AuditLogRepository) Create(ctx context.Context, event models.AuditEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode audit metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, client_id, user_id, action, entity_type, entity_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		uuid.New(), event.ClientID, event.UserID, event.Action, event.EntityType, event.EntityID, metadataJSON)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List retrieves audit logs with pagination and optional filters
func (r *AuditLogRepository) List(ctx context.Context, clientID *uuid.UUID, userID *uuid.UUID, action *string, entityType *string, page, limit int) ([]*models.AuditLog, int, error) {
	offset := (page - 1) * limit

	// Build WHERE clause
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if clientID != nil {
		whereClause += fmt.Sprintf(" AND client_id = $%d", argIndex)
		args = append(args, *clientID)
		argIndex++
	}

	if userID != nil {
		whereClause += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *userID)
		argIndex++
	}

	if action != nil && *action != "" {
		whereClause += fmt.Sprintf(" AND action = $%d", argIndex)
		args = append(args, *action)
		argIndex++
	}

	if entityType != nil && *entityType != "" {
		whereClause += fmt.Sprintf(" AND entity_type = $%d", argIndex)
		args = append(args, *entityType)
		argIndex++
	}

	// Count total records
	countQuery := "SELECT COUNT(*) FROM audit_logs " + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count audit logs", errors.ErrInternalServer.Status)
	}

	query := fmt.Sprintf(`
		SELECT id, client_id, user_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list audit logs", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.ClientID,
			&entry.UserID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan audit log", errors.ErrInternalServer.Status)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				entry.Metadata = make(map[string]interface{})
			}
		} else {
			entry.Metadata = make(map[string]interface{})
		}

		logs = append(logs, entry)
	}
	return logs, total, rows.Err()
}

// GetByID fetches a single audit log entry
func (r *AuditLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	entry := &models.AuditLog{}
	var metadataJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, client_id, user_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_logs
		WHERE id = $1`, id).Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.UserID,
		&entry.Action,
		&entry.EntityType,
		&entry.EntityID,
		&metadataJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get audit log", errors.ErrInternalServer.Status)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			entry.Metadata = make(map[string]interface{})
		}
	} else {
		entry.Metadata = make(map[string]interface{})
	}

	return entry, nil
}
