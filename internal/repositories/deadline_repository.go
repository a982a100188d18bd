package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type DeadlineRepository struct {
	db *postgres.DB
}

func NewDeadlineRepository(db *postgres.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

const deadlineColumns = `id, client_id, title, tax_type, due_date, period, status, notes, created_at, updated_at`

func scanDeadline(row pgx.Row) (*models.TaxDeadline, error) {
	dl := &models.TaxDeadline{}
	err := row.Scan(
		&dl.ID,
		&dl.ClientID,
		&dl.Title,
		&dl.TaxType,
		&dl.DueDate,
		&dl.Period,
		&dl.Status,
		&dl.Notes,
		&dl.CreatedAt,
		&dl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return dl, nil
}

func (r *DeadlineRepository) Create(ctx context.Context, dl *models.TaxDeadline) error {
	query := `
		INSERT INTO tax_deadlines (id, client_id, title, tax_type, due_date, period, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		dl.ID, dl.ClientID, dl.Title, dl.TaxType, dl.DueDate, dl.Period, dl.Status, dl.Notes,
	).Scan(&dl.CreatedAt, &dl.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create deadline", errors.ErrInternalServer.Status)
	}
	return nil
}

func (r *DeadlineRepository) GetByID(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) (*models.TaxDeadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM tax_deadlines WHERE id = $1`
	args := []interface{}{id}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, *clientID)
	}

	dl, err := scanDeadline(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get deadline", errors.ErrInternalServer.Status)
	}
	return dl, nil
}

// List retrieves deadlines filtered by client, window, and status
func (r *DeadlineRepository) List(ctx context.Context, clientID *uuid.UUID, from, to *time.Time, status *string, page, limit int) ([]*models.TaxDeadline, int, error) {
	offset := (page - 1) * limit

	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if clientID != nil {
		whereClause += fmt.Sprintf(" AND client_id = $%d", argIndex)
		args = append(args, *clientID)
		argIndex++
	}
	if from != nil {
		whereClause += fmt.Sprintf(" AND due_date >= $%d", argIndex)
		args = append(args, *from)
		argIndex++
	}
	if to != nil {
		whereClause += fmt.Sprintf(" AND due_date <= $%d", argIndex)
		args = append(args, *to)
		argIndex++
	}
	if status != nil && *status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	countQuery := "SELECT COUNT(*) FROM tax_deadlines " + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count deadlines", errors.ErrInternalServer.Status)
	}

	query := fmt.Sprintf(`SELECT `+deadlineColumns+`
		FROM tax_deadlines
		%s
		ORDER BY due_date ASC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list deadlines", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var deadlines []*models.TaxDeadline
	for rows.Next() {
		dl, err := scanDeadline(rows)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan deadline", errors.ErrInternalServer.Status)
		}
		deadlines = append(deadlines, dl)
	}
	return deadlines, total, rows.Err()
}

func (r *DeadlineRepository) Update(ctx context.Context, dl *models.TaxDeadline) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tax_deadlines
		SET title = $1, tax_type = $2, due_date = $3, period = $4, status = $5, notes = $6, updated_at = now()
		WHERE id = $7`,
		dl.Title, dl.TaxType, dl.DueDate, dl.Period, dl.Status, dl.Notes, dl.ID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update deadline", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (r *DeadlineRepository) Delete(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) error {
	query := `DELETE FROM tax_deadlines WHERE id = $1`
	args := []interface{}{id}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, *clientID)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to delete deadline", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}
