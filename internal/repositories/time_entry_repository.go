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

type TimeEntryRepository struct {
	db *postgres.DB
}

func NewTimeEntryRepository(db *postgres.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

const timeEntryColumns = `id, client_id, user_id, description, minutes, billable, entry_date, invoice_id, created_at, updated_at`

func scanTimeEntry(row pgx.Row) (*models.TimeEntry, error) {
	entry := &models.TimeEntry{}
	err := row.Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.UserID,
		&entry.Description,
		&entry.Minutes,
		&entry.Billable,
		&entry.EntryDate,
		&entry.InvoiceID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *TimeEntryRepository) Create(ctx context.Context, entry *models.TimeEntry) error {
	query := `
		INSERT INTO time_entries (id, client_id, user_id, description, minutes, billable, entry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		entry.ID, entry.ClientID, entry.UserID, entry.Description,
		entry.Minutes, entry.Billable, entry.EntryDate,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create time entry", errors.ErrInternalServer.Status)
	}
	return nil
}

func (r *TimeEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE id = $1`

	entry, err := scanTimeEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get time entry", errors.ErrInternalServer.Status)
	}
	return entry, nil
}

func (r *TimeEntryRepository) List(ctx context.Context, clientID *uuid.UUID, from, to *time.Time, billable *bool, page, limit int) ([]*models.TimeEntry, int, error) {
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
		whereClause += fmt.Sprintf(" AND entry_date >= $%d", argIndex)
		args = append(args, *from)
		argIndex++
	}
	if to != nil {
		whereClause += fmt.Sprintf(" AND entry_date <= $%d", argIndex)
		args = append(args, *to)
		argIndex++
	}
	if billable != nil {
		whereClause += fmt.Sprintf(" AND billable = $%d", argIndex)
		args = append(args, *billable)
		argIndex++
	}

	countQuery := "SELECT COUNT(*) FROM time_entries " + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count time entries", errors.ErrInternalServer.Status)
	}

	query := fmt.Sprintf(`SELECT `+timeEntryColumns+`
		FROM time_entries
		%s
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list time entries", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var entries []*models.TimeEntry
	for rows.Next() {
		entry, err := scanTimeEntry(rows)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan time entry", errors.ErrInternalServer.Status)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (r *TimeEntryRepository) Update(ctx context.Context, entry *models.TimeEntry) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE time_entries
		SET description = $1, minutes = $2, billable = $3, entry_date = $4, updated_at = now()
		WHERE id = $5 AND invoice_id IS NULL`,
		entry.Description, entry.Minutes, entry.Billable, entry.EntryDate, entry.ID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update time entry", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewError("TIME_ENTRY_LOCKED", "Invoiced time entries cannot be changed", errors.ErrConflict.Status)
	}
	return nil
}

func (r *TimeEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM time_entries WHERE id = $1 AND invoice_id IS NULL`, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to delete time entry", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}
