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

type ClientRepository struct {
	db *postgres.DB
}

func NewClientRepository(db *postgres.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, name, contact_email, contact_name, kvk_number, vat_number, status, plan, deleted_at, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	client := &models.Client{}
	err := row.Scan(
		&client.ID,
		&client.Name,
		&client.ContactEmail,
		&client.ContactName,
		&client.KvkNumber,
		&client.VatNumber,
		&client.Status,
		&client.Plan,
		&client.DeletedAt,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (id, name, contact_email, contact_name, kvk_number, vat_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		client.ID, client.Name, client.ContactEmail, client.ContactName,
		client.KvkNumber, client.VatNumber, client.Status,
	).Scan(&client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create client", errors.ErrInternalServer.Status)
	}
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND deleted_at IS NULL`

	client, err := scanClient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get client", errors.ErrInternalServer.Status)
	}
	return client, nil
}

func (r *ClientRepository) List(ctx context.Context, status *string, page, limit int) ([]*models.Client, int, error) {
	offset := (page - 1) * limit

	whereClause := "WHERE deleted_at IS NULL"
	args := []interface{}{}
	argIndex := 1

	if status != nil && *status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	countQuery := "SELECT COUNT(*) FROM clients " + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count clients", errors.ErrInternalServer.Status)
	}

	query := fmt.Sprintf(`SELECT `+clientColumns+`
		FROM clients
		%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list clients", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan client", errors.ErrInternalServer.Status)
		}
		clients = append(clients, client)
	}
	return clients, total, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients
		SET name = $1, contact_email = $2, contact_name = $3, kvk_number = $4,
			vat_number = $5, status = $6, updated_at = now()
		WHERE id = $7 AND deleted_at IS NULL`,
		client.Name, client.ContactEmail, client.ContactName, client.KvkNumber,
		client.VatNumber, client.Status, client.ID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update client", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Archive soft deletes a client
func (r *ClientRepository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients
		SET status = 'archived', deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to archive client", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// SetPlan updates the denormalized plan column on the client row
func (r *ClientRepository) SetPlan(ctx context.Context, id uuid.UUID, plan string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE clients SET plan = $1, updated_at = now() WHERE id = $2`, plan, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to set client plan", errors.ErrInternalServer.Status)
	}
	return nil
}
