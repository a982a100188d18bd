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

type InvoiceRepository struct {
	db *postgres.DB
}

func NewInvoiceRepository(db *postgres.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, client_id, number, amount_cents, currency, status, issued_at, due_at, paid_at, line_items, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var lineItemsJSON []byte

	err := row.Scan(
		&inv.ID,
		&inv.ClientID,
		&inv.Number,
		&inv.AmountCents,
		&inv.Currency,
		&inv.Status,
		&inv.IssuedAt,
		&inv.DueAt,
		&inv.PaidAt,
		&lineItemsJSON,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(lineItemsJSON) > 0 {
		if err := json.Unmarshal(lineItemsJSON, &inv.LineItems); err != nil {
			inv.LineItems = make(map[string]interface{})
		}
	}
	return inv, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	lineItemsJSON, err := json.Marshal(inv.LineItems)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to encode line items", errors.ErrInternalServer.Status)
	}

	query := `
		INSERT INTO invoices (id, client_id, number, amount_cents, currency, status, due_at, line_items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		inv.ID, inv.ClientID, inv.Number, inv.AmountCents, inv.Currency,
		inv.Status, inv.DueAt, lineItemsJSON,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create invoice", errors.ErrInternalServer.Status)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	args := []interface{}{id}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, *clientID)
	}

	inv, err := scanInvoice(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get invoice", errors.ErrInternalServer.Status)
	}
	return inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, clientID *uuid.UUID, status *string, page, limit int) ([]*models.Invoice, int, error) {
	offset := (page - 1) * limit

	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if clientID != nil {
		whereClause += fmt.Sprintf(" AND client_id = $%d", argIndex)
		args = append(args, *clientID)
		argIndex++
	}
	if status != nil && *status != "" {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	countQuery := "SELECT COUNT(*) FROM invoices " + whereClause
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count invoices", errors.ErrInternalServer.Status)
	}

	query := fmt.Sprintf(`SELECT `+invoiceColumns+`
		FROM invoices
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list invoices", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan invoice", errors.ErrInternalServer.Status)
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	lineItemsJSON, err := json.Marshal(inv.LineItems)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to encode line items", errors.ErrInternalServer.Status)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET amount_cents = $1, currency = $2, due_at = $3, line_items = $4, updated_at = now()
		WHERE id = $5 AND status = 'draft'`,
		inv.AmountCents, inv.Currency, inv.DueAt, lineItemsJSON, inv.ID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update invoice", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewError("INVOICE_NOT_EDITABLE", "Only draft invoices can be updated", errors.ErrConflict.Status)
	}
	return nil
}

// MarkSent transitions draft -> sent and stamps issued_at
func (r *InvoiceRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET status = 'sent', issued_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to send invoice", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewError("INVOICE_NOT_SENDABLE", "Only draft invoices can be sent", errors.ErrConflict.Status)
	}
	return nil
}

// MarkPaid transitions sent -> paid and stamps paid_at
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET status = 'paid', paid_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'sent'`, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to mark invoice paid", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewError("INVOICE_NOT_PAYABLE", "Only sent invoices can be marked paid", errors.ErrConflict.Status)
	}
	return nil
}
