package repositories

import (
	"context"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type InvitationRepository struct {
	db *postgres.DB
}

func NewInvitationRepository(db *postgres.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `id, client_id, email, role, token_hash, invited_by, status, expires_at, created_at, updated_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(
		&inv.ID,
		&inv.ClientID,
		&inv.Email,
		&inv.Role,
		&inv.TokenHash,
		&inv.InvitedBy,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (id, client_id, email, role, token_hash, invited_by, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		inv.ID, inv.ClientID, inv.Email, inv.Role, inv.TokenHash,
		inv.InvitedBy, inv.Status, inv.ExpiresAt,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create invitation", errors.ErrInternalServer.Status)
	}
	return nil
}

// GetByTokenHash looks up a pending invitation by its hashed token
func (r *InvitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM invitations
		WHERE token_hash = $1 AND status = 'pending'`

	inv, err := scanInvitation(r.db.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get invitation", errors.ErrInternalServer.Status)
	}
	return inv, nil
}

func (r *InvitationRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM invitations
		WHERE client_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list invitations", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan invitation", errors.ErrInternalServer.Status)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// UpdateStatus transitions an invitation (accepted/expired/revoked)
func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invitations SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to update invitation", errors.ErrInternalServer.Status)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	return nil
}
