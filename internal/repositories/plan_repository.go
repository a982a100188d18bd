package repositories

import (
	"context"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PlanRepository struct {
	db *postgres.DB
}

func NewPlanRepository(db *postgres.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetCurrent returns the client's open plan assignment (ends_at IS NULL)
func (r *PlanRepository) GetCurrent(ctx context.Context, clientID uuid.UUID) (*models.PlanAssignment, error) {
	pa := &models.PlanAssignment{}
	err := r.db.QueryRow(ctx, `
		SELECT id, client_id, plan, starts_at, ends_at, assigned_by, created_at
		FROM plan_assignments
		WHERE client_id = $1 AND ends_at IS NULL
		ORDER BY starts_at DESC
		LIMIT 1`, clientID).Scan(
		&pa.ID, &pa.ClientID, &pa.Plan, &pa.StartsAt, &pa.EndsAt, &pa.AssignedBy, &pa.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get plan assignment", errors.ErrInternalServer.Status)
	}
	return pa, nil
}

// Assign closes any open assignment and opens a new one in a single
// transaction so the client never has two active plans.
func (r *PlanRepository) Assign(ctx context.Context, pa *models.PlanAssignment) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to begin plan assignment", errors.ErrInternalServer.Status)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE plan_assignments SET ends_at = $1
		WHERE client_id = $2 AND ends_at IS NULL`,
		pa.StartsAt, pa.ClientID)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to close previous plan", errors.ErrInternalServer.Status)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO plan_assignments (id, client_id, plan, starts_at, assigned_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`,
		pa.ID, pa.ClientID, pa.Plan, pa.StartsAt, pa.AssignedBy,
	).Scan(&pa.CreatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create plan assignment", errors.ErrInternalServer.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to commit plan assignment", errors.ErrInternalServer.Status)
	}
	return nil
}
