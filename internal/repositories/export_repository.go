package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// maxErrorLength bounds the error column; longer messages are cut.
const maxErrorLength = 500

type ExportRepository struct {
	db *postgres.DB
}

func NewExportRepository(db *postgres.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = `id, client_id, created_by, status, document_ids, storage_key, error, created_at, updated_at`

func scanExportJob(row pgx.Row) (*models.ExportJob, error) {
	job := &models.ExportJob{}
	var docIDsJSON []byte

	err := row.Scan(
		&job.ID,
		&job.ClientID,
		&job.CreatedBy,
		&job.Status,
		&docIDsJSON,
		&job.StorageKey,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(docIDsJSON) > 0 {
		if err := json.Unmarshal(docIDsJSON, &job.DocumentIDs); err != nil {
			return nil, fmt.Errorf("failed to decode document_ids: %w", err)
		}
	}
	return job, nil
}

// Create inserts a new pending export job
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	docIDsJSON, err := json.Marshal(job.DocumentIDs)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to encode document ids", errors.ErrInternalServer.Status)
	}

	query := `
		INSERT INTO export_jobs (id, client_id, created_by, status, document_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query, job.ID, job.ClientID, job.CreatedBy, job.Status, docIDsJSON).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to create export job", errors.ErrInternalServer.Status)
	}
	return nil
}

// GetByID fetches a single export job, tenant-scoped when clientID is non-nil
func (r *ExportRepository) GetByID(ctx context.Context, id uuid.UUID, clientID *uuid.UUID) (*models.ExportJob, error) {
	query := `SELECT ` + exportColumns + ` FROM export_jobs WHERE id = $1`
	args := []interface{}{id}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, *clientID)
	}

	job, err := scanExportJob(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to get export job", errors.ErrInternalServer.Status)
	}
	return job, nil
}

// List returns a client's export jobs, newest first
func (r *ExportRepository) List(ctx context.Context, clientID uuid.UUID, page, limit int) ([]*models.ExportJob, int, error) {
	offset := (page - 1) * limit

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM export_jobs WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to count export jobs", errors.ErrInternalServer.Status)
	}

	query := `SELECT ` + exportColumns + `
		FROM export_jobs
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to list export jobs", errors.ErrInternalServer.Status)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, 0, errors.WrapError(err, "INTERNAL_ERROR", "Failed to scan export job", errors.ErrInternalServer.Status)
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// FetchNextPending returns the oldest pending job, or nil when the queue
// is empty
func (r *ExportRepository) FetchNextPending(ctx context.Context) (*models.ExportJob, error) {
	query := `SELECT ` + exportColumns + `
		FROM export_jobs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT 1`

	job, err := scanExportJob(r.db.QueryRow(ctx, query, models.ExportStatusPending))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch pending export job: %w", err)
	}
	return job, nil
}

// Claim performs the guarded pending -> processing transition. The WHERE
// clause on current status is the only lock: if another worker got there
// first, zero rows change and claimed is false.
func (r *ExportRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE export_jobs
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		models.ExportStatusProcessing, id, models.ExportStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim export job %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReady finalizes a job with its archive location
func (r *ExportRepository) MarkReady(ctx context.Context, id uuid.UUID, storageKey string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE export_jobs
		SET status = $1, storage_key = $2, error = NULL, updated_at = now()
		WHERE id = $3`,
		models.ExportStatusReady, storageKey, id)
	if err != nil {
		return fmt.Errorf("failed to mark export job %s ready: %w", id, err)
	}
	return nil
}

// MarkFailed finalizes a job with a truncated error message
func (r *ExportRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE export_jobs
		SET status = $1, error = $2, storage_key = NULL, updated_at = now()
		WHERE id = $3`,
		models.ExportStatusFailed, TruncateError(errMsg), id)
	if err != nil {
		return fmt.Errorf("failed to mark export job %s failed: %w", id, err)
	}
	return nil
}

// RequeueStale flips jobs stuck in processing back to pending. A job can
// strand there when the worker died or the failure-path update itself
// failed; anything untouched for longer than the cutoff is safe to retry
// because the claim guard still serializes the next attempt.
func (r *ExportRepository) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE export_jobs
		SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < now() - make_interval(secs => $3)`,
		models.ExportStatusPending, models.ExportStatusProcessing, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale export jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TruncateError cuts an error message to the column budget
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= maxErrorLength {
		return msg
	}
	return string(runes[:maxErrorLength])
}
