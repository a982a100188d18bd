package services

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/config"
	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// zipCompressionLevel trades CPU for size; the exact level is a tuning
// knob, not a contract.
const zipCompressionLevel = 5

// ExportStore is the persisted job queue. Implemented by
// repositories.ExportRepository.
type ExportStore interface {
	FetchNextPending(ctx context.Context) (*models.ExportJob, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReady(ctx context.Context, id uuid.UUID, storageKey string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// DocumentResolver scopes requested document ids to the owning client.
// Implemented by repositories.DocumentRepository.
type DocumentResolver interface {
	ResolveForExport(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]*models.Document, error)
}

// BlobStore is the object storage boundary. Implemented by
// storage.S3Client.
type BlobStore interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// AuditSink records pipeline outcomes, fire-and-forget.
type AuditSink interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// ExportService drives export jobs through
// pending -> processing -> ready|failed. All collaborators are injected
// once at startup; the service holds no per-call clients.
type ExportService struct {
	exports   ExportStore
	documents DocumentResolver
	blobs     BlobStore
	audit     AuditSink
	log       *logrus.Logger

	bucket       string
	timeout      time.Duration
	zipSizeLimit int64
}

func NewExportService(
	exports ExportStore,
	documents DocumentResolver,
	blobs BlobStore,
	audit AuditSink,
	log *logrus.Logger,
	cfg *config.Config,
) *ExportService {
	return &ExportService{
		exports:      exports,
		documents:    documents,
		blobs:        blobs,
		audit:        audit,
		log:          log,
		bucket:       cfg.Storage.Bucket,
		timeout:      cfg.Export.Timeout,
		zipSizeLimit: cfg.Export.ZipSizeLimit,
	}
}

// ExportStorageKey is the deterministic archive location for a job
func ExportStorageKey(clientID, jobID uuid.UUID) string {
	return fmt.Sprintf("clients/%s/exports/%s/export.zip", clientID, jobID)
}

// ProcessDocumentExports performs one claim -> process cycle. It never
// returns an error: a bad iteration is logged and the next scheduler
// tick tries again.
func (s *ExportService) ProcessDocumentExports(ctx context.Context) {
	// Jobs stranded in processing (worker death, failure-path write
	// failure) get swept back first so they are eventually retried.
	if n, err := s.exports.RequeueStale(ctx, 2*s.timeout); err != nil {
		s.log.WithError(err).Warn("stale export sweep failed")
	} else if n > 0 {
		s.log.WithField("count", n).Info("requeued stale export jobs")
	}

	job, err := s.claimNextPendingJob(ctx)
	if err != nil {
		s.log.WithError(err).Warn("export claim failed")
		return
	}
	if job == nil {
		return
	}

	jobLog := s.log.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"client_id": job.ClientID,
	})
	jobLog.WithField("document_count", len(job.DocumentIDs)).Info("processing export job")

	jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.processJob(jobCtx, job); err != nil {
		// The failure-path writes use the parent context: the job
		// deadline may already have fired.
		s.failJob(ctx, job, err)
		return
	}
	jobLog.WithField("duration", time.Since(start).String()).Info("export job ready")
}

// claimNextPendingJob selects the oldest pending job and attempts the
// guarded transition to processing. Losing the race to another worker
// is not an error; the next poll cycle picks up whatever remains.
func (s *ExportService) claimNextPendingJob(ctx context.Context) (*models.ExportJob, error) {
	job, err := s.exports.FetchNextPending(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	claimed, err := s.exports.Claim(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.log.WithField("job_id", job.ID).Debug("export job claimed by another worker")
		return nil, nil
	}

	job.Status = models.ExportStatusProcessing
	return job, nil
}

// processJob runs resolve -> download -> archive -> upload -> mark ready
// for a claimed job. Per-document download failures are absorbed here;
// everything else propagates to the failure path.
func (s *ExportService) processJob(ctx context.Context, job *models.ExportJob) error {
	jobLog := s.log.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"client_id": job.ClientID,
	})

	docs, err := s.documents.ResolveForExport(ctx, job.ClientID, job.DocumentIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve documents: %w", err)
	}
	if len(docs) == 0 {
		return errors.ErrNoValidDocuments
	}
	if len(docs) < len(job.DocumentIDs) {
		jobLog.WithFields(logrus.Fields{
			"requested": len(job.DocumentIDs),
			"resolved":  len(docs),
		}).Warn("some requested documents did not resolve")
	}

	archive, included, err := s.buildArchive(ctx, job, docs)
	if err != nil {
		return err
	}

	key := ExportStorageKey(job.ClientID, job.ID)
	if err := s.blobs.Upload(ctx, s.bucket, key, archive, "application/zip"); err != nil {
		// The key is unique per job, so an existing object can only be
		// the output of an earlier attempt of this same job that died
		// after uploading. Same job, same key, same content.
		if !stderrors.Is(err, storage.ErrObjectExists) {
			return fmt.Errorf("failed to upload archive: %w", err)
		}
		jobLog.Warn("archive already uploaded by an earlier attempt, reusing it")
	}

	if err := s.exports.MarkReady(ctx, job.ID, key); err != nil {
		return err
	}

	s.audit.Record(ctx, models.AuditEvent{
		ClientID:   &job.ClientID,
		UserID:     job.CreatedBy,
		Action:     "export_ready",
		EntityType: "document_export",
		EntityID:   &job.ID,
		Metadata: map[string]interface{}{
			"storage_key":    key,
			"document_count": included,
			"zip_size":       len(archive),
		},
	})
	return nil
}

// buildArchive downloads each resolved document and streams it into a
// zip, skipping documents whose download fails. The writer's Close is
// what flushes the central directory; its error is fatal.
func (s *ExportService) buildArchive(ctx context.Context, job *models.ExportJob, docs []*models.Document) ([]byte, int, error) {
	jobLog := s.log.WithField("job_id", job.ID)

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, zipCompressionLevel)
	})

	included := 0
	names := make(map[string]bool)
	for _, doc := range docs {
		blob, err := s.blobs.Download(ctx, s.bucket, doc.StoragePath)
		if err != nil {
			if ctx.Err() != nil {
				zw.Close()
				return nil, 0, fmt.Errorf("export canceled while downloading: %w", ctx.Err())
			}
			jobLog.WithError(err).WithField("document_id", doc.ID).Warn("document download failed, skipping")
			continue
		}

		name := uniqueEntryName(names, doc.Name)

		w, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, 0, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := w.Write(blob); err != nil {
			zw.Close()
			return nil, 0, fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
		included++

		// Early abort on what has been flushed so far. Entries still
		// sitting in the compressor are caught by the post-Close check.
		if s.zipSizeLimit > 0 && int64(buf.Len()) > s.zipSizeLimit {
			zw.Close()
			return nil, 0, fmt.Errorf("archive exceeds size limit of %d bytes", s.zipSizeLimit)
		}
	}

	if included == 0 {
		zw.Close()
		return nil, 0, fmt.Errorf("no documents could be downloaded")
	}

	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	// Deflate buffers compressed bytes until Close, so the in-loop check
	// undercounts; the finished archive is measured here.
	if s.zipSizeLimit > 0 && int64(buf.Len()) > s.zipSizeLimit {
		return nil, 0, fmt.Errorf("archive exceeds size limit of %d bytes", s.zipSizeLimit)
	}
	return buf.Bytes(), included, nil
}

// uniqueEntryName claims an archive entry name, suffixing the stem with
// a counter when the name is already taken. Generated names are
// registered too, so a document literally named "report (1).pdf" cannot
// collide with one the dedup produced.
func uniqueEntryName(taken map[string]bool, name string) string {
	if !taken[name] {
		taken[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if !taken[candidate] {
			taken[candidate] = true
			return candidate
		}
	}
}

// failJob routes any pipeline error into the failed terminal state
func (s *ExportService) failJob(ctx context.Context, job *models.ExportJob, cause error) {
	if stderrors.Is(cause, context.DeadlineExceeded) {
		cause = fmt.Errorf("export timed out after %s: %w", s.timeout, errors.ErrExportTimeout)
	}

	s.log.WithError(cause).WithFields(logrus.Fields{
		"job_id":    job.ID,
		"client_id": job.ClientID,
	}).Error("export job failed")

	// The audit trail carries the same truncated message as the job row
	msg := repositories.TruncateError(cause.Error())

	if err := s.exports.MarkFailed(ctx, job.ID, msg); err != nil {
		// The job stays in processing; the stale sweep retries it later.
		s.log.WithError(err).WithField("job_id", job.ID).Error("failed to record export failure")
	}

	s.audit.Record(ctx, models.AuditEvent{
		ClientID:   &job.ClientID,
		UserID:     job.CreatedBy,
		Action:     "export_failed",
		EntityType: "document_export",
		EntityID:   &job.ID,
		Metadata: map[string]interface{}{
			"error":          msg,
			"document_count": len(job.DocumentIDs),
		},
	})
}
