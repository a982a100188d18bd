package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/config"
	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/pkg/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExportStore struct {
	mu sync.Mutex

	pending      *models.ExportJob
	fetchErr     error
	claimResult  bool
	claimErr     error
	claimedIDs   []uuid.UUID
	readyKey     string
	readyCalled  bool
	failedMsg    string
	failedCalled bool
	markFailErr  error
	requeueAge   time.Duration
}

func (f *fakeExportStore) FetchNextPending(ctx context.Context) (*models.ExportJob, error) {
	return f.pending, f.fetchErr
}

func (f *fakeExportStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedIDs = append(f.claimedIDs, id)
	return f.claimResult, f.claimErr
}

func (f *fakeExportStore) MarkReady(ctx context.Context, id uuid.UUID, storageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalled = true
	f.readyKey = storageKey
	return nil
}

func (f *fakeExportStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedCalled = true
	f.failedMsg = errMsg
	return f.markFailErr
}

func (f *fakeExportStore) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeueAge = olderThan
	return 0, nil
}

type fakeResolver struct {
	docs []*models.Document
	err  error
}

func (f *fakeResolver) ResolveForExport(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) ([]*models.Document, error) {
	return f.docs, f.err
}

type fakeBlobStore struct {
	mu sync.Mutex

	objects      map[string][]byte
	downloadErrs map[string]error
	downloadHang bool
	uploadErr    error
	uploadedKey  string
	uploadedBody []byte
}

func (f *fakeBlobStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.downloadHang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := f.downloadErrs[key]; ok {
		return nil, err
	}
	blob, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return blob, nil
}

func (f *fakeBlobStore) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploadedKey = key
	f.uploadedBody = body
	return nil
}

type fakeAuditSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (f *fakeAuditSink) Record(ctx context.Context, event models.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeAuditSink) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(timeout time.Duration) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Bucket: "test-bucket"},
		Export: config.ExportConfig{
			Timeout:      timeout,
			ZipSizeLimit: 0,
		},
	}
}

func testJob(docIDs ...uuid.UUID) *models.ExportJob {
	return &models.ExportJob{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		Status:      models.ExportStatusPending,
		DocumentIDs: docIDs,
	}
}

func newTestService(store *fakeExportStore, resolver *fakeResolver, blobs *fakeBlobStore, audit *fakeAuditSink, timeout time.Duration) *ExportService {
	return NewExportService(store, resolver, blobs, audit, testLogger(), testConfig(timeout))
}

func readZipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestExportStorageKey(t *testing.T) {
	clientID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	jobID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := ExportStorageKey(clientID, jobID)
	assert.Equal(t, "clients/11111111-1111-1111-1111-111111111111/exports/22222222-2222-2222-2222-222222222222/export.zip", key)

	// Same inputs always yield the same key
	assert.Equal(t, key, ExportStorageKey(clientID, jobID))
}

func TestProcessDocumentExports_Success(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	job := testJob(docA, docB)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "balance.pdf", StoragePath: "docs/a"},
		{ID: docB, ClientID: job.ClientID, Name: "vat-q2.xlsx", StoragePath: "docs/b"},
	}}
	blobs := &fakeBlobStore{objects: map[string][]byte{
		"docs/a": []byte("pdf bytes"),
		"docs/b": []byte("xlsx bytes"),
	}}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.readyCalled)
	assert.False(t, store.failedCalled)
	assert.Equal(t, ExportStorageKey(job.ClientID, job.ID), store.readyKey)
	assert.Equal(t, store.readyKey, blobs.uploadedKey)

	names := readZipNames(t, blobs.uploadedBody)
	assert.ElementsMatch(t, []string{"balance.pdf", "vat-q2.xlsx"}, names)

	assert.Equal(t, []string{"export_ready"}, audit.actions())
	assert.Equal(t, 2*time.Minute, store.requeueAge)
}

func TestProcessDocumentExports_ClaimLost(t *testing.T) {
	job := testJob(uuid.New())
	store := &fakeExportStore{pending: job, claimResult: false}
	blobs := &fakeBlobStore{}
	audit := &fakeAuditSink{}

	svc := newTestService(store, &fakeResolver{}, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	assert.Equal(t, []uuid.UUID{job.ID}, store.claimedIDs)
	assert.False(t, store.readyCalled)
	assert.False(t, store.failedCalled)
	assert.Empty(t, blobs.uploadedKey)
	assert.Empty(t, audit.actions())
}

func TestProcessDocumentExports_NoPendingJobs(t *testing.T) {
	store := &fakeExportStore{pending: nil}
	audit := &fakeAuditSink{}

	svc := newTestService(store, &fakeResolver{}, &fakeBlobStore{}, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	assert.Empty(t, store.claimedIDs)
	assert.False(t, store.readyCalled)
	assert.False(t, store.failedCalled)
}

func TestProcessDocumentExports_PartialDownloadFailure(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	job := testJob(docA, docB)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "keep.pdf", StoragePath: "docs/a"},
		{ID: docB, ClientID: job.ClientID, Name: "gone.pdf", StoragePath: "docs/b"},
	}}
	blobs := &fakeBlobStore{
		objects:      map[string][]byte{"docs/a": []byte("ok")},
		downloadErrs: map[string]error{"docs/b": errors.New("object vanished")},
	}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.readyCalled)
	assert.False(t, store.failedCalled)

	names := readZipNames(t, blobs.uploadedBody)
	assert.Equal(t, []string{"keep.pdf"}, names)
}

func TestProcessDocumentExports_AllDownloadsFail(t *testing.T) {
	docA := uuid.New()
	job := testJob(docA)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "a.pdf", StoragePath: "docs/a"},
	}}
	blobs := &fakeBlobStore{
		downloadErrs: map[string]error{"docs/a": errors.New("object vanished")},
	}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.failedCalled)
	assert.False(t, store.readyCalled)
	assert.Contains(t, store.failedMsg, "no documents could be downloaded")
	assert.Equal(t, []string{"export_failed"}, audit.actions())
}

func TestProcessDocumentExports_NoValidDocuments(t *testing.T) {
	job := testJob(uuid.New())

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: nil}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, &fakeBlobStore{}, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.failedCalled)
	assert.Contains(t, store.failedMsg, "No valid documents found for export")
	assert.Equal(t, []string{"export_failed"}, audit.actions())
}

func TestProcessDocumentExports_Timeout(t *testing.T) {
	docA := uuid.New()
	job := testJob(docA)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "slow.pdf", StoragePath: "docs/a"},
	}}
	blobs := &fakeBlobStore{downloadHang: true}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, 20*time.Millisecond)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.failedCalled)
	assert.False(t, store.readyCalled)
	assert.Contains(t, store.failedMsg, "export timed out after")
	assert.Equal(t, []string{"export_failed"}, audit.actions())
}

func TestProcessDocumentExports_UploadAlreadyExists(t *testing.T) {
	docA := uuid.New()
	job := testJob(docA)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "a.pdf", StoragePath: "docs/a"},
	}}
	blobs := &fakeBlobStore{
		objects:   map[string][]byte{"docs/a": []byte("ok")},
		uploadErr: storage.ErrObjectExists,
	}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	// A retried job whose earlier attempt uploaded before dying still
	// completes: same key, same content.
	require.True(t, store.readyCalled)
	assert.False(t, store.failedCalled)
	assert.Equal(t, ExportStorageKey(job.ClientID, job.ID), store.readyKey)
}

func TestProcessDocumentExports_UploadError(t *testing.T) {
	docA := uuid.New()
	job := testJob(docA)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "a.pdf", StoragePath: "docs/a"},
	}}
	blobs := &fakeBlobStore{
		objects:   map[string][]byte{"docs/a": []byte("ok")},
		uploadErr: errors.New("connection reset"),
	}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.failedCalled)
	assert.Contains(t, store.failedMsg, "failed to upload archive")
}

func TestBuildArchive_DuplicateNames(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	docC := uuid.New()
	job := testJob(docA, docB, docC)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "report.pdf", StoragePath: "docs/a"},
		{ID: docB, ClientID: job.ClientID, Name: "report.pdf", StoragePath: "docs/b"},
		// A document whose real name matches a generated one must not
		// collide with it either
		{ID: docC, ClientID: job.ClientID, Name: "report (1).pdf", StoragePath: "docs/c"},
	}}
	blobs := &fakeBlobStore{objects: map[string][]byte{
		"docs/a": []byte("first"),
		"docs/b": []byte("second"),
		"docs/c": []byte("third"),
	}}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, blobs, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.readyCalled)
	names := readZipNames(t, blobs.uploadedBody)
	assert.Len(t, names, 3)
	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate entry name %q", n)
		seen[n] = true
	}
	assert.ElementsMatch(t, []string{"report.pdf", "report (1).pdf", "report (1) (1).pdf"}, names)
}

func TestUniqueEntryName_SuffixBeforeExtension(t *testing.T) {
	taken := make(map[string]bool)
	assert.Equal(t, "report.pdf", uniqueEntryName(taken, "report.pdf"))
	assert.Equal(t, "report (1).pdf", uniqueEntryName(taken, "report.pdf"))
	assert.Equal(t, "report (2).pdf", uniqueEntryName(taken, "report.pdf"))
	assert.Equal(t, "notes", uniqueEntryName(taken, "notes"))
	assert.Equal(t, "notes (1)", uniqueEntryName(taken, "notes"))
}

func TestBuildArchive_SizeLimit(t *testing.T) {
	docA := uuid.New()
	job := testJob(docA)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "big.bin", StoragePath: "docs/a"},
	}}
	// Random-ish payload so deflate cannot shrink it below the limit
	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i*31 + i>>3)
	}
	blobs := &fakeBlobStore{objects: map[string][]byte{"docs/a": payload}}
	audit := &fakeAuditSink{}

	cfg := testConfig(time.Minute)
	cfg.Export.ZipSizeLimit = 1024
	svc := NewExportService(store, resolver, blobs, audit, testLogger(), cfg)
	svc.ProcessDocumentExports(context.Background())

	// Even a single document, whose compressed bytes only land in the
	// buffer at finalize, must not slip past the budget.
	require.True(t, store.failedCalled)
	assert.False(t, store.readyCalled)
	assert.Empty(t, blobs.uploadedKey)
	assert.Contains(t, store.failedMsg, "archive exceeds size limit")
}

func TestBuildArchive_SizeLimitManyDocuments(t *testing.T) {
	docA := uuid.New()
	docB := uuid.New()
	docC := uuid.New()
	job := testJob(docA, docB, docC)

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "a.bin", StoragePath: "docs/a"},
		{ID: docB, ClientID: job.ClientID, Name: "b.bin", StoragePath: "docs/b"},
		{ID: docC, ClientID: job.ClientID, Name: "c.bin", StoragePath: "docs/c"},
	}}
	payload := make([]byte, 32*1024)
	for i := range payload {
		payload[i] = byte(i*31 + i>>3)
	}
	blobs := &fakeBlobStore{objects: map[string][]byte{
		"docs/a": payload,
		"docs/b": payload,
		"docs/c": payload,
	}}
	audit := &fakeAuditSink{}

	cfg := testConfig(time.Minute)
	cfg.Export.ZipSizeLimit = 4096
	svc := NewExportService(store, resolver, blobs, audit, testLogger(), cfg)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.failedCalled)
	assert.False(t, store.readyCalled)
	assert.Contains(t, store.failedMsg, "archive exceeds size limit")
}

func TestFailJob_TruncatesErrorEverywhere(t *testing.T) {
	job := testJob(uuid.New())

	store := &fakeExportStore{pending: job, claimResult: true}
	resolver := &fakeResolver{err: errors.New(strings.Repeat("x", 600))}
	audit := &fakeAuditSink{}

	svc := newTestService(store, resolver, &fakeBlobStore{}, audit, time.Minute)
	svc.ProcessDocumentExports(context.Background())

	require.True(t, store.failedCalled)
	assert.Len(t, []rune(store.failedMsg), 500)

	require.Len(t, audit.events, 1)
	recorded, ok := audit.events[0].Metadata["error"].(string)
	require.True(t, ok)
	// The audit trail carries the same bounded message as the job row
	assert.Equal(t, store.failedMsg, recorded)
	assert.Len(t, []rune(recorded), 500)
}

func TestProcessDocumentExports_ConcurrentClaim(t *testing.T) {
	// Two workers race for the same job; the guarded claim lets exactly
	// one through.
	docA := uuid.New()
	job := testJob(docA)

	var mu sync.Mutex
	claimed := false

	storeA := &racingExportStore{job: job, claimed: &claimed, mu: &mu}
	storeB := &racingExportStore{job: job, claimed: &claimed, mu: &mu}

	resolver := &fakeResolver{docs: []*models.Document{
		{ID: docA, ClientID: job.ClientID, Name: "a.pdf", StoragePath: "docs/a"},
	}}
	blobs := &fakeBlobStore{objects: map[string][]byte{"docs/a": []byte("ok")}}

	svcA := newTestService2(storeA, resolver, blobs, &fakeAuditSink{}, time.Minute)
	svcB := newTestService2(storeB, resolver, blobs, &fakeAuditSink{}, time.Minute)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); svcA.ProcessDocumentExports(context.Background()) }()
	go func() { defer wg.Done(); svcB.ProcessDocumentExports(context.Background()) }()
	wg.Wait()

	processed := 0
	if storeA.readyCalled {
		processed++
	}
	if storeB.readyCalled {
		processed++
	}
	assert.Equal(t, 1, processed, "exactly one worker should win the claim")
}

// racingExportStore shares a claimed flag across instances to model the
// database's conditional update.
type racingExportStore struct {
	job     *models.ExportJob
	claimed *bool
	mu      *sync.Mutex

	readyCalled bool
}

func (r *racingExportStore) FetchNextPending(ctx context.Context) (*models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if *r.claimed {
		return nil, nil
	}
	jobCopy := *r.job
	return &jobCopy, nil
}

func (r *racingExportStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if *r.claimed {
		return false, nil
	}
	*r.claimed = true
	return true, nil
}

func (r *racingExportStore) MarkReady(ctx context.Context, id uuid.UUID, storageKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readyCalled = true
	return nil
}

func (r *racingExportStore) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return nil
}

func (r *racingExportStore) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func newTestService2(store ExportStore, resolver DocumentResolver, blobs BlobStore, audit AuditSink, timeout time.Duration) *ExportService {
	return NewExportService(store, resolver, blobs, audit, testLogger(), testConfig(timeout))
}
