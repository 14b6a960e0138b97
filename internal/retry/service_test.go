package retry

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samruben96/documine-sub011/internal/model"
)

type fakeStore struct {
	document     *model.Document
	documentErr  error
	latestJob    *model.ProcessingJob
	latestJobErr error
	resetErr     error
	createErr    error
	docStatusErr error

	createdJob     *model.ProcessingJob
	resetJobID     string
	documentStatus string
}

func (f *fakeStore) DocumentForAgency(_ context.Context, documentID, agencyID string) (*model.Document, error) {
	if f.documentErr != nil {
		return nil, f.documentErr
	}
	if f.document == nil || f.document.ID != documentID || f.document.AgencyID != agencyID {
		return nil, nil
	}
	return f.document, nil
}

func (f *fakeStore) LatestJobForDocument(context.Context, string) (*model.ProcessingJob, error) {
	return f.latestJob, f.latestJobErr
}

func (f *fakeStore) ResetFailedJob(_ context.Context, jobID string) (*model.ProcessingJob, error) {
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	if f.latestJob == nil || f.latestJob.ID != jobID || f.latestJob.Status != model.JobStatusFailed {
		return nil, nil
	}
	f.resetJobID = jobID
	reset := *f.latestJob
	reset.Status = model.JobStatusPending
	reset.Stage = model.JobStageQueued
	reset.ProgressPercent = 0
	reset.ErrorMessage = sql.NullString{}
	reset.ErrorCategory = sql.NullString{}
	reset.ErrorCode = sql.NullString{}
	reset.StartedAt = sql.NullTime{}
	reset.CompletedAt = sql.NullTime{}
	return &reset, nil
}

func (f *fakeStore) CreateJob(_ context.Context, job *model.ProcessingJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdJob = job
	return nil
}

func (f *fakeStore) SetDocumentStatus(_ context.Context, _, status string) error {
	if f.docStatusErr != nil {
		return f.docStatusErr
	}
	f.documentStatus = status
	return nil
}

func failedJob(retryCount int) *model.ProcessingJob {
	return &model.ProcessingJob{
		ID:              "job-1",
		DocumentID:      "doc-1",
		AgencyID:        "agency-1",
		Status:          model.JobStatusFailed,
		Stage:           "parsing",
		ProgressPercent: 45,
		RetryCount:      retryCount,
		ErrorMessage:    sql.NullString{String: "docling: corrupt xref table", Valid: true},
		ErrorCategory:   sql.NullString{String: "corrupt_file", Valid: true},
		ErrorCode:       sql.NullString{String: "PARSE_400", Valid: true},
		StartedAt:       sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true},
		CompletedAt:     sql.NullTime{Time: time.Now(), Valid: true},
		CreatedAt:       time.Now().Add(-2 * time.Minute),
	}
}

func ownedDocument() *model.Document {
	return &model.Document{ID: "doc-1", AgencyID: "agency-1", Filename: "policy.pdf"}
}

func newService(store Store) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRetryFailedJob(t *testing.T) {
	store := &fakeStore{document: ownedDocument(), latestJob: failedJob(2)}

	job, err := newService(store).Retry(context.Background(), "agency-1", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, model.JobStageQueued, job.Stage)
	assert.Equal(t, 0, job.ProgressPercent)
	assert.Equal(t, 2, job.RetryCount, "retry_count is carried forward, not incremented")
	assert.False(t, job.ErrorMessage.Valid)
	assert.False(t, job.ErrorCategory.Valid)
	assert.False(t, job.ErrorCode.Valid)
	assert.False(t, job.StartedAt.Valid)
	assert.False(t, job.CompletedAt.Valid)

	assert.Equal(t, "job-1", store.resetJobID)
	assert.Equal(t, model.DocumentStatusProcessing, store.documentStatus)
}

func TestRetryRejectsNonFailedJobs(t *testing.T) {
	for _, status := range []string{
		model.JobStatusPending,
		model.JobStatusProcessing,
		model.JobStatusCompleted,
	} {
		t.Run(status, func(t *testing.T) {
			job := failedJob(0)
			job.Status = status
			store := &fakeStore{document: ownedDocument(), latestJob: job}

			_, err := newService(store).Retry(context.Background(), "agency-1", "doc-1")
			assert.ErrorIs(t, err, ErrInvalidJobState)
			assert.Empty(t, store.resetJobID, "no mutation on invalid state")
			assert.Empty(t, store.documentStatus)
		})
	}
}

func TestRetryCrossTenantLooksLikeNotFound(t *testing.T) {
	store := &fakeStore{document: ownedDocument(), latestJob: failedJob(0)}

	_, err := newService(store).Retry(context.Background(), "agency-2", "doc-1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRetryMissingDocument(t *testing.T) {
	store := &fakeStore{}

	_, err := newService(store).Retry(context.Background(), "agency-1", "doc-404")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRetryWithoutJobHistoryCreatesFreshJob(t *testing.T) {
	store := &fakeStore{document: ownedDocument()}

	job, err := newService(store).Retry(context.Background(), "agency-1", "doc-1")
	require.NoError(t, err)

	require.NotNil(t, store.createdJob)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Equal(t, "doc-1", job.DocumentID)
	assert.Equal(t, "agency-1", job.AgencyID)
}

func TestRetryLostResetRace(t *testing.T) {
	// Validation saw a failed job but the conditional reset matched no row.
	store := &fakeStore{document: ownedDocument(), latestJob: failedJob(1)}

	svc := NewService(&racingStore{fakeStore: store}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := svc.Retry(context.Background(), "agency-1", "doc-1")
	assert.ErrorIs(t, err, ErrInvalidJobState)
}

// racingStore reports a failed latest job but refuses the reset, as if a
// worker re-claimed the row in between.
type racingStore struct {
	*fakeStore
}

func (r *racingStore) ResetFailedJob(context.Context, string) (*model.ProcessingJob, error) {
	return nil, nil
}

func TestRetryDatastoreErrorsSurface(t *testing.T) {
	store := &fakeStore{document: ownedDocument(), latestJob: failedJob(0), resetErr: errors.New("connection reset")}

	_, err := newService(store).Retry(context.Background(), "agency-1", "doc-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidJobState)
	assert.NotErrorIs(t, err, ErrDocumentNotFound)
}

func TestRetryDocumentStatusUpdateIsBestEffort(t *testing.T) {
	store := &fakeStore{
		document:     ownedDocument(),
		latestJob:    failedJob(3),
		docStatusErr: errors.New("documents table locked"),
	}

	job, err := newService(store).Retry(context.Background(), "agency-1", "doc-1")
	require.NoError(t, err, "document status errors are swallowed")
	assert.Equal(t, model.JobStatusPending, job.Status)
}
