package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samruben96/documine-sub011/internal/model"
)

var (
	// ErrDocumentNotFound covers both missing documents and cross-tenant
	// access, so existence is never leaked across agencies.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidJobState is returned when the document's latest job is not
	// in failed status.
	ErrInvalidJobState = errors.New("only failed jobs may be retried")
)

// Store defines the persistence operations for manual retries.
type Store interface {
	// DocumentForAgency loads the document scoped to the agency. Returns
	// nil for missing rows and for rows owned by another agency.
	DocumentForAgency(ctx context.Context, documentID, agencyID string) (*model.Document, error)

	// LatestJobForDocument returns the most recent job by created_at
	// descending, or nil if the document has no job history.
	LatestJobForDocument(ctx context.Context, documentID string) (*model.ProcessingJob, error)

	// ResetFailedJob resets the job back to pending in one conditional
	// update guarded on status=failed: error fields, started_at and
	// completed_at cleared, stage queued, progress zero, retry_count left
	// untouched. Returns nil if the guard no longer holds.
	ResetFailedJob(ctx context.Context, jobID string) (*model.ProcessingJob, error)

	// CreateJob inserts a fresh pending job.
	CreateJob(ctx context.Context, job *model.ProcessingJob) error

	// SetDocumentStatus updates the parent document's status.
	SetDocumentStatus(ctx context.Context, documentID, status string) error
}

// Service validates and executes manual retries of failed documents.
// Incrementing retry_count is not its job; that belongs to the automatic
// stuck-job reaper.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new retry Service instance
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Retry resubmits the document's failed job into pending state, or creates
// a fresh job when the document has no job history at all. The returned
// job re-enters the claim cycle.
func (s *Service) Retry(ctx context.Context, agencyID, documentID string) (*model.ProcessingJob, error) {
	doc, err := s.store.DocumentForAgency(ctx, documentID, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	latest, err := s.store.LatestJobForDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job history: %w", err)
	}

	var job *model.ProcessingJob
	if latest != nil {
		if latest.Status != model.JobStatusFailed {
			return nil, ErrInvalidJobState
		}

		job, err = s.store.ResetFailedJob(ctx, latest.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reset job: %w", err)
		}
		if job == nil {
			// The job left failed status between the read and the reset.
			return nil, ErrInvalidJobState
		}

		s.logger.Info("Failed job requeued",
			slog.String("job_id", job.ID),
			slog.String("document_id", documentID),
			slog.Int("retry_count", job.RetryCount),
		)
	} else {
		now := time.Now()
		job = &model.ProcessingJob{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			AgencyID:   agencyID,
			Status:     model.JobStatusPending,
			Stage:      model.JobStageQueued,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to create job: %w", err)
		}

		s.logger.Info("Job created for document without history",
			slog.String("job_id", job.ID),
			slog.String("document_id", documentID),
		)
	}

	// Optimistic UI signal; the job row stays authoritative, so a failure
	// here is logged and swallowed.
	if err := s.store.SetDocumentStatus(ctx, documentID, model.DocumentStatusProcessing); err != nil {
		s.logger.Warn("Failed to update document status after retry",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
	}

	return job, nil
}
