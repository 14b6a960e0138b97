package retry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/samruben96/documine-sub011/internal/model"
)

// PGStore implements Store against PostgreSQL.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore creates a new PGStore instance
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) DocumentForAgency(ctx context.Context, documentID, agencyID string) (*model.Document, error) {
	query := `
		SELECT id, agency_id, filename, storage_path, status,
		       parsed_content, page_count, created_at, updated_at
		FROM documents
		WHERE id = $1 AND agency_id = $2
	`

	var doc model.Document
	err := s.db.GetContext(ctx, &doc, query, documentID, agencyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

func (s *PGStore) LatestJobForDocument(ctx context.Context, documentID string) (*model.ProcessingJob, error) {
	query := `
		SELECT id, document_id, agency_id, status, stage, progress_percent,
		       retry_count, error_message, error_category, error_code,
		       started_at, completed_at, last_heartbeat_at, created_at, updated_at
		FROM processing_jobs
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var job model.ProcessingJob
	err := s.db.GetContext(ctx, &job, query, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}

	return &job, nil
}

// ResetFailedJob is a single conditional update so a concurrent state
// change between validation and reset loses cleanly. retry_count is
// deliberately not touched.
func (s *PGStore) ResetFailedJob(ctx context.Context, jobID string) (*model.ProcessingJob, error) {
	query := `
		UPDATE processing_jobs
		SET status = $1,
		    stage = $2,
		    progress_percent = 0,
		    error_message = NULL,
		    error_category = NULL,
		    error_code = NULL,
		    started_at = NULL,
		    completed_at = NULL,
		    last_heartbeat_at = NULL,
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		RETURNING id, document_id, agency_id, status, stage, progress_percent,
		          retry_count, error_message, error_category, error_code,
		          started_at, completed_at, last_heartbeat_at, created_at, updated_at
	`

	var job model.ProcessingJob
	err := s.db.GetContext(ctx, &job, query, model.JobStatusPending, model.JobStageQueued, jobID, model.JobStatusFailed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reset failed job: %w", err)
	}

	return &job, nil
}

func (s *PGStore) CreateJob(ctx context.Context, job *model.ProcessingJob) error {
	query := `
		INSERT INTO processing_jobs (
			id, document_id, agency_id, status, stage, progress_percent,
			retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID, job.DocumentID, job.AgencyID, job.Status, job.Stage,
		job.ProgressPercent, job.RetryCount, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *PGStore) SetDocumentStatus(ctx context.Context, documentID, status string) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`

	_, err := s.db.ExecContext(ctx, query, status, documentID)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	return nil
}
