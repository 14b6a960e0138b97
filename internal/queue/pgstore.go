package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/samruben96/documine-sub011/internal/model"
)

const jobColumns = `
	id, document_id, agency_id, status, stage, progress_percent,
	retry_count, error_message, error_category, error_code,
	started_at, completed_at, last_heartbeat_at, created_at, updated_at`

// PGStore implements Store against PostgreSQL using sqlx.
type PGStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPGStore creates a new PGStore instance
func NewPGStore(db *sqlx.DB, logger *slog.Logger) *PGStore {
	return &PGStore{
		db:     db,
		logger: logger,
	}
}

func (s *PGStore) CreateJob(ctx context.Context, job *model.ProcessingJob) error {
	query := `
		INSERT INTO processing_jobs (
			id, document_id, agency_id, status, stage, progress_percent,
			retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.DocumentID,
		job.AgencyID,
		job.Status,
		job.Stage,
		job.ProgressPercent,
		job.RetryCount,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *PGStore) JobByID(ctx context.Context, jobID string) (*model.ProcessingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs WHERE id = $1`

	var job model.ProcessingJob
	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (s *PGStore) LatestJobForDocument(ctx context.Context, documentID string) (*model.ProcessingJob, error) {
	query := `
		SELECT ` + jobColumns + `
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
		return nil, fmt.Errorf("failed to get latest job for document: %w", err)
	}

	return &job, nil
}

func (s *PGStore) CountProcessing(ctx context.Context, agencyID string) (int, error) {
	query := `SELECT COUNT(*) FROM processing_jobs WHERE agency_id = $1 AND status = $2`

	var count int
	err := s.db.GetContext(ctx, &count, query, agencyID, model.JobStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to count processing jobs: %w", err)
	}

	return count, nil
}

// OldestPendingJob selects inside a short transaction so FOR UPDATE SKIP
// LOCKED applies. The row lock is released immediately; claiming is still
// the conditional update in ClaimJob.
func (s *PGStore) OldestPendingJob(ctx context.Context, agencyID string) (*model.ProcessingJob, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT ` + jobColumns + `
		FROM processing_jobs
		WHERE agency_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var job model.ProcessingJob
	err = tx.GetContext(ctx, &job, query, agencyID, model.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select oldest pending job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &job, nil
}

// ClaimJob attempts to claim a job using a conditional update.
// Returns nil when the row is no longer pending - the expected lost-race
// outcome, not an error.
func (s *PGStore) ClaimJob(ctx context.Context, jobID string) (*model.ProcessingJob, error) {
	query := `
		UPDATE processing_jobs
		SET status = $1,
		    stage = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		RETURNING ` + jobColumns

	var job model.ProcessingJob
	err := s.db.GetContext(ctx, &job, query, model.JobStatusProcessing, model.JobStageParsing, jobID, model.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("Job already claimed or not pending",
				slog.String("job_id", jobID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", job.ID),
		slog.String("agency_id", job.AgencyID),
	)

	return &job, nil
}

// ClaimNextForAgency serializes claim attempts per agency with a
// transaction-scoped advisory lock, then enforces the one-active-job rule
// and FIFO order before the conditional update. The advisory lock closes
// the window where two workers both observe zero processing jobs.
func (s *PGStore) ClaimNextForAgency(ctx context.Context, agencyID string) (*model.ProcessingJob, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, agencyID); err != nil {
		return nil, fmt.Errorf("failed to take agency claim lock: %w", err)
	}

	var processing int
	err = tx.GetContext(ctx, &processing,
		`SELECT COUNT(*) FROM processing_jobs WHERE agency_id = $1 AND status = $2`,
		agencyID, model.JobStatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count processing jobs: %w", err)
	}
	if processing > 0 {
		return nil, nil
	}

	query := `
		UPDATE processing_jobs
		SET status = $1,
		    stage = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM processing_jobs
			WHERE agency_id = $3 AND status = $4
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		  AND status = $4
		RETURNING ` + jobColumns

	var job model.ProcessingJob
	err = tx.GetContext(ctx, &job, query, model.JobStatusProcessing, model.JobStageParsing, agencyID, model.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim next job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	s.logger.Info("Job claimed for agency",
		slog.String("job_id", job.ID),
		slog.String("agency_id", agencyID),
	)

	return &job, nil
}

func (s *PGStore) PendingJobs(ctx context.Context, agencyID string) ([]model.ProcessingJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM processing_jobs
		WHERE agency_id = $1 AND status = $2
		ORDER BY created_at ASC
	`

	var jobs []model.ProcessingJob
	err := s.db.SelectContext(ctx, &jobs, query, agencyID, model.JobStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	return jobs, nil
}

func (s *PGStore) PendingRank(ctx context.Context, agencyID string, createdAt time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM processing_jobs
		WHERE agency_id = $1 AND status = $2 AND created_at <= $3
	`

	var rank int
	err := s.db.GetContext(ctx, &rank, query, agencyID, model.JobStatusPending, createdAt)
	if err != nil {
		return 0, fmt.Errorf("failed to compute pending rank: %w", err)
	}

	return rank, nil
}

func (s *PGStore) CompleteJob(ctx context.Context, jobID string) (*model.ProcessingJob, error) {
	query := `
		UPDATE processing_jobs
		SET status = $1,
		    stage = $2,
		    progress_percent = 100,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		RETURNING ` + jobColumns

	var job model.ProcessingJob
	err := s.db.GetContext(ctx, &job, query, model.JobStatusCompleted, model.JobStageFinalizing, jobID, model.JobStatusProcessing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotProcessing
		}
		return nil, fmt.Errorf("failed to complete job: %w", err)
	}

	return &job, nil
}

func (s *PGStore) FailJob(ctx context.Context, jobID, message, category, code string) (*model.ProcessingJob, error) {
	query := `
		UPDATE processing_jobs
		SET status = $1,
		    error_message = $2,
		    error_category = $3,
		    error_code = $4,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $5
		  AND status = $6
		RETURNING ` + jobColumns

	var job model.ProcessingJob
	err := s.db.GetContext(ctx, &job, query, model.JobStatusFailed, message, category, code, jobID, model.JobStatusProcessing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotProcessing
		}
		return nil, fmt.Errorf("failed to fail job: %w", err)
	}

	return &job, nil
}

func (s *PGStore) TouchHeartbeat(ctx context.Context, jobID string) error {
	query := `
		UPDATE processing_jobs
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, jobID, model.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update job heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Job heartbeat update - no rows affected (job may not be processing)",
			slog.String("job_id", jobID),
		)
	}

	return nil
}
