package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/samruben96/documine-sub011/internal/model"
	"github.com/samruben96/documine-sub011/shared/postgresql"
)

// Storage handles the API service's document and job-history queries.
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateDocumentWithJob inserts the document row and its initial pending
// job in one transaction so an upload never leaves a document without a
// job or vice versa.
func (s *Storage) CreateDocumentWithJob(ctx context.Context, doc *model.Document, job *model.ProcessingJob) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (
			id, agency_id, filename, storage_path, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		doc.ID, doc.AgencyID, doc.Filename, doc.StoragePath, doc.Status,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO processing_jobs (
			id, document_id, agency_id, status, stage, progress_percent,
			retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		job.ID, job.DocumentID, job.AgencyID, job.Status, job.Stage,
		job.ProgressPercent, job.RetryCount, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload: %w", err)
	}

	return nil
}

// DocumentForAgency loads the document scoped to the agency. Returns nil
// both for missing rows and for rows owned by another agency.
func (s *Storage) DocumentForAgency(ctx context.Context, documentID, agencyID string) (*model.Document, error) {
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

// JobFilter narrows the job-history listing.
type JobFilter struct {
	DocumentID string
	PageSize   int
	Cursor     *JobCursor
}

// JobCursor is the keyset-pagination cursor over (created_at, id).
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs pages through a document's job history newest-first.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.ProcessingJob, error) {
	query := `
		SELECT id, document_id, agency_id, status, stage, progress_percent,
		       retry_count, error_message, error_category, error_code,
		       started_at, completed_at, last_heartbeat_at, created_at, updated_at
		FROM processing_jobs
		WHERE document_id = $1
	`
	args := []interface{}{filter.DocumentID}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.ProcessingJob
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
