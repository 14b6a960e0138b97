package model

import (
	"database/sql"
	"time"
)

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job stage labels, advisory sub-state for UI display only
const (
	JobStageQueued     = "queued"
	JobStageParsing    = "parsing"
	JobStageFinalizing = "finalizing"
)

// ProcessingJob is one attempt to process one document.
// agency_id is duplicated onto the job for query efficiency even though
// it is derivable via the document.
type ProcessingJob struct {
	ID              string         `db:"id"`
	DocumentID      string         `db:"document_id"`
	AgencyID        string         `db:"agency_id"`
	Status          string         `db:"status"`
	Stage           string         `db:"stage"`
	ProgressPercent int            `db:"progress_percent"`
	RetryCount      int            `db:"retry_count"`
	ErrorMessage    sql.NullString `db:"error_message"`
	ErrorCategory   sql.NullString `db:"error_category"`
	ErrorCode       sql.NullString `db:"error_code"`
	StartedAt       sql.NullTime   `db:"started_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
	LastHeartbeatAt sql.NullTime   `db:"last_heartbeat_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// IsTerminal reports whether the job has reached a final state.
func (j *ProcessingJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// IsActive reports whether the job still occupies the agency's queue.
func (j *ProcessingJob) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}
