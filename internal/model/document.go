package model

import (
	"database/sql"
	"time"
)

// Document status constants, mirroring the job lifecycle
const (
	DocumentStatusUploading  = "uploading"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

// Document is the uploaded file a job processes. The queue subsystem only
// mutates status and the parsed-output columns; everything else belongs to
// the document-management collaborator.
type Document struct {
	ID            string         `db:"id"`
	AgencyID      string         `db:"agency_id"`
	Filename      string         `db:"filename"`
	StoragePath   string         `db:"storage_path"`
	Status        string         `db:"status"`
	ParsedContent sql.NullString `db:"parsed_content"`
	PageCount     sql.NullInt64  `db:"page_count"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// Agency holds the tenant fields the queue subsystem reads.
type Agency struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	SubscriptionTier string    `db:"subscription_tier"`
	CreatedAt        time.Time `db:"created_at"`
}
