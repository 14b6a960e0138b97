package dto

import (
	"github.com/samruben96/documine-sub011/internal/queue"
	"github.com/samruben96/documine-sub011/internal/ratelimit"
)

// ErrorBody is the machine-readable error envelope. No stack traces or
// internal identifiers leave the API boundary.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the uniform data/error envelope.
type Response struct {
	Data  interface{} `json:"data"`
	Error *ErrorBody  `json:"error,omitempty"`
}

// UploadResponse is returned by POST /documents.
type UploadResponse struct {
	DocumentID    string `json:"document_id"`
	JobID         string `json:"job_id"`
	QueuePosition int    `json:"queue_position"`
}

// RetryResponse is returned by POST /documents/:document_id/retry.
type RetryResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"document_id"`
}

// RateLimitResponse bundles both limit checks for the agency.
type RateLimitResponse struct {
	Upload     *ratelimit.UploadRateLimit     `json:"upload"`
	Processing *ratelimit.ProcessingRateLimit `json:"processing"`
}

// QueuePositionResponse mirrors the queue manager's position result.
type QueuePositionResponse struct {
	Position     int  `json:"position"`
	IsProcessing bool `json:"is_processing"`
}

// NewQueuePositionResponse converts a manager result.
func NewQueuePositionResponse(pos *queue.QueuePosition) QueuePositionResponse {
	return QueuePositionResponse{Position: pos.Position, IsProcessing: pos.IsProcessing}
}

// ListJobsRequest is the query for the document job-history listing.
type ListJobsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// JobDTO is one job row in the history listing.
type JobDTO struct {
	ID              string `json:"id"`
	DocumentID      string `json:"document_id"`
	Status          string `json:"status"`
	Stage           string `json:"stage"`
	ProgressPercent int    `json:"progress_percent"`
	RetryCount      int    `json:"retry_count"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ErrorCategory   string `json:"error_category,omitempty"`
	ErrorCode       string `json:"error_code,omitempty"`
	StartedAt       string `json:"started_at,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ListJobsResponse is the cursor-paginated history page.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}
