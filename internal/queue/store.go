package queue

import (
	"context"
	"time"

	"github.com/samruben96/documine-sub011/internal/model"
)

// Store defines the persistence operations the queue manager is built on.
// Implementations must perform every mutation as a single atomic conditional
// statement keyed on the row's current status; a plain read-then-write pair
// is a bug.
type Store interface {
	// CreateJob inserts a new pending job row.
	CreateJob(ctx context.Context, job *model.ProcessingJob) error

	// JobByID returns the job or ErrJobNotFound.
	JobByID(ctx context.Context, jobID string) (*model.ProcessingJob, error)

	// LatestJobForDocument returns the most recent job for the document by
	// created_at descending, or nil if the document has no job history.
	LatestJobForDocument(ctx context.Context, documentID string) (*model.ProcessingJob, error)

	// CountProcessing returns the number of jobs currently in processing
	// status for the agency.
	CountProcessing(ctx context.Context, agencyID string) (int, error)

	// OldestPendingJob returns the agency's oldest pending job using
	// SELECT ... FOR UPDATE SKIP LOCKED semantics so concurrent callers
	// never select the same row. Returns nil when the queue is empty.
	OldestPendingJob(ctx context.Context, agencyID string) (*model.ProcessingJob, error)

	// ClaimJob transitions the job from pending to processing iff its status
	// is still pending at update time. Returns nil (not an error) when
	// another caller already claimed it.
	ClaimJob(ctx context.Context, jobID string) (*model.ProcessingJob, error)

	// ClaimNextForAgency claims the agency's oldest pending job iff the
	// agency has no processing job, serialized per agency. Returns nil when
	// the agency is busy or has nothing pending.
	ClaimNextForAgency(ctx context.Context, agencyID string) (*model.ProcessingJob, error)

	// PendingJobs returns the agency's pending jobs ascending by created_at.
	PendingJobs(ctx context.Context, agencyID string) ([]model.ProcessingJob, error)

	// PendingRank returns the 1-indexed count of pending jobs for the agency
	// with created_at older than or equal to the given timestamp.
	PendingRank(ctx context.Context, agencyID string, createdAt time.Time) (int, error)

	// CompleteJob transitions processing -> completed, setting completed_at.
	CompleteJob(ctx context.Context, jobID string) (*model.ProcessingJob, error)

	// FailJob transitions processing -> failed, recording the raw error
	// verbatim. Translation to user-facing text happens at the notification
	// boundary, never here.
	FailJob(ctx context.Context, jobID, message, category, code string) (*model.ProcessingJob, error)

	// TouchHeartbeat refreshes last_heartbeat_at on a processing job.
	TouchHeartbeat(ctx context.Context, jobID string) error
}
