package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samruben96/documine-sub011/internal/model"
)

// QueuePosition describes where a document's job sits in its agency queue.
// Position is -1 when the document has no active job, 0 when its job is
// currently processing, and N>=1 for its 1-indexed FIFO rank among pending
// jobs.
type QueuePosition struct {
	Position     int  `json:"position"`
	IsProcessing bool `json:"is_processing"`
}

// Manager enforces FIFO ordering per agency and the
// single-active-job-per-agency rule on top of a Store. Cross-agency
// parallelism is unconstrained; only within one agency is concurrency
// serialized to 1.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a new Manager instance
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
	}
}

// CanProcessForAgency reports whether the agency currently has no
// processing job.
func (m *Manager) CanProcessForAgency(ctx context.Context, agencyID string) (bool, error) {
	count, err := m.store.CountProcessing(ctx, agencyID)
	if err != nil {
		return false, fmt.Errorf("failed to check agency processing state: %w", err)
	}
	return count == 0, nil
}

// GetNextPendingJob returns the agency's oldest pending job, or nil when
// the queue is empty. Selection uses skip-locked semantics so concurrent
// callers never see the same row.
func (m *Manager) GetNextPendingJob(ctx context.Context, agencyID string) (*model.ProcessingJob, error) {
	return m.store.OldestPendingJob(ctx, agencyID)
}

// ClaimJob atomically transitions the job from pending to processing.
// A nil result means another caller won the race; treat it as "try another
// job", not as a failure.
func (m *Manager) ClaimJob(ctx context.Context, jobID string) (*model.ProcessingJob, error) {
	return m.store.ClaimJob(ctx, jobID)
}

// ClaimNextForAgency claims the agency's oldest pending job only when no
// job for the agency is processing. Returns nil when the agency is busy or
// idle.
func (m *Manager) ClaimNextForAgency(ctx context.Context, agencyID string) (*model.ProcessingJob, error) {
	return m.store.ClaimNextForAgency(ctx, agencyID)
}

// GetPendingJobsForAgency returns the agency's pending jobs in FIFO order.
func (m *Manager) GetPendingJobsForAgency(ctx context.Context, agencyID string) ([]model.ProcessingJob, error) {
	return m.store.PendingJobs(ctx, agencyID)
}

// GetAgencyQueuePosition resolves the document's place in its agency queue.
func (m *Manager) GetAgencyQueuePosition(ctx context.Context, documentID string) (*QueuePosition, error) {
	job, err := m.store.LatestJobForDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue position: %w", err)
	}

	if job == nil || job.IsTerminal() {
		return &QueuePosition{Position: -1}, nil
	}

	if job.Status == model.JobStatusProcessing {
		return &QueuePosition{Position: 0, IsProcessing: true}, nil
	}

	rank, err := m.store.PendingRank(ctx, job.AgencyID, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue position: %w", err)
	}

	return &QueuePosition{Position: rank}, nil
}

// CompleteJob records a successful terminal transition.
func (m *Manager) CompleteJob(ctx context.Context, jobID string) (*model.ProcessingJob, error) {
	job, err := m.store.CompleteJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Job completed",
		slog.String("job_id", job.ID),
		slog.String("agency_id", job.AgencyID),
	)

	return job, nil
}

// FailJob records a failed terminal transition with the raw parser error.
func (m *Manager) FailJob(ctx context.Context, jobID, message, category, code string) (*model.ProcessingJob, error) {
	job, err := m.store.FailJob(ctx, jobID, message, category, code)
	if err != nil {
		return nil, err
	}

	m.logger.Warn("Job failed",
		slog.String("job_id", job.ID),
		slog.String("agency_id", job.AgencyID),
		slog.String("error_category", category),
		slog.String("error_code", code),
	)

	return job, nil
}

// TouchHeartbeat refreshes the heartbeat on a processing job. The stuck-job
// reaper reads last_heartbeat_at; this component never increments
// retry_count itself.
func (m *Manager) TouchHeartbeat(ctx context.Context, jobID string) error {
	return m.store.TouchHeartbeat(ctx, jobID)
}
