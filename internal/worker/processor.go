package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/samruben96/documine-sub011/internal/model"
	"github.com/samruben96/documine-sub011/internal/notify"
	"github.com/samruben96/documine-sub011/internal/parser"
	"github.com/samruben96/documine-sub011/internal/worker/domain"
)

// processWakeup handles one queued-job event. The event only says "this
// agency has work": the actual unit of work is whatever ClaimNextForAgency
// hands back, which is always the agency's oldest pending job.
//
// A nil return means the delivery is done with, whether or not a job ran.
// An agency that is at its concurrency limit or already has an active job
// gets picked up again by the kick published when that job finishes.
func (w *Worker) processWakeup(ctx context.Context, wakeup *domain.Wakeup) error {
	limit := w.limiter.CheckProcessingRateLimit(ctx, wakeup.AgencyID)
	if !limit.Allowed {
		w.logger.Debug("Agency at concurrent processing limit",
			slog.String("agency_id", wakeup.AgencyID),
			slog.Int("current", limit.CurrentProcessing),
			slog.Int("limit", limit.MaxConcurrent),
		)
		return nil
	}

	job, err := w.queue.ClaimNextForAgency(ctx, wakeup.AgencyID)
	if err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}
	if job == nil {
		w.logger.Debug("Nothing claimable for agency",
			slog.String("agency_id", wakeup.AgencyID),
		)
		return nil
	}

	w.logger.Info("Processing job",
		slog.String("job_id", job.ID),
		slog.String("agency_id", job.AgencyID),
		slog.String("worker_id", w.workerID),
	)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.ID, heartbeatDone)
	defer close(heartbeatDone)

	if err := w.runJob(jobCtx, job); err != nil {
		return err
	}

	w.kickAgency(ctx, job.AgencyID)
	return nil
}

// runJob takes a claimed job through parse and into a terminal state.
func (w *Worker) runJob(ctx context.Context, job *model.ProcessingJob) error {
	doc, err := w.storage.DocumentByID(ctx, job.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return w.failJob(ctx, job, "document row missing for job", notify.CategoryUnknown, "DOC_MISSING")
		}
		return domain.NewRetryableError(fmt.Errorf("failed to load document: %w", err))
	}

	file, err := os.Open(doc.StoragePath)
	if err != nil {
		return w.failJob(ctx, job,
			fmt.Sprintf("failed to open stored file: %s", err.Error()),
			notify.CategoryCorruptFile, "FILE_OPEN",
		)
	}
	defer file.Close()

	result, err := w.parser.Parse(ctx, doc.Filename, file)
	if err != nil {
		var parseErr *parser.Error
		if errors.As(err, &parseErr) {
			return w.failJob(ctx, job, parseErr.Message, parseErr.Category, parseErr.Code)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return w.failJob(ctx, job, "parsing exceeded the job timeout", notify.CategoryTimeout, "JOB_TIMEOUT")
		}
		return w.failJob(ctx, job, err.Error(), notify.CategoryUnknown, "PARSE_FAILED")
	}

	if err := w.storage.MarkDocumentReady(ctx, doc.ID, result.Markdown, result.PageCount); err != nil {
		// The parse output is lost if we complete the job anyway, so
		// leave the job processing and let the retry of the delivery
		// run the parse again.
		return domain.NewRetryableError(fmt.Errorf("failed to store parsed output: %w", err))
	}

	if _, err := w.queue.CompleteJob(ctx, job.ID); err != nil {
		w.logger.Error("Failed to complete job after storing output",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return domain.NewRetryableError(fmt.Errorf("failed to complete job: %w", err))
	}

	w.logger.Info("Job completed",
		slog.String("job_id", job.ID),
		slog.String("document_id", doc.ID),
		slog.Int("page_count", result.PageCount),
	)

	return nil
}

// failJob records the failure verbatim on the job row and flips the
// document to failed. The raw message is never shown to end users;
// translation happens at the notification boundary.
func (w *Worker) failJob(ctx context.Context, job *model.ProcessingJob, message, category, code string) error {
	w.logger.Warn("Job failed",
		slog.String("job_id", job.ID),
		slog.String("category", category),
		slog.String("code", code),
		slog.String("error", message),
	)

	if _, err := w.queue.FailJob(ctx, job.ID, message, category, code); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to record job failure: %w", err))
	}

	if err := w.storage.MarkDocumentFailed(ctx, job.DocumentID); err != nil {
		w.logger.Error("Failed to mark document failed",
			slog.String("document_id", job.DocumentID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// kickAgency publishes a fresh queued-job event when the agency still has
// pending work, so the next job starts without waiting for an upload.
func (w *Worker) kickAgency(ctx context.Context, agencyID string) {
	pending, err := w.queue.GetPendingJobsForAgency(ctx, agencyID)
	if err != nil {
		w.logger.Warn("Failed to check pending jobs after terminal transition",
			slog.String("agency_id", agencyID),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(pending) == 0 {
		return
	}

	next := pending[0]
	body, err := json.Marshal(model.JobQueuedMessage{
		JobID:      next.ID,
		DocumentID: next.DocumentID,
		AgencyID:   agencyID,
	})
	if err != nil {
		w.logger.Error("Failed to encode kick message", slog.String("error", err.Error()))
		return
	}

	if err := w.rabbitClient.Publish(ctx, body, "application/json"); err != nil {
		w.logger.Warn("Failed to publish kick for next pending job",
			slog.String("agency_id", agencyID),
			slog.String("job_id", next.ID),
			slog.String("error", err.Error()),
		)
	}
}

// sendJobHeartbeat periodically refreshes the job's heartbeat while it runs
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID string, done <-chan struct{}) {
	interval := w.heartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := w.queue.TouchHeartbeat(ctx, jobID); err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
