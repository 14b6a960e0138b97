package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/samruben96/documine-sub011/internal/api/dto"
	"github.com/samruben96/documine-sub011/internal/api/storage"
	"github.com/samruben96/documine-sub011/internal/model"
	"github.com/samruben96/documine-sub011/internal/retry"
)

// UploadDocument handles POST /api/v1/documents
// Checks the agency's upload quota, stores the file, and enqueues the
// processing job.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	agencyID := AgencyID(c)

	limit := h.limiter.CheckUploadRateLimit(c.Request.Context(), agencyID)
	if !limit.Allowed {
		c.JSON(http.StatusTooManyRequests, dto.Response{
			Data:  limit,
			Error: &dto.ErrorBody{Code: CodeRateLimited, Message: "Hourly upload limit reached"},
		})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "A file upload is required")
		return
	}

	if file.Size > h.files.MaxUploadSize {
		respondError(c, http.StatusRequestEntityTooLarge, CodeInvalidRequest, "File is too large")
		return
	}

	documentID := uuid.New().String()
	storagePath := filepath.Join(h.files.UploadDir, documentID+filepath.Ext(file.Filename))

	if err := os.MkdirAll(h.files.UploadDir, 0o755); err != nil {
		h.logger.Error("Failed to create upload directory", slog.String("error", err.Error()))
		respondInternal(c)
		return
	}

	if err := c.SaveUploadedFile(file, storagePath); err != nil {
		h.logger.Error("Failed to store uploaded file",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		respondInternal(c)
		return
	}

	now := time.Now()
	doc := &model.Document{
		ID:          documentID,
		AgencyID:    agencyID,
		Filename:    file.Filename,
		StoragePath: storagePath,
		Status:      model.DocumentStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	job := &model.ProcessingJob{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		AgencyID:   agencyID,
		Status:     model.JobStatusPending,
		Stage:      model.JobStageQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.storage.CreateDocumentWithJob(c.Request.Context(), doc, job); err != nil {
		h.logger.Error("Failed to create document and job",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		respondInternal(c)
		return
	}

	h.publishJobQueued(c, job)

	position, err := h.queue.GetAgencyQueuePosition(c.Request.Context(), documentID)
	if err != nil {
		h.logger.Warn("Failed to resolve queue position after upload",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		position = nil
	}

	resp := dto.UploadResponse{DocumentID: documentID, JobID: job.ID, QueuePosition: -1}
	if position != nil {
		resp.QueuePosition = position.Position
	}

	respondData(c, http.StatusCreated, resp)
}

// RetryDocument handles POST /api/v1/documents/:document_id/retry
// Resubmits a failed document into the processing queue.
func (h *DocumentHandler) RetryDocument(c *gin.Context) {
	agencyID := AgencyID(c)

	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "document_id must be a valid UUID")
		return
	}

	job, err := h.retry.Retry(c.Request.Context(), agencyID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, retry.ErrDocumentNotFound):
			respondError(c, http.StatusNotFound, CodeDocumentNotFound, "Document not found")
		case errors.Is(err, retry.ErrInvalidJobState):
			respondError(c, http.StatusBadRequest, CodeInvalidJobState, "Only failed documents can be retried")
		default:
			h.logger.Error("Retry failed",
				slog.String("document_id", documentID),
				slog.String("error", err.Error()),
			)
			respondInternal(c)
		}
		return
	}

	h.publishJobQueued(c, job)

	respondData(c, http.StatusOK, dto.RetryResponse{Success: true, DocumentID: documentID})
}

// GetQueuePosition handles GET /api/v1/documents/:document_id/queue-position
func (h *DocumentHandler) GetQueuePosition(c *gin.Context) {
	agencyID := AgencyID(c)

	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "document_id must be a valid UUID")
		return
	}

	doc, err := h.storage.DocumentForAgency(c.Request.Context(), documentID, agencyID)
	if err != nil {
		h.logger.Error("Failed to load document", slog.String("error", err.Error()))
		respondInternal(c)
		return
	}
	if doc == nil {
		respondError(c, http.StatusNotFound, CodeDocumentNotFound, "Document not found")
		return
	}

	position, err := h.queue.GetAgencyQueuePosition(c.Request.Context(), documentID)
	if err != nil {
		h.logger.Error("Failed to resolve queue position", slog.String("error", err.Error()))
		respondInternal(c)
		return
	}

	respondData(c, http.StatusOK, dto.NewQueuePositionResponse(position))
}

// GetRateLimitInfo handles GET /api/v1/agencies/rate-limit
func (h *DocumentHandler) GetRateLimitInfo(c *gin.Context) {
	agencyID := AgencyID(c)
	ctx := c.Request.Context()

	respondData(c, http.StatusOK, dto.RateLimitResponse{
		Upload:     h.limiter.CheckUploadRateLimit(ctx, agencyID),
		Processing: h.limiter.CheckProcessingRateLimit(ctx, agencyID),
	})
}

// ListJobs handles GET /api/v1/documents/:document_id/jobs
// Lists the document's job history with cursor pagination
func (h *DocumentHandler) ListJobs(c *gin.Context) {
	agencyID := AgencyID(c)

	documentID := c.Param("document_id")
	if _, err := uuid.Parse(documentID); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "document_id must be a valid UUID")
		return
	}

	doc, err := h.storage.DocumentForAgency(c.Request.Context(), documentID, agencyID)
	if err != nil {
		h.logger.Error("Failed to load document", slog.String("error", err.Error()))
		respondInternal(c)
		return
	}
	if doc == nil {
		respondError(c, http.StatusNotFound, CodeDocumentNotFound, "Document not found")
		return
	}

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid query parameters")
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid cursor")
		return
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), storage.JobFilter{
		DocumentID: documentID,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		respondInternal(c)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = jobToDTO(job)
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.ID,
		})
	}

	respondData(c, http.StatusOK, resp)
}

func jobToDTO(job model.ProcessingJob) dto.JobDTO {
	out := dto.JobDTO{
		ID:              job.ID,
		DocumentID:      job.DocumentID,
		Status:          job.Status,
		Stage:           job.Stage,
		ProgressPercent: job.ProgressPercent,
		RetryCount:      job.RetryCount,
		ErrorMessage:    job.ErrorMessage.String,
		ErrorCategory:   job.ErrorCategory.String,
		ErrorCode:       job.ErrorCode.String,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
	}
	if job.StartedAt.Valid {
		out.StartedAt = job.StartedAt.Time.Format(time.RFC3339)
	}
	if job.CompletedAt.Valid {
		out.CompletedAt = job.CompletedAt.Time.Format(time.RFC3339)
	}
	return out
}

// publishJobQueued wakes the worker fleet. The job row is already durable,
// so a publish failure is logged rather than failing the request; the next
// queued event for the agency will pick the job up in FIFO order.
func (h *DocumentHandler) publishJobQueued(c *gin.Context, job *model.ProcessingJob) {
	msg := model.JobQueuedMessage{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
		AgencyID:   job.AgencyID,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode job queued message", slog.String("error", err.Error()))
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish job queued message",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
