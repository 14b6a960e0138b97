package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samruben96/documine-sub011/internal/api/dto"
	"github.com/samruben96/documine-sub011/internal/api/storage"
	"github.com/samruben96/documine-sub011/internal/notify"
	"github.com/samruben96/documine-sub011/internal/queue"
	"github.com/samruben96/documine-sub011/internal/ratelimit"
	"github.com/samruben96/documine-sub011/internal/retry"
	"github.com/samruben96/documine-sub011/shared/rabbitmq"
)

// Error codes returned in the machine-readable error envelope
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeNoAgency         = "NO_AGENCY"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeInvalidJobState  = "INVALID_JOB_STATE"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// StorageConfig holds the upload-file settings the handlers need.
type StorageConfig struct {
	UploadDir     string
	MaxUploadSize int64
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Storage   *storage.Storage
	Queue     *queue.Manager
	Limiter   *ratelimit.Limiter
	Retry     *retry.Service
	Hub       *notify.Hub
	Publisher *rabbitmq.Client
	Files     StorageConfig
}

// DocumentHandler handles document upload and queue HTTP requests
type DocumentHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	queue     *queue.Manager
	limiter   *ratelimit.Limiter
	retry     *retry.Service
	hub       *notify.Hub
	publisher *rabbitmq.Client
	files     StorageConfig
}

// NewDocumentHandler creates a new DocumentHandler instance
func NewDocumentHandler(deps *Dependencies) *DocumentHandler {
	return &DocumentHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		queue:     deps.Queue,
		limiter:   deps.Limiter,
		retry:     deps.Retry,
		hub:       deps.Hub,
		publisher: deps.Publisher,
		files:     deps.Files,
	}
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.Response{Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Response{
		Data:  nil,
		Error: &dto.ErrorBody{Code: code, Message: message},
	})
}

func respondInternal(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, CodeInternalError, "Something went wrong")
}
