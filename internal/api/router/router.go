package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samruben96/documine-sub011/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "document-api-service",
		})
	})

	documentHandler := handler.NewDocumentHandler(deps)

	// API v1 routes, all tenant-scoped
	v1 := r.Group("/api/v1")
	v1.Use(AgencyMiddleware())
	{
		documents := v1.Group("/documents")
		{
			// POST /api/v1/documents - Upload a document for processing
			documents.POST("", documentHandler.UploadDocument)

			// POST /api/v1/documents/:document_id/retry - Retry a failed document
			documents.POST("/:document_id/retry", documentHandler.RetryDocument)

			// GET /api/v1/documents/:document_id/queue-position - Current queue position
			documents.GET("/:document_id/queue-position", documentHandler.GetQueuePosition)

			// GET /api/v1/documents/:document_id/jobs - Processing job history
			documents.GET("/:document_id/jobs", documentHandler.ListJobs)
		}

		// GET /api/v1/agencies/rate-limit - Upload and processing limit status
		v1.GET("/agencies/rate-limit", documentHandler.GetRateLimitInfo)

		// GET /api/v1/events - SSE notification stream
		v1.GET("/events", documentHandler.StreamEvents)
	}

	return r
}
