package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/samruben96/documine-sub011/internal/api/dto"
	"github.com/samruben96/documine-sub011/internal/api/handler"
)

// AgencyHeader carries the caller's tenant identity.
const AgencyHeader = "X-Agency-ID"

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		)

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("Request error",
					slog.String("error", e.Error()),
					slog.Uint64("type", uint64(e.Type)),
				)
			}
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Agency-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AgencyMiddleware resolves the tenant from the X-Agency-ID header. Every
// query downstream is scoped to this agency; a request without a valid
// agency never reaches a handler.
func AgencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyID := c.GetHeader(AgencyHeader)
		if agencyID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Response{
				Error: &dto.ErrorBody{
					Code:    handler.CodeUnauthenticated,
					Message: "Missing " + AgencyHeader + " header",
				},
			})
			return
		}

		if _, err := uuid.Parse(agencyID); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Response{
				Error: &dto.ErrorBody{
					Code:    handler.CodeNoAgency,
					Message: "Invalid agency identifier",
				},
			})
			return
		}

		handler.SetAgencyID(c, agencyID)
		c.Next()
	}
}
