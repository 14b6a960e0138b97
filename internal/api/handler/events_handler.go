package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// keepAliveInterval keeps idle SSE connections from being reaped by
// intermediaries.
const keepAliveInterval = 25 * time.Second

// StreamEvents handles GET /api/v1/events
// Streams the agency's document notifications over SSE until the client
// disconnects.
func (h *DocumentHandler) StreamEvents(c *gin.Context) {
	agencyID := AgencyID(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	notifications, cancel := h.hub.Subscribe(agencyID)
	defer cancel()

	h.logger.Debug("SSE subscriber connected", slog.String("agency_id", agencyID))

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case notification, ok := <-notifications:
			if !ok {
				return false
			}

			payload, err := json.Marshal(notification)
			if err != nil {
				h.logger.Error("Failed to encode notification",
					slog.String("document_id", notification.DocumentID),
					slog.String("error", err.Error()),
				)
				return true
			}

			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
			return true

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			return true

		case <-c.Request.Context().Done():
			return false
		}
	})

	h.logger.Debug("SSE subscriber disconnected", slog.String("agency_id", agencyID))
}
