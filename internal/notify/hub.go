package notify

import (
	"log/slog"
	"sync"
)

// Hub fans notifications out to per-agency subscribers. Slow subscribers
// drop notifications rather than block the feed; the polling fallback
// reconciles whatever they missed.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Notification]struct{}
	logger      *slog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Notification]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for the agency. The returned cancel
// function must be called when the client disconnects.
func (h *Hub) Subscribe(agencyID string) (<-chan Notification, func()) {
	ch := make(chan Notification, 16)

	h.mu.Lock()
	if h.subscribers[agencyID] == nil {
		h.subscribers[agencyID] = make(map[chan Notification]struct{})
	}
	h.subscribers[agencyID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[agencyID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, agencyID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}

	return ch, cancel
}

// Publish delivers the notification to every subscriber of the agency.
func (h *Hub) Publish(agencyID string, notification Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[agencyID] {
		select {
		case ch <- notification:
		default:
			h.logger.Warn("Dropping notification for slow subscriber",
				slog.String("agency_id", agencyID),
				slog.String("document_id", notification.DocumentID),
			)
		}
	}
}

// ActiveAgencies lists agencies with at least one subscriber. The polling
// fallback only reconciles these.
func (h *Hub) ActiveAgencies() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	agencies := make([]string, 0, len(h.subscribers))
	for agencyID := range h.subscribers {
		agencies = append(agencies, agencyID)
	}
	return agencies
}
