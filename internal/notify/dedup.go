package notify

import (
	"sync"
	"time"
)

// Deduper suppresses repeat failure notifications per document id within a
// cooldown window. A document that fails again after the cooldown (after a
// retry, say) alerts again.
type Deduper struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewDeduper creates a new Deduper instance
func NewDeduper(cooldown time.Duration) *Deduper {
	return &Deduper{
		seen:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// ShouldNotify reports whether a notification for the document is due, and
// records the emission when it is.
func (d *Deduper) ShouldNotify(documentID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[documentID]; ok && now.Sub(last) < d.cooldown {
		return false
	}

	d.seen[documentID] = now

	// Drop stale entries so the set does not grow unbounded.
	for id, last := range d.seen {
		if now.Sub(last) >= d.cooldown {
			delete(d.seen, id)
		}
	}

	return true
}
