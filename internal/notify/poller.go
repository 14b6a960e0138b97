package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/samruben96/documine-sub011/internal/model"
)

// DocumentReader supplies the authoritative document state the poller
// reconciles against.
type DocumentReader interface {
	DocumentsForAgency(ctx context.Context, agencyID string) ([]model.Document, error)
}

type documentSnapshot struct {
	status    string
	updatedAt time.Time
}

// Poller is the pull side of the feed: it periodically re-fetches document
// status for every agency with subscribers and synthesizes events for rows
// the push feed missed. Reconciliation is latest-write-wins on the row's
// own updated_at, so a stale poll can never overwrite a newer push.
type Poller struct {
	reader    DocumentReader
	hub       *Hub
	notifier  *Notifier
	interval  time.Duration
	maxErrors int
	logger    *slog.Logger

	seen map[string]map[string]documentSnapshot
}

// NewPoller creates a new Poller instance
func NewPoller(reader DocumentReader, hub *Hub, notifier *Notifier, interval time.Duration, maxErrors int, logger *slog.Logger) *Poller {
	return &Poller{
		reader:    reader,
		hub:       hub,
		notifier:  notifier,
		interval:  interval,
		maxErrors: maxErrors,
		logger:    logger,
		seen:      make(map[string]map[string]documentSnapshot),
	}
}

// Run polls until the context is canceled or too many consecutive fetch
// errors accumulate. Giving up protects a misconfigured or unauthenticated
// deployment from hammering the store.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Status poller started",
		slog.Duration("interval", p.interval),
		slog.Int("max_errors", p.maxErrors),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Status poller stopped")
			return

		case <-ticker.C:
			if err := p.tick(ctx); err != nil {
				consecutiveErrors++
				p.logger.Warn("Status poll failed",
					slog.Int("consecutive_errors", consecutiveErrors),
					slog.String("error", err.Error()),
				)
				if consecutiveErrors >= p.maxErrors {
					p.logger.Error("Status poller disabled after repeated failures")
					return
				}
				continue
			}
			consecutiveErrors = 0
		}
	}
}

func (p *Poller) tick(ctx context.Context) error {
	for _, agencyID := range p.hub.ActiveAgencies() {
		documents, err := p.reader.DocumentsForAgency(ctx, agencyID)
		if err != nil {
			return err
		}
		p.reconcile(agencyID, documents)
	}
	return nil
}

func (p *Poller) reconcile(agencyID string, documents []model.Document) {
	snapshots := p.seen[agencyID]
	if snapshots == nil {
		snapshots = make(map[string]documentSnapshot)
		p.seen[agencyID] = snapshots
	}

	for _, doc := range documents {
		prev, known := snapshots[doc.ID]

		if known && !doc.UpdatedAt.After(prev.updatedAt) {
			continue
		}

		if known && prev.status != doc.Status {
			ev := JobEvent{
				DocumentID: doc.ID,
				AgencyID:   agencyID,
				OldStatus:  prev.status,
				NewStatus:  doc.Status,
				Filename:   doc.Filename,
				UpdatedAt:  doc.UpdatedAt,
			}
			if notification := p.notifier.NotificationFor(ev); notification != nil {
				p.hub.Publish(agencyID, *notification)
			}
		}

		snapshots[doc.ID] = documentSnapshot{status: doc.Status, updatedAt: doc.UpdatedAt}
	}
}
