package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// EventChannel is the NOTIFY channel the job-status trigger publishes on.
const EventChannel = "document_job_events"

// ChangeFeed subscribes to the Postgres change feed and pushes derived
// notifications into the hub. Missed events during reconnects are covered
// by the polling fallback.
type ChangeFeed struct {
	listener *pq.Listener
	notifier *Notifier
	hub      *Hub
	logger   *slog.Logger
}

// NewChangeFeed opens a LISTEN subscription on the event channel.
func NewChangeFeed(dsn string, notifier *Notifier, hub *Hub, logger *slog.Logger) (*ChangeFeed, error) {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("Change feed listener event",
				slog.Int("event", int(event)),
				slog.String("error", err.Error()),
			)
		}
	})

	if err := listener.Listen(EventChannel); err != nil {
		listener.Close()
		return nil, err
	}

	return &ChangeFeed{
		listener: listener,
		notifier: notifier,
		hub:      hub,
		logger:   logger,
	}, nil
}

// Run consumes the feed until the context is canceled.
func (f *ChangeFeed) Run(ctx context.Context) {
	f.logger.Info("Change feed started", slog.String("channel", EventChannel))

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	defer f.listener.Close()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Change feed stopped")
			return

		case <-ping.C:
			// Keeps the connection alive and forces a reconnect attempt
			// when it has silently died.
			if err := f.listener.Ping(); err != nil {
				f.logger.Warn("Change feed ping failed", slog.String("error", err.Error()))
			}

		case pgNotify, ok := <-f.listener.Notify:
			if !ok {
				f.logger.Warn("Change feed notify channel closed")
				return
			}
			if pgNotify == nil {
				// nil is delivered after a reconnect; the poller fills the gap.
				continue
			}
			f.handlePayload(pgNotify.Extra)
		}
	}
}

func (f *ChangeFeed) handlePayload(payload string) {
	var ev JobEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		f.logger.Error("Failed to parse change feed payload",
			slog.String("error", err.Error()),
			slog.String("payload", payload),
		)
		return
	}

	notification := f.notifier.NotificationFor(ev)
	if notification == nil {
		return
	}

	f.hub.Publish(ev.AgencyID, *notification)
}
