package notify

import (
	"log/slog"
	"time"
)

// Notifier turns job transitions into user-facing notifications. It is a
// consumer of the change stream, never a mutator of job state.
type Notifier struct {
	dedup          *Deduper
	successDismiss time.Duration
	logger         *slog.Logger
}

// NewNotifier creates a new Notifier instance
func NewNotifier(dedup *Deduper, successDismiss time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		dedup:          dedup,
		successDismiss: successDismiss,
		logger:         logger,
	}
}

func isReady(status string) bool {
	return status == "ready" || status == "completed"
}

// NotificationFor maps one transition to at most one notification. Nil
// means the transition is not user-visible.
func (n *Notifier) NotificationFor(ev JobEvent) *Notification {
	switch {
	case isReady(ev.NewStatus) && !isReady(ev.OldStatus):
		return &Notification{
			Type:           NotificationSuccess,
			DocumentID:     ev.DocumentID,
			Filename:       ev.Filename,
			Message:        ev.Filename + " is ready",
			DismissAfterMS: n.successDismiss.Milliseconds(),
		}

	case ev.NewStatus == "failed" && ev.OldStatus != "failed":
		if !n.dedup.ShouldNotify(ev.DocumentID) {
			n.logger.Debug("Failure notification suppressed by cooldown",
				slog.String("document_id", ev.DocumentID),
			)
			return nil
		}

		category := Classify(ev.ErrorMessage)
		message, action := UserMessage(category)

		return &Notification{
			Type:            NotificationError,
			DocumentID:      ev.DocumentID,
			Filename:        ev.Filename,
			Message:         message,
			SuggestedAction: action,
		}
	}

	return nil
}
