package notify

import "time"

// JobEvent is one row transition on the jobs/documents relation, as
// delivered by the change feed or synthesized by the polling fallback.
type JobEvent struct {
	JobID        string    `json:"job_id"`
	DocumentID   string    `json:"document_id"`
	AgencyID     string    `json:"agency_id"`
	OldStatus    string    `json:"old_status"`
	NewStatus    string    `json:"new_status"`
	Filename     string    `json:"filename"`
	ErrorMessage string    `json:"error_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Notification types
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
)

// Notification is a user-facing message derived from a job transition.
// Message holds the non-technical text; the raw error stays on the job row.
type Notification struct {
	Type            string `json:"type"`
	DocumentID      string `json:"document_id"`
	Filename        string `json:"filename"`
	Message         string `json:"message"`
	SuggestedAction string `json:"suggested_action,omitempty"`
	DismissAfterMS  int64  `json:"dismiss_after_ms,omitempty"`
}
