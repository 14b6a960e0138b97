package model

// JobQueuedMessage is the wakeup the API publishes when an agency gains a
// pending job. It is a hint, not the unit of work: the worker always claims
// the agency's oldest pending job, so FIFO order holds even when messages
// arrive out of order.
type JobQueuedMessage struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	AgencyID   string `json:"agency_id"`
}
