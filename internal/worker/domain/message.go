package domain

// Wakeup is a queued-job event pulled off RabbitMQ, paired with its
// delivery tag for ACK/NACK. The event names the job that was enqueued,
// but the worker always claims the agency's oldest pending job, so FIFO
// order holds regardless of message delivery order.
type Wakeup struct {
	JobID       string
	DocumentID  string
	AgencyID    string
	DeliveryTag uint64
}
