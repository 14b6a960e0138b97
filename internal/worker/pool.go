package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samruben96/documine-sub011/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case wakeup, ok := <-w.jobsChan:
			if !ok {
				return
			}

			err := w.processWakeup(ctx, wakeup)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("agency_id", wakeup.AgencyID),
				)
				continue
			}

			if err != nil {
				w.logger.Error("Wakeup processing failed",
					slog.String("worker_name", workerName),
					slog.String("agency_id", wakeup.AgencyID),
					slog.String("error", err.Error()),
				)

				// Transient failures are requeued so another worker can
				// retry; anything else is already recorded on the job row.
				requeue := isRetryable(err)

				if nackErr := channel.Nack(wakeup.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if ackErr := channel.Ack(wakeup.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("worker_name", workerName),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}

func isRetryable(err error) bool {
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
