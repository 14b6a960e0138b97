package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samruben96/documine-sub011/internal/parser"
	"github.com/samruben96/documine-sub011/internal/queue"
	"github.com/samruben96/documine-sub011/internal/ratelimit"
	"github.com/samruben96/documine-sub011/internal/worker/domain"
	"github.com/samruben96/documine-sub011/internal/worker/storage"
	"github.com/samruben96/documine-sub011/shared/postgresql"
	"github.com/samruben96/documine-sub011/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger            *slog.Logger
	DBClient          *postgresql.Client
	RabbitClient      *rabbitmq.Client
	Parser            *parser.Client
	TierOverrides     map[string]ratelimit.TierLimits
	Concurrency       int
	PrefetchCount     int
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	QueueName         string
}

// Worker consumes queued-job events and runs documents through the
// parsing pipeline.
type Worker struct {
	logger            *slog.Logger
	rabbitClient      *rabbitmq.Client
	queue             *queue.Manager
	limiter           *ratelimit.Limiter
	parser            *parser.Client
	storage           *storage.Storage
	workerID          string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	queueName         string
	jobsChan          chan *domain.Wakeup
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	db := cfg.DBClient.GetDB()

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = cfg.Concurrency
	}

	return &Worker{
		logger:            cfg.Logger,
		rabbitClient:      cfg.RabbitClient,
		queue:             queue.NewManager(queue.NewPGStore(db, cfg.Logger), cfg.Logger),
		limiter:           ratelimit.NewLimiter(ratelimit.NewPGStore(db), ratelimit.NewTierTable(cfg.TierOverrides), cfg.Logger),
		parser:            cfg.Parser,
		storage:           storage.NewStorage(db, cfg.Logger),
		workerID:          "worker-" + uuid.New().String()[:8],
		concurrency:       cfg.Concurrency,
		prefetchCount:     prefetch,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		queueName:         cfg.QueueName,
		jobsChan:          make(chan *domain.Wakeup),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming queued-job events and blocks until the context
// is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
