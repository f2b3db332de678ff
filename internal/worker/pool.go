package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"scoreboard/internal/apperr"
	"scoreboard/internal/metrics"
)

// Handler processes one message body for a tenant.
type Handler func(ctx context.Context, tenantID int64, body []byte) error

type WorkerPool struct {
	tenantID int64
	handler  Handler
	logger   *slog.Logger
	jobs     chan amqp.Delivery

	mu      sync.Mutex
	ctx     context.Context
	stopCh  chan struct{}
	wg      sync.WaitGroup
	workers int
	running bool
}

func NewWorkerPool(tenantID int64, handler Handler, workerCount int, logger *slog.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		tenantID: tenantID,
		handler:  handler,
		logger:   logger,
		jobs:     make(chan amqp.Delivery),
		workers:  workerCount,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.ctx = ctx
	wp.start()
}

func (wp *WorkerPool) start() {
	wp.running = true
	wp.logger.Info("worker_pool_started", slog.Int64("tenant_id", wp.tenantID), slog.Int("workers", wp.workers))
	wp.stopCh = make(chan struct{})
	tenant := metrics.Tenant(wp.tenantID)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go func(stopCh <-chan struct{}) {
			defer wp.wg.Done()
			metrics.WorkerActive.WithLabelValues(tenant).Add(1)
			defer metrics.WorkerActive.WithLabelValues(tenant).Sub(1)

			for {
				select {
				case <-stopCh:
					return
				case msg := <-wp.jobs:
					wp.handleMessage(msg)
				}
			}
		}(wp.stopCh)
	}
}

// Submit hands a delivery to the next free worker. It blocks while all
// workers are busy.
func (wp *WorkerPool) Submit(msg amqp.Delivery) {
	wp.jobs <- msg
}

func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.stop()
}

func (wp *WorkerPool) stop() {
	if !wp.running {
		return
	}
	wp.running = false
	close(wp.stopCh)
	wp.wg.Wait()
	wp.logger.Info("worker_pool_stopped", slog.Int64("tenant_id", wp.tenantID))
}

func (wp *WorkerPool) handleMessage(msg amqp.Delivery) {
	err := wp.handler(wp.ctx, wp.tenantID, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
		metrics.WorkerProcessed.WithLabelValues(metrics.Tenant(wp.tenantID)).Inc()
	case apperr.IsRetryable(err):
		wp.logger.Warn("recompute_requeued", slog.Int64("tenant_id", wp.tenantID), slog.Any("error", err))
		_ = msg.Nack(false, true)
	default:
		wp.logger.Error("recompute_failed", slog.Int64("tenant_id", wp.tenantID), slog.Any("error", err))
		_ = msg.Reject(false) // send to DLQ
	}
}

// SetWorkerCount updates the worker pool to use a new concurrency level
func (wp *WorkerPool) SetWorkerCount(n int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if n <= 0 || n == wp.workers {
		return
	}

	wp.logger.Info("worker_pool_rescaled", slog.Int64("tenant_id", wp.tenantID), slog.Int("from", wp.workers), slog.Int("to", n))

	wasRunning := wp.running
	wp.stop()
	wp.workers = n
	if wasRunning {
		wp.start()
	}
}

func (wp *WorkerPool) Workers() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.workers
}
