package worker

import (
	"context"
	"sync"
	"time"

	"github.com/maschat/masscoin-ledger/internal/observability"
	"github.com/maschat/masscoin-ledger/internal/service"
	"go.uber.org/zap"
)

// ExpiryWorker sweeps transfer requests past their expiry and refunds the
// escrowed amounts. Multiple instances are safe: the per-request
// compare-and-set decides which sweep wins.
type ExpiryWorker struct {
	requests     *service.TransferRequestService
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
	stopOnce     sync.Once
}

func NewExpiryWorker(requests *service.TransferRequestService) *ExpiryWorker {
	return &ExpiryWorker{
		requests:     requests,
		pollInterval: time.Hour,
		batchSize:    100,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval updates the sweep interval.
func (w *ExpiryWorker) WithPollInterval(interval time.Duration) *ExpiryWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize caps the number of requests swept per run.
func (w *ExpiryWorker) WithBatchSize(size int32) *ExpiryWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and sweeps at the configured interval until Stop is called or
// the context is canceled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("expiry worker starting",
		zap.Duration("interval", w.pollInterval), zap.Int32("batch_size", w.batchSize))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("expiry worker stop signal received")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *ExpiryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// SweepOnce runs a single sweep immediately. Useful for tests and manual
// triggering.
func (w *ExpiryWorker) SweepOnce(ctx context.Context) (int, error) {
	return w.requests.ExpireStale(ctx, w.batchSize)
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	expired, err := w.requests.ExpireStale(ctx, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("expiry", "failed")
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("expiry", "success")
	if expired > 0 {
		zap.L().Info("expired transfer requests", zap.Int("count", expired))
	}
}
