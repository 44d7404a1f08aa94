package workers

import (
	"context"
	"time"

	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/pkg/logger"
)

// AuditDrainWorker periodically delivers queued audit entries to durable
// storage. Entries land on the queue when a synchronous audit write misses
// its deadline.
type AuditDrainWorker struct {
	auditService  *services.AuditService
	logger        *logger.Logger
	drainInterval time.Duration
	drainBatch    int
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewAuditDrainWorker creates a new audit drain worker
func NewAuditDrainWorker(
	auditService *services.AuditService,
	logger *logger.Logger,
	drainInterval time.Duration,
	drainBatch int,
) *AuditDrainWorker {
	if drainInterval == 0 {
		drainInterval = 30 * time.Second
	}
	if drainBatch <= 0 {
		drainBatch = 100
	}

	return &AuditDrainWorker{
		auditService:  auditService,
		logger:        logger,
		drainInterval: drainInterval,
		drainBatch:    drainBatch,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start starts the worker in the background
func (w *AuditDrainWorker) Start(ctx context.Context) {
	w.logger.Info("Starting audit drain worker",
		logger.String("interval", w.drainInterval.String()),
	)

	go w.run(ctx)
}

// Stop stops the worker gracefully
func (w *AuditDrainWorker) Stop() {
	w.logger.Info("Stopping audit drain worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("Audit drain worker stopped")
}

// run is the main worker loop
func (w *AuditDrainWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.drainInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.drain(ctx)

	for {
		select {
		case <-ticker.C:
			w.drain(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *AuditDrainWorker) drain(ctx context.Context) {
	drained, err := w.auditService.DrainQueue(ctx, w.drainBatch)
	if err != nil {
		w.logger.Errorf("Failed to drain audit queue: %v", err)
		return
	}
	if drained > 0 {
		w.logger.Info("Drained queued audit entries", logger.Int("count", drained))
	}
}
