package workers

import (
	"context"
	"time"

	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/pkg/logger"
)

// RuleReloadWorker periodically re-reads the stored rule set so that
// instances which did not serve the load request converge on the newest
// version.
type RuleReloadWorker struct {
	ruleService    *services.RuleService
	logger         *logger.Logger
	reloadInterval time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewRuleReloadWorker creates a new rule reload worker
func NewRuleReloadWorker(
	ruleService *services.RuleService,
	logger *logger.Logger,
	reloadInterval time.Duration,
) *RuleReloadWorker {
	if reloadInterval == 0 {
		reloadInterval = time.Minute
	}

	return &RuleReloadWorker{
		ruleService:    ruleService,
		logger:         logger,
		reloadInterval: reloadInterval,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start starts the worker in the background
func (w *RuleReloadWorker) Start(ctx context.Context) {
	w.logger.Info("Starting rule reload worker",
		logger.String("interval", w.reloadInterval.String()),
	)

	go w.run(ctx)
}

// Stop stops the worker gracefully
func (w *RuleReloadWorker) Stop() {
	w.logger.Info("Stopping rule reload worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("Rule reload worker stopped")
}

// run is the main worker loop
func (w *RuleReloadWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.reload(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *RuleReloadWorker) reload(ctx context.Context) {
	if err := w.ruleService.Reload(ctx); err != nil {
		w.logger.Errorf("Failed to reload rule set: %v", err)
	}
}
