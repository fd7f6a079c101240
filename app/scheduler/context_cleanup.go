package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/jobradar/jobradar/repository"
	"github.com/jobradar/jobradar/utils"
)

// ContextCleanupWorker removes expired filter contexts so stale viewing
// boundaries never leak into a later apply.
type ContextCleanupWorker struct {
	contextRepo repository.FilterContextRepository
	interval    time.Duration
	logger      *log.Logger
}

// NewContextCleanupWorker creates a new cleanup worker instance
func NewContextCleanupWorker(contextRepo repository.FilterContextRepository, interval time.Duration, logger *log.Logger) *ContextCleanupWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ContextCleanupWorker{
		contextRepo: contextRepo,
		interval:    interval,
		logger:      logger,
	}
}

// Start launches the cleanup loop in a background goroutine and returns a stop function
func (w *ContextCleanupWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (w *ContextCleanupWorker) runOnce(ctx context.Context) {
	removed, err := w.contextRepo.DeleteExpired(ctx, utils.UTCNow())
	if err != nil {
		w.logger.Printf("cleanup: expired filter context removal failed: %v", err)
		return
	}
	if removed > 0 {
		w.logger.Printf("cleanup: removed %d expired filter contexts", removed)
	}
}
