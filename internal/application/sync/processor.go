package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProcessorConfig holds configuration for the queue processor
type ProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

// DefaultProcessorConfig returns default configuration
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:     sync.DefaultClaimBatchLimit,
		PollInterval:  10 * time.Second,
		StaleAfter:    sync.DefaultStaleHeartbeat,
		SweepInterval: time.Minute,
	}
}

// QueueProcessor drives the sync queue in the background: it polls for
// pending items, claims them under the exclusion invariant, and walks each
// claimed item page by page until done or failed. A second loop sweeps
// abandoned processing items back to pending.
type QueueProcessor struct {
	queueRepo sync.QueueItemRepository
	worker    *PageWorker
	failures  *FailureHandler
	config    ProcessorConfig
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewQueueProcessor creates a new queue processor
func NewQueueProcessor(
	queueRepo sync.QueueItemRepository,
	worker *PageWorker,
	failures *FailureHandler,
	config ProcessorConfig,
	log *zap.Logger,
) *QueueProcessor {
	return &QueueProcessor{
		queueRepo: queueRepo,
		worker:    worker,
		failures:  failures,
		config:    config,
		logger:    log,
	}
}

// Start starts the background processing
func (p *QueueProcessor) Start(ctx context.Context) error {
	ctx = logger.WithContext(ctx, p.logger)
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	p.wg.Add(1)
	go p.sweepLoop(ctx)

	p.logger.Info("queue processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("stale_after", p.config.StaleAfter),
	)
	return nil
}

// Stop gracefully stops the processor
func (p *QueueProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("queue processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *QueueProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch claims and runs up to BatchSize pending items
func (p *QueueProcessor) processBatch(ctx context.Context) {
	pending, err := p.queueRepo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending items", zap.Error(err))
		return
	}

	for _, item := range pending {
		if ctx.Err() != nil {
			return
		}

		// Cheap pre-filter; the conditional UPDATE in Claim remains the
		// authority on the exclusion invariant
		busy, err := p.queueRepo.HasProcessing(ctx, item.IntegrationID, item.SyncType, item.ID)
		if err != nil {
			p.logger.Error("failed to check for processing siblings",
				zap.String("queue_id", item.ID.String()),
				zap.Error(err))
			continue
		}
		if busy {
			continue
		}

		claimed, err := p.queueRepo.Claim(ctx, item.ID)
		if err != nil {
			p.logger.Error("failed to claim item",
				zap.String("queue_id", item.ID.String()),
				zap.Error(err))
			continue
		}
		if !claimed {
			// Raced with another worker or a sibling is still
			// processing; benign, the next poll retries
			continue
		}

		// Claim succeeded; reflect it on the in-memory entity
		if err := item.Start(); err != nil {
			continue
		}
		p.processItem(ctx, item)
	}
}

// processItem walks a claimed item page by page until the sync completes,
// fails, or the processor shuts down. A mid-sync shutdown leaves the item
// processing with a fresh checkpoint; the stale sweep requeues it later.
func (p *QueueProcessor) processItem(ctx context.Context, item *sync.QueueItem) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := p.worker.ProcessPage(ctx, item)
		if err != nil {
			p.failures.OnFailure(ctx, item, jobIDFromItem(item), err)
			return
		}
		if !result.HasMore || result.Cancelled {
			return
		}
	}
}

func (p *QueueProcessor) sweepLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// sweep returns abandoned processing items to pending
func (p *QueueProcessor) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.StaleAfter)
	requeued, err := p.queueRepo.RequeueStale(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to requeue stale items", zap.Error(err))
		return
	}
	if requeued > 0 {
		p.logger.Warn("requeued stale items",
			zap.Int64("count", requeued),
			zap.Time("cutoff", cutoff))
	}
}

// jobIDFromItem recovers the job ID from an item's checkpoint, uuid.Nil when
// the sync never bootstrapped
func jobIDFromItem(item *sync.QueueItem) uuid.UUID {
	cp, err := sync.DecodeCheckpoint(item.Checkpoint, item.SyncType)
	if err != nil || cp == nil {
		return uuid.Nil
	}
	switch c := cp.(type) {
	case *sync.ProductSyncCheckpoint:
		return c.JobID
	case *sync.OrderSyncCheckpoint:
		return c.JobID
	}
	return uuid.Nil
}
