package sync

import (
	"context"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FailureHandler turns a page failure into a queue decision: permanent
// failures and exhausted retries terminate the item and its job, everything
// else waits out the backoff and requeues with the checkpoint intact.
type FailureHandler struct {
	queueRepo sync.QueueItemRepository
	jobRepo   sync.SyncJobRepository
	backoff   sync.BackoffPolicy
}

// NewFailureHandler creates a failure handler with the given backoff policy
func NewFailureHandler(
	queueRepo sync.QueueItemRepository,
	jobRepo sync.SyncJobRepository,
	backoff sync.BackoffPolicy,
) *FailureHandler {
	return &FailureHandler{
		queueRepo: queueRepo,
		jobRepo:   jobRepo,
		backoff:   backoff,
	}
}

// OnFailure classifies the error and applies the retry policy to the claimed
// item. jobID may be uuid.Nil when the failure happened before job bootstrap.
// Returns the classification for the caller's response.
func (h *FailureHandler) OnFailure(ctx context.Context, item *sync.QueueItem, jobID uuid.UUID, cause error) sync.Classification {
	c := sync.Classify(cause)
	log := logger.L(ctx).With(
		zap.String("error_type", c.Type.String()),
		zap.Int("retry_count", item.RetryCount),
		zap.Int("max_retries", item.MaxRetries),
	)

	if !c.Type.IsRetryable() || !item.CanRetry() {
		h.terminate(ctx, item, jobID, cause, c, log)
		return c
	}

	// Hold the claim through the wait so the exclusion invariant keeps
	// other workers away until the retry is actually due
	delay := c.RetryAfter
	if delay <= 0 {
		delay = h.backoff.Delay(item.RetryCount)
	}
	log.Warn("page failed, requeueing after backoff",
		zap.Duration("delay", delay),
		zap.Error(cause))

	if err := sleepContext(ctx, delay); err != nil {
		// Shutting down; requeue immediately, the stale sweep would
		// recover the item anyway
		log.Warn("backoff interrupted, requeueing now")
	}

	if err := item.RequeueForRetry(cause.Error(), c.Type); err != nil {
		h.terminate(ctx, item, jobID, cause, c, log)
		return c
	}
	if err := h.queueRepo.Update(ctx, item); err != nil {
		log.Error("failed to requeue item", zap.Error(err))
	}
	return c
}

// terminate fails the queue item and its job
func (h *FailureHandler) terminate(ctx context.Context, item *sync.QueueItem, jobID uuid.UUID, cause error, c sync.Classification, log *logger.ContextLogger) {
	log.Error("sync failed terminally", zap.Error(cause))

	item.Fail(cause.Error(), c.Type)
	if err := h.queueRepo.Update(ctx, item); err != nil {
		log.Error("failed to persist item failure", zap.Error(err))
	}

	if jobID == uuid.Nil {
		return
	}
	job, err := h.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		log.Error("failed to load job for failure", zap.Error(err))
		return
	}
	if job.Status.IsFinal() {
		return
	}
	job.Fail(cause.Error())
	if err := h.jobRepo.Update(ctx, job); err != nil {
		log.Error("failed to persist job failure", zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
