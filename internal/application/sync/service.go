package sync

import (
	"context"
	"time"

	"github.com/erp/channel-sync/internal/domain/shared"
	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// pendingScanLimit bounds how many pending items a targeted dispatch scans
// when looking for one integration's work
const pendingScanLimit = 100

// ProcessOutcome is the result of one dispatch attempt
type ProcessOutcome struct {
	// Skipped is true when the item could not be claimed: another worker
	// holds it, a sibling sync is processing, or it is already terminal.
	// A skip is benign, not an error.
	Skipped bool
	// Result is the page result when a page actually ran
	Result *PageResult
	// Failure carries the classification when the page failed
	Failure *sync.Classification
	// FailureMessage is the failure text when the page failed
	FailureMessage string
}

// Service exposes the sync operations the transport layer calls: enqueueing
// work, dispatching single pages, and job inspection. The background
// processor shares the same worker and failure handler.
type Service struct {
	integrations sync.IntegrationReader
	queueRepo    sync.QueueItemRepository
	jobRepo      sync.SyncJobRepository
	orders       sync.OrderRecordRepository
	worker       *PageWorker
	failures     *FailureHandler
	dedupe       shared.IdempotencyStore
	dedupeTTL    time.Duration
	fulfillment  sync.FulfillmentService
}

// NewService creates the sync application service
func NewService(
	integrations sync.IntegrationReader,
	queueRepo sync.QueueItemRepository,
	jobRepo sync.SyncJobRepository,
	orders sync.OrderRecordRepository,
	worker *PageWorker,
	failures *FailureHandler,
	dedupe shared.IdempotencyStore,
	dedupeTTL time.Duration,
) *Service {
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}
	return &Service{
		integrations: integrations,
		queueRepo:    queueRepo,
		jobRepo:      jobRepo,
		orders:       orders,
		worker:       worker,
		failures:     failures,
		dedupe:       dedupe,
		dedupeTTL:    dedupeTTL,
	}
}

// WithFulfillment attaches the outbound fulfillment service. Deployments
// without a fulfillment backend leave it unset and the passthrough operations
// report ErrFulfillmentNotConfigured.
func (s *Service) WithFulfillment(f sync.FulfillmentService) *Service {
	s.fulfillment = f
	return s
}

// ---------------------------------------------------------------------------
// Enqueue
// ---------------------------------------------------------------------------

// Enqueue creates a pending queue item for an active integration
func (s *Service) Enqueue(ctx context.Context, integrationID uuid.UUID, syncType sync.SyncType, priority int) (*sync.QueueItem, error) {
	integration, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if !integration.Active {
		return nil, sync.ErrIntegrationInactive
	}

	item, err := sync.NewQueueItem(integrationID, syncType, priority)
	if err != nil {
		return nil, err
	}
	if err := s.queueRepo.Enqueue(ctx, item); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("sync enqueued",
		zap.String("queue_id", item.ID.String()),
		zap.String("integration_id", integrationID.String()),
		zap.String("sync_type", syncType.String()),
		zap.Int("priority", item.Priority))
	return item, nil
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// ProcessQueueItem claims the given item and runs exactly one page. A refused
// claim is reported as a benign skip so callers and schedulers can simply try
// again later.
func (s *Service) ProcessQueueItem(ctx context.Context, queueID uuid.UUID) (*ProcessOutcome, error) {
	item, err := s.queueRepo.FindByID(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if item.Status != sync.QueueStatusPending {
		return &ProcessOutcome{Skipped: true}, nil
	}

	claimed, err := s.queueRepo.Claim(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return &ProcessOutcome{Skipped: true}, nil
	}
	if err := item.Start(); err != nil {
		return &ProcessOutcome{Skipped: true}, nil
	}

	result, err := s.worker.ProcessPage(ctx, item)
	if err != nil {
		c := s.failures.OnFailure(ctx, item, jobIDFromItem(item), err)
		return &ProcessOutcome{Failure: &c, FailureMessage: err.Error()}, nil
	}
	if result.HasMore {
		// Release the claim so the next dispatch can continue from the
		// committed checkpoint; the item would otherwise sit processing
		// until the stale sweep
		if err := item.Yield(); err != nil {
			return nil, err
		}
		if err := s.queueRepo.Update(ctx, item); err != nil {
			return nil, err
		}
	}
	return &ProcessOutcome{Result: result}, nil
}

// ProcessNextFor dispatches one page for the integration's most urgent
// pending item
func (s *Service) ProcessNextFor(ctx context.Context, integrationID uuid.UUID) (*ProcessOutcome, error) {
	pending, err := s.queueRepo.FindPending(ctx, pendingScanLimit)
	if err != nil {
		return nil, err
	}

	for _, item := range pending {
		if item.IntegrationID != integrationID {
			continue
		}
		outcome, err := s.ProcessQueueItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if outcome.Skipped {
			// A sibling is processing; later pending items for the
			// same integration would be refused too
			return outcome, nil
		}
		return outcome, nil
	}
	return &ProcessOutcome{Skipped: true}, nil
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

// GetJob returns a sync job by ID
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	return s.jobRepo.FindByID(ctx, id)
}

// ListJobs lists an integration's jobs, newest first
func (s *Service) ListJobs(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.jobRepo.FindByIntegration(ctx, integrationID, limit)
}

// CancelJob marks a job cancelled. The worker observes the cancellation at
// the next page boundary; the current page finishes committing.
func (s *Service) CancelJob(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Cancel(); err != nil {
		return nil, err
	}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("sync job cancelled", zap.String("job_id", id.String()))
	return job, nil
}

// ---------------------------------------------------------------------------
// Queue Inspection
// ---------------------------------------------------------------------------

// GetQueueItem returns a queue item by ID
func (s *Service) GetQueueItem(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	return s.queueRepo.FindByID(ctx, id)
}

// ListQueueItems lists queue items in a given status, newest first
func (s *Service) ListQueueItems(ctx context.Context, status sync.QueueStatus, limit int) ([]*sync.QueueItem, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queueRepo.FindByStatus(ctx, status, limit)
}

// QueueStats returns the item count per status
func (s *Service) QueueStats(ctx context.Context) (map[sync.QueueStatus]int64, error) {
	return s.queueRepo.CountByStatus(ctx)
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// ListOrders lists an integration's synced order records, newest first
func (s *Service) ListOrders(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.OrderRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.orders.FindByIntegration(ctx, integrationID, limit)
}

// ShipOrder passes a shipment request through to the fulfillment service.
// The idempotency key is derived from the order ID, so retrying the same
// request collapses into one remote shipment.
func (s *Service) ShipOrder(ctx context.Context, orderID uuid.UUID) error {
	if s.fulfillment == nil {
		return sync.ErrFulfillmentNotConfigured
	}
	if err := s.fulfillment.ShipOrder(ctx, orderID, "ship-"+orderID.String()); err != nil {
		return err
	}
	logger.L(ctx).Info("order shipment requested", zap.String("order_id", orderID.String()))
	return nil
}

// CancelOrder passes a cancellation request through to the fulfillment service
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	if s.fulfillment == nil {
		return sync.ErrFulfillmentNotConfigured
	}
	if err := s.fulfillment.CancelOrder(ctx, orderID, "cancel-"+orderID.String()); err != nil {
		return err
	}
	logger.L(ctx).Info("order cancellation requested", zap.String("order_id", orderID.String()))
	return nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// ResolveIntegrationByShop looks up the integration a webhook belongs to
func (s *Service) ResolveIntegrationByShop(ctx context.Context, shopURL string) (*sync.Integration, error) {
	return s.integrations.FindByShopURL(ctx, shopURL)
}

// RecordWebhookOrder persists an order delivered by webhook. Returns false
// when the delivery was a duplicate. Two layers make redelivery safe: the
// delivery ID is checked against the idempotency store, and the order's
// external ID is checked against the stored records, so a redelivery that
// carries no delivery header is still reported as a duplicate. The upsert
// runs either way and converges on (integration_id, external_id).
func (s *Service) RecordWebhookOrder(ctx context.Context, integrationID uuid.UUID, order sync.ExternalOrder, deliveryID string) (bool, error) {
	if deliveryID != "" {
		fresh, err := s.dedupe.MarkProcessed(ctx, deliveryID, s.dedupeTTL)
		if err != nil {
			return false, err
		}
		if !fresh {
			logger.L(ctx).Debug("duplicate webhook delivery dropped",
				zap.String("delivery_id", deliveryID))
			return false, nil
		}
	}

	exists, err := s.orders.ExistsByExternalID(ctx, integrationID, order.ID)
	if err != nil {
		return false, err
	}

	record := sync.NewOrderRecord(integrationID, order)
	if err := s.orders.Upsert(ctx, []*sync.OrderRecord{record}); err != nil {
		return false, err
	}

	if exists {
		logger.L(ctx).Debug("webhook order already recorded",
			zap.String("external_id", order.ID),
			zap.String("integration_id", integrationID.String()))
		return false, nil
	}

	logger.L(ctx).Info("webhook order recorded",
		zap.String("external_id", order.ID),
		zap.String("integration_id", integrationID.String()))
	return true, nil
}
