package sync

import (
	"context"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PageResult reports what one worker invocation did
type PageResult struct {
	// JobID is the sync job this page belongs to
	JobID uuid.UUID
	// Processed is the number of records in this page
	Processed int
	// HasMore is true when the platform reported another page
	HasMore bool
	// NextCursor resumes the sync when HasMore is true
	NextCursor string
	// Cancelled is true when the job was cancelled and the item retired
	// without fetching
	Cancelled bool
}

// PageWorker advances a claimed queue item by exactly one page. All durable
// state lives on the queue item's checkpoint and the sync job row, so any
// invocation can crash after any step and the next one resumes without
// double-applying: page writes are idempotent upserts and the progress
// counter is guarded by the page key.
type PageWorker struct {
	integrations sync.IntegrationReader
	queueRepo    sync.QueueItemRepository
	jobRepo      sync.SyncJobRepository
	clients      sync.ShopClientFactory
	appliers     map[sync.SyncType]PageApplier
	pageSize     int
}

// NewPageWorker creates a worker with one applier per sync type
func NewPageWorker(
	integrations sync.IntegrationReader,
	queueRepo sync.QueueItemRepository,
	jobRepo sync.SyncJobRepository,
	clients sync.ShopClientFactory,
	pageSize int,
	appliers ...PageApplier,
) *PageWorker {
	if pageSize <= 0 {
		pageSize = sync.DefaultPageSize
	}

	byType := make(map[sync.SyncType]PageApplier, len(appliers))
	for _, a := range appliers {
		byType[a.SyncType()] = a
	}

	return &PageWorker{
		integrations: integrations,
		queueRepo:    queueRepo,
		jobRepo:      jobRepo,
		clients:      clients,
		appliers:     byType,
		pageSize:     pageSize,
	}
}

// ProcessPage runs one page for an already-claimed processing item. Errors
// escape unhandled; the caller classifies them and decides between requeue
// and terminal failure.
func (w *PageWorker) ProcessPage(ctx context.Context, item *sync.QueueItem) (*PageResult, error) {
	ctx = logger.WithIntegrationID(ctx, item.IntegrationID.String())
	ctx = logger.WithQueueID(ctx, item.ID.String())

	applier, ok := w.appliers[item.SyncType]
	if !ok {
		return nil, sync.ErrInvalidSyncType
	}

	integration, err := w.integrations.FindByID(ctx, item.IntegrationID)
	if err != nil {
		return nil, err
	}
	if !integration.Active {
		return nil, sync.ErrIntegrationInactive
	}

	client, err := w.clients.ClientFor(integration)
	if err != nil {
		return nil, err
	}

	state, err := w.loadState(ctx, item, applier, client)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithJobID(ctx, state.jobID.String())

	if state.cancelled {
		if err := w.retireCancelled(ctx, item); err != nil {
			return nil, err
		}
		logger.L(ctx).Info("sync cancelled, queue item retired")
		return &PageResult{JobID: state.jobID, Cancelled: true}, nil
	}

	// Liveness signal before the potentially slow fetch
	if err := w.queueRepo.UpdateHeartbeat(ctx, item.ID); err != nil {
		return nil, err
	}

	outcome, err := applier.ApplyPage(ctx, PageRequest{
		IntegrationID: item.IntegrationID,
		Client:        client,
		PageSize:      w.pageSize,
		Cursor:        state.cursor,
		Since:         state.since,
	})
	if err != nil {
		return nil, err
	}

	// Count this page exactly once, even if it is re-delivered
	applied, err := w.jobRepo.IncrementProcessed(ctx, state.jobID, outcome.Processed, sync.PageKey(state.pagesDone, state.cursor))
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.L(ctx).Debug("page already counted, skipping increment",
			zap.Int("pages_done", state.pagesDone))
	}

	// Commit the continuation point before reporting success
	if err := w.commitCheckpoint(ctx, item, state, outcome.NextCursor); err != nil {
		return nil, err
	}
	if err := w.queueRepo.UpdateHeartbeat(ctx, item.ID); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("page committed",
		zap.String("sync_type", item.SyncType.String()),
		zap.Int("records", outcome.Processed),
		zap.Int("matched", outcome.Matched),
		zap.Int("unmatched", outcome.Unmatched),
		zap.Int("pages_done", state.pagesDone+1),
		zap.Bool("has_more", outcome.NextCursor != ""),
	)

	result := &PageResult{
		JobID:      state.jobID,
		Processed:  outcome.Processed,
		HasMore:    outcome.NextCursor != "",
		NextCursor: outcome.NextCursor,
	}
	if !result.HasMore {
		if err := w.finalize(ctx, item, state.jobID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// pageState is the decoded continuation point of a queue item
type pageState struct {
	jobID     uuid.UUID
	cursor    string
	pagesDone int
	since     time.Time
	cancelled bool
}

// loadState decodes the item's checkpoint, bootstrapping the sync job on the
// first page
func (w *PageWorker) loadState(ctx context.Context, item *sync.QueueItem, applier PageApplier, client sync.ShopClient) (*pageState, error) {
	cp, err := sync.DecodeCheckpoint(item.Checkpoint, item.SyncType)
	if err != nil {
		return nil, err
	}

	if cp == nil {
		return w.bootstrap(ctx, item, applier, client)
	}

	state := &pageState{}
	switch c := cp.(type) {
	case *sync.ProductSyncCheckpoint:
		state.jobID, state.cursor, state.pagesDone = c.JobID, c.Cursor, c.PagesDone
	case *sync.OrderSyncCheckpoint:
		state.jobID, state.cursor, state.pagesDone = c.JobID, c.Cursor, c.PagesDone
		state.since = c.Since
	default:
		return nil, sync.ErrInvalidSyncType
	}

	job, err := w.jobRepo.FindByID(ctx, state.jobID)
	if err != nil {
		return nil, err
	}
	state.cancelled = job.IsCancelled()
	return state, nil
}

// bootstrap creates the sync job and the initial checkpoint. The checkpoint
// is persisted before the first fetch so a crash cannot orphan the job or
// start a second one.
func (w *PageWorker) bootstrap(ctx context.Context, item *sync.QueueItem, applier PageApplier, client sync.ShopClient) (*pageState, error) {
	job, err := sync.NewSyncJob(item.IntegrationID, item.SyncType)
	if err != nil {
		return nil, err
	}

	// Best-effort estimate; completion is decided by cursor exhaustion,
	// never by this count
	total := 0
	if count, err := applier.CountTotal(ctx, client); err != nil {
		logger.L(ctx).Warn("count estimate unavailable", zap.Error(err))
	} else {
		total = count
	}

	if err := job.Start(total); err != nil {
		return nil, err
	}
	if err := w.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	state := &pageState{jobID: job.ID}
	raw, err := encodeState(item.SyncType, state)
	if err != nil {
		return nil, err
	}
	if err := w.queueRepo.UpdateCheckpoint(ctx, item.ID, raw); err != nil {
		return nil, err
	}
	item.Checkpoint = raw
	item.RetryCount = 0

	logger.L(ctx).Info("sync job started",
		zap.String("job_id", job.ID.String()),
		zap.String("sync_type", item.SyncType.String()),
		zap.Int("total_items", total))

	return state, nil
}

// commitCheckpoint persists the post-page continuation point
func (w *PageWorker) commitCheckpoint(ctx context.Context, item *sync.QueueItem, state *pageState, nextCursor string) error {
	next := &pageState{
		jobID:     state.jobID,
		cursor:    nextCursor,
		pagesDone: state.pagesDone + 1,
		since:     state.since,
	}
	raw, err := encodeState(item.SyncType, next)
	if err != nil {
		return err
	}
	if err := w.queueRepo.UpdateCheckpoint(ctx, item.ID, raw); err != nil {
		return err
	}
	// Mirror the row: UpdateCheckpoint also reset the retry budget, and a
	// later full-row Update must not reinstate the old count
	item.Checkpoint = raw
	item.RetryCount = 0
	return nil
}

// finalize completes the job and retires the queue item after the last page
func (w *PageWorker) finalize(ctx context.Context, item *sync.QueueItem, jobID uuid.UUID) error {
	// Reload so the completion write does not clobber the counter
	job, err := w.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.Complete(); err != nil {
		return err
	}
	if err := w.jobRepo.Update(ctx, job); err != nil {
		return err
	}

	if err := item.Complete(); err != nil {
		return err
	}
	if err := w.queueRepo.Update(ctx, item); err != nil {
		return err
	}

	logger.L(ctx).Info("sync completed",
		zap.Int("processed_items", job.ProcessedItems),
		zap.Int("total_items", job.TotalItems))
	return nil
}

// retireCancelled completes the queue item without fetching when the job was
// cancelled between pages
func (w *PageWorker) retireCancelled(ctx context.Context, item *sync.QueueItem) error {
	if err := item.Complete(); err != nil {
		return err
	}
	return w.queueRepo.Update(ctx, item)
}

func encodeState(syncType sync.SyncType, state *pageState) ([]byte, error) {
	switch syncType {
	case sync.SyncTypeProduct:
		return sync.EncodeCheckpoint(&sync.ProductSyncCheckpoint{
			JobID:     state.jobID,
			Cursor:    state.cursor,
			PagesDone: state.pagesDone,
		})
	case sync.SyncTypeOrder:
		return sync.EncodeCheckpoint(&sync.OrderSyncCheckpoint{
			JobID:     state.jobID,
			Cursor:    state.cursor,
			PagesDone: state.pagesDone,
			Since:     state.since,
		})
	}
	return nil, sync.ErrInvalidSyncType
}
