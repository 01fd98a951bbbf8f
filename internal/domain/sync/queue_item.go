package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Default retry configuration
const (
	DefaultMaxRetries      = 3
	DefaultQueuePriority   = 100
	HighQueuePriority      = 10
	DefaultStaleHeartbeat  = 10 * time.Minute
	DefaultClaimBatchLimit = 5
)

// ---------------------------------------------------------------------------
// QueueItem Entity
// ---------------------------------------------------------------------------

// QueueItem is a durable unit of pending sync work. One item covers a whole
// sync for an (integration, sync type) pair; each invocation of the worker
// advances it by exactly one page via the checkpoint.
type QueueItem struct {
	// ID is the unique identifier of this item
	ID uuid.UUID
	// IntegrationID identifies which external-account credentials to use
	IntegrationID uuid.UUID
	// SyncType identifies the data being synchronized
	SyncType SyncType
	// Status is the lifecycle state
	Status QueueStatus
	// Priority orders dispatch; lower is more urgent
	Priority int
	// RetryCount is how many times this item has been requeued after
	// failure since it last committed a page
	RetryCount int
	// MaxRetries caps RetryCount; once reached the item terminates as failed
	MaxRetries int
	// Checkpoint is the encoded resumption state (see checkpoint.go)
	Checkpoint []byte
	// LastHeartbeat is the liveness signal for long-running work
	LastHeartbeat *time.Time
	// ErrorMessage holds the last failure message, if any
	ErrorMessage string
	// ErrorType holds the classification of the last failure, if any
	ErrorType ErrorType
	// CreatedAt is when this item was enqueued
	CreatedAt time.Time
	// StartedAt is when the current processing attempt began
	StartedAt *time.Time
	// CompletedAt is when the item reached a terminal state
	CompletedAt *time.Time
	// UpdatedAt is when this item was last updated
	UpdatedAt time.Time
}

// NewQueueItem creates a pending queue item
func NewQueueItem(integrationID uuid.UUID, syncType SyncType, priority int) (*QueueItem, error) {
	if integrationID == uuid.Nil {
		return nil, ErrInvalidIntegrationID
	}
	if !syncType.IsValid() {
		return nil, ErrInvalidSyncType
	}
	if priority <= 0 {
		priority = DefaultQueuePriority
	}

	now := time.Now()
	return &QueueItem{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		SyncType:      syncType,
		Status:        QueueStatusPending,
		Priority:      priority,
		RetryCount:    0,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Start marks the item as processing
func (q *QueueItem) Start() error {
	if q.Status != QueueStatusPending {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	q.Status = QueueStatusProcessing
	q.StartedAt = &now
	q.LastHeartbeat = &now
	q.UpdatedAt = now
	return nil
}

// Complete marks the item as successfully finished
func (q *QueueItem) Complete() error {
	if q.Status != QueueStatusProcessing {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	q.Status = QueueStatusCompleted
	q.CompletedAt = &now
	q.UpdatedAt = now
	return nil
}

// Yield returns the item to pending after a successful page that has more
// work left. The checkpoint carries the continuation point and RetryCount is
// untouched, so releasing the claim costs no retry budget.
func (q *QueueItem) Yield() error {
	if q.Status != QueueStatusProcessing {
		return ErrInvalidStatusTransition
	}
	q.Status = QueueStatusPending
	q.StartedAt = nil
	q.UpdatedAt = time.Now()
	return nil
}

// Fail terminates the item with an error
func (q *QueueItem) Fail(errMsg string, errType ErrorType) {
	now := time.Now()
	q.Status = QueueStatusFailed
	q.ErrorMessage = errMsg
	q.ErrorType = errType
	q.CompletedAt = &now
	q.UpdatedAt = now
}

// CanRetry returns true if another attempt is allowed
func (q *QueueItem) CanRetry() bool {
	return q.RetryCount < q.MaxRetries
}

// RequeueForRetry returns the item to pending after a transient failure.
// RetryCount is incremented and StartedAt cleared; the checkpoint is kept so
// the next attempt resumes from the last committed page.
func (q *QueueItem) RequeueForRetry(errMsg string, errType ErrorType) error {
	if q.Status != QueueStatusProcessing {
		return ErrInvalidStatusTransition
	}
	if !q.CanRetry() {
		return ErrRetriesExhausted
	}
	q.Status = QueueStatusPending
	q.RetryCount++
	q.ErrorMessage = errMsg
	q.ErrorType = errType
	q.StartedAt = nil
	q.UpdatedAt = time.Now()
	return nil
}

// Touch updates the heartbeat timestamp
func (q *QueueItem) Touch() {
	now := time.Now()
	q.LastHeartbeat = &now
	q.UpdatedAt = now
}

// HeartbeatAge returns how long ago the heartbeat was updated.
// Items that never heartbeated report their age since creation.
func (q *QueueItem) HeartbeatAge(now time.Time) time.Duration {
	if q.LastHeartbeat == nil {
		return now.Sub(q.CreatedAt)
	}
	return now.Sub(*q.LastHeartbeat)
}

// ---------------------------------------------------------------------------
// QueueItemRepository Interface
// ---------------------------------------------------------------------------

// QueueItemReader defines the interface for reading queue items
type QueueItemReader interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*QueueItem, error)

	// FindPending retrieves pending items up to limit, ordered by
	// ascending priority then ascending creation time
	FindPending(ctx context.Context, limit int) ([]*QueueItem, error)

	// FindByStatus lists items in a given status, newest first
	FindByStatus(ctx context.Context, status QueueStatus, limit int) ([]*QueueItem, error)

	// HasProcessing reports whether any item other than excludeID is
	// processing for the same (integration, sync type) pair
	HasProcessing(ctx context.Context, integrationID uuid.UUID, syncType SyncType, excludeID uuid.UUID) (bool, error)

	// CountByStatus returns the item count per status
	CountByStatus(ctx context.Context) (map[QueueStatus]int64, error)
}

// QueueItemWriter defines the interface for persisting queue items
type QueueItemWriter interface {
	// Enqueue persists a new pending item
	Enqueue(ctx context.Context, item *QueueItem) error

	// Claim transitions the item from pending to processing in a single
	// conditional update. The claim succeeds only if the row is still
	// pending AND no other item is processing for the same
	// (integration, sync type) pair. Returns false when skipped.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// Update persists lifecycle changes to an existing item
	Update(ctx context.Context, item *QueueItem) error

	// UpdateHeartbeat bumps last_heartbeat without touching other fields
	UpdateHeartbeat(ctx context.Context, id uuid.UUID) error

	// UpdateCheckpoint persists a new checkpoint payload and resets
	// retry_count: a committed checkpoint is proof of progress, so
	// MaxRetries bounds consecutive failures rather than total failures
	// over the life of a long sync
	UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpoint []byte) error

	// RequeueStale returns processing items whose heartbeat is older than
	// cutoff to pending, incrementing their retry count. Returns the
	// number of items requeued.
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueueItemRepository defines the full interface for queue persistence
type QueueItemRepository interface {
	QueueItemReader
	QueueItemWriter
}
