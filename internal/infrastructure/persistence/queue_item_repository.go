package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQueueItemRepository implements sync.QueueItemRepository using GORM
type GormQueueItemRepository struct {
	db *gorm.DB
}

// NewGormQueueItemRepository creates a new GORM-based queue repository
func NewGormQueueItemRepository(db *gorm.DB) *GormQueueItemRepository {
	return &GormQueueItemRepository{db: db}
}

// Enqueue persists a new pending item
func (r *GormQueueItemRepository) Enqueue(ctx context.Context, item *sync.QueueItem) error {
	model := models.QueueItemModelFromDomain(item)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds an item by its ID
func (r *GormQueueItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	var model models.QueueItemModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrQueueItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPending retrieves pending items ordered by ascending priority then
// ascending creation time, FIFO within a priority band
func (r *GormQueueItemRepository) FindPending(ctx context.Context, limit int) ([]*sync.QueueItem, error) {
	var rows []models.QueueItemModel
	err := r.db.WithContext(ctx).
		Where("status = ?", sync.QueueStatusPending).
		Order("priority ASC, created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainItems(rows), nil
}

// FindByStatus lists items in a given status, newest first
func (r *GormQueueItemRepository) FindByStatus(ctx context.Context, status sync.QueueStatus, limit int) ([]*sync.QueueItem, error) {
	var rows []models.QueueItemModel
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainItems(rows), nil
}

// HasProcessing reports whether any item other than excludeID is processing
// for the same (integration, sync type) pair
func (r *GormQueueItemRepository) HasProcessing(ctx context.Context, integrationID uuid.UUID, syncType sync.SyncType, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("integration_id = ? AND sync_type = ? AND status = ? AND id <> ?",
			integrationID, syncType, sync.QueueStatusProcessing, excludeID).
		Count(&count).Error
	return count > 0, err
}

// Claim transitions the item from pending to processing. The exclusion
// invariant (at most one processing item per integration and sync type) is
// enforced inside the single UPDATE, not by a separate check-then-act read.
func (r *GormQueueItemRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Exec(`
		UPDATE sync_queue_items
		SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
		WHERE id = ?
		  AND status = ?
		  AND NOT EXISTS (
			SELECT 1 FROM sync_queue_items other
			WHERE other.integration_id = sync_queue_items.integration_id
			  AND other.sync_type = sync_queue_items.sync_type
			  AND other.status = ?
			  AND other.id <> sync_queue_items.id
		  )`,
		sync.QueueStatusProcessing, now, now, now,
		id,
		sync.QueueStatusPending,
		sync.QueueStatusProcessing,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Update persists lifecycle changes to an existing item
func (r *GormQueueItemRepository) Update(ctx context.Context, item *sync.QueueItem) error {
	model := models.QueueItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// UpdateHeartbeat bumps last_heartbeat without touching other fields
func (r *GormQueueItemRepository) UpdateHeartbeat(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_heartbeat": now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrQueueItemNotFound
	}
	return nil
}

// UpdateCheckpoint persists a new checkpoint payload. A committed checkpoint
// is proof of progress, so retry_count starts over; the retry ceiling bounds
// consecutive failures, not total failures across a long sync.
func (r *GormQueueItemRepository) UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpoint []byte) error {
	result := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"checkpoint":  checkpoint,
			"retry_count": 0,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrQueueItemNotFound
	}
	return nil
}

// RequeueStale returns abandoned processing items to pending. Items with no
// retries left are terminated as failed instead.
func (r *GormQueueItemRepository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()

	if err := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("status = ? AND last_heartbeat < ? AND retry_count >= max_retries",
			sync.QueueStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        sync.QueueStatusFailed,
			"error_message": "heartbeat expired with no retries remaining",
			"error_type":    string(sync.ErrorTypeUnknown),
			"completed_at":  now,
			"updated_at":    now,
		}).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("status = ? AND last_heartbeat < ? AND retry_count < max_retries",
			sync.QueueStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        sync.QueueStatusPending,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"started_at":    nil,
			"error_message": "heartbeat expired, requeued",
			"error_type":    string(sync.ErrorTypeUnknown),
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// CountByStatus returns the item count per status
func (r *GormQueueItemRepository) CountByStatus(ctx context.Context) (map[sync.QueueStatus]int64, error) {
	type statusCount struct {
		Status sync.QueueStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[sync.QueueStatus]int64)
	for _, rc := range results {
		counts[rc.Status] = rc.Count
	}
	return counts, nil
}

func toDomainItems(rows []models.QueueItemModel) []*sync.QueueItem {
	items := make([]*sync.QueueItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items
}

// Ensure GormQueueItemRepository implements the repository interface
var _ sync.QueueItemRepository = (*GormQueueItemRepository)(nil)
