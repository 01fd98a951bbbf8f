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

// GormSyncJobRepository implements sync.SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GORM-based sync job repository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Create persists a new job
func (r *GormSyncJobRepository) Create(ctx context.Context, job *sync.SyncJob) error {
	model := models.SyncJobModelFromDomain(job)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds a job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	var model models.SyncJobModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIntegration lists jobs for an integration, newest first
func (r *GormSyncJobRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.SyncJob, error) {
	var rows []models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*sync.SyncJob, len(rows))
	for i := range rows {
		jobs[i] = rows[i].ToDomain()
	}
	return jobs, nil
}

// Update persists lifecycle changes to an existing job
func (r *GormSyncJobRepository) Update(ctx context.Context, job *sync.SyncJob) error {
	model := models.SyncJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// IncrementProcessed adds delta to processed_items unless this page was
// already counted. A single conditional UPDATE, so a crash between the bulk
// upsert and the counter, or a re-delivered response, cannot double count.
func (r *GormSyncJobRepository) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int, pageKey string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("id = ? AND last_counted_cursor <> ?", id, pageKey).
		Updates(map[string]interface{}{
			"processed_items":     gorm.Expr("processed_items + ?", delta),
			"last_counted_cursor": pageKey,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Ensure GormSyncJobRepository implements the repository interface
var _ sync.SyncJobRepository = (*GormSyncJobRepository)(nil)
