package persistence

import (
	"context"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRecordRepository implements sync.OrderRecordRepository using GORM
type GormOrderRecordRepository struct {
	db *gorm.DB
}

// NewGormOrderRecordRepository creates a new GORM-based order record repository
func NewGormOrderRecordRepository(db *gorm.DB) *GormOrderRecordRepository {
	return &GormOrderRecordRepository{db: db}
}

// Upsert bulk-writes order records; conflicts on (integration_id,
// external_id) update the mutable fields
func (r *GormOrderRecordRepository) Upsert(ctx context.Context, records []*sync.OrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]models.OrderRecordModel, len(records))
	for i, o := range records {
		rows[i] = *models.OrderRecordModelFromDomain(o)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "integration_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"number", "currency", "total_price", "financial_status", "updated_at",
			}),
		}).
		Create(&rows).Error
}

// ExistsByExternalID reports whether an order with this platform ID is
// already persisted
func (r *GormOrderRecordRepository) ExistsByExternalID(ctx context.Context, integrationID uuid.UUID, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderRecordModel{}).
		Where("integration_id = ? AND external_id = ?", integrationID, externalID).
		Count(&count).Error
	return count > 0, err
}

// FindByIntegration lists order records for an integration, newest first
func (r *GormOrderRecordRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.OrderRecord, error) {
	var rows []models.OrderRecordModel
	err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("placed_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*sync.OrderRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// Ensure GormOrderRecordRepository implements the repository interface
var _ sync.OrderRecordRepository = (*GormOrderRecordRepository)(nil)
