package persistence

import (
	"context"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductLinkRepository implements sync.ProductLinkRepository using GORM
type GormProductLinkRepository struct {
	db *gorm.DB
}

// NewGormProductLinkRepository creates a new GORM-based product link repository
func NewGormProductLinkRepository(db *gorm.DB) *GormProductLinkRepository {
	return &GormProductLinkRepository{db: db}
}

// Upsert bulk-writes links. The conflict key (local_product_id,
// integration_id) makes re-processing the same page a no-op update instead of
// a duplicate insert.
func (r *GormProductLinkRepository) Upsert(ctx context.Context, links []*sync.ProductLink) error {
	if len(links) == 0 {
		return nil
	}

	rows := make([]models.ProductLinkModel, len(links))
	for i, l := range links {
		rows[i] = *models.ProductLinkModelFromDomain(l)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "local_product_id"}, {Name: "integration_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"external_product_id", "external_variant_id", "sku", "last_seen_at", "updated_at",
			}),
		}).
		Create(&rows).Error
}

// FindByIntegration lists links for an integration
func (r *GormProductLinkRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.ProductLink, error) {
	var rows []models.ProductLinkModel
	err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	links := make([]*sync.ProductLink, len(rows))
	for i := range rows {
		links[i] = rows[i].ToDomain()
	}
	return links, nil
}

// CountByIntegration counts links for an integration
func (r *GormProductLinkRepository) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductLinkModel{}).
		Where("integration_id = ?", integrationID).
		Count(&count).Error
	return count, err
}

// GormUnmatchedProductRepository implements sync.UnmatchedProductRepository
// using GORM
type GormUnmatchedProductRepository struct {
	db *gorm.DB
}

// NewGormUnmatchedProductRepository creates a new GORM-based unmatched product repository
func NewGormUnmatchedProductRepository(db *gorm.DB) *GormUnmatchedProductRepository {
	return &GormUnmatchedProductRepository{db: db}
}

// Upsert bulk-writes unmatched records. Conflicts on (integration_id,
// external_id) keep first_seen_at and refresh the rest.
func (r *GormUnmatchedProductRepository) Upsert(ctx context.Context, records []*sync.UnmatchedProduct) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]models.UnmatchedProductModel, len(records))
	for i, u := range records {
		rows[i] = *models.UnmatchedProductModelFromDomain(u)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "integration_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku", "title", "price", "last_seen_at",
			}),
		}).
		Create(&rows).Error
}

// DeleteByExternalIDs removes records newly matched in this page from the
// reconciliation pool
func (r *GormUnmatchedProductRepository) DeleteByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) error {
	if len(externalIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("integration_id = ? AND external_id IN ?", integrationID, externalIDs).
		Delete(&models.UnmatchedProductModel{}).Error
}

// FindByIntegration lists unmatched records for an integration
func (r *GormUnmatchedProductRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.UnmatchedProduct, error) {
	var rows []models.UnmatchedProductModel
	err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*sync.UnmatchedProduct, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// CountByIntegration counts unmatched records for an integration
func (r *GormUnmatchedProductRepository) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UnmatchedProductModel{}).
		Where("integration_id = ?", integrationID).
		Count(&count).Error
	return count, err
}

// GormLocalProductReader implements sync.LocalProductReader using GORM
type GormLocalProductReader struct {
	db *gorm.DB
}

// NewGormLocalProductReader creates a new GORM-based local product reader
func NewGormLocalProductReader(db *gorm.DB) *GormLocalProductReader {
	return &GormLocalProductReader{db: db}
}

// FindByKeys batch-fetches local products for the given SKUs in one query
func (r *GormLocalProductReader) FindByKeys(ctx context.Context, keys []string) (map[string]sync.LocalProduct, error) {
	result := make(map[string]sync.LocalProduct, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var rows []models.LocalProductModel
	err := r.db.WithContext(ctx).
		Where("sku IN ?", keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.SKU] = sync.LocalProduct{
			ID:   row.ID,
			SKU:  row.SKU,
			Name: row.Name,
		}
	}
	return result, nil
}

// Ensure repository interfaces are implemented
var (
	_ sync.ProductLinkRepository      = (*GormProductLinkRepository)(nil)
	_ sync.UnmatchedProductRepository = (*GormUnmatchedProductRepository)(nil)
	_ sync.LocalProductReader         = (*GormLocalProductReader)(nil)
)
