package persistence

import (
	"context"
	"errors"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIntegrationRepository implements sync.IntegrationReader using GORM.
// Provisioning integrations is out of scope; this side only reads.
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GORM-based integration repository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Integration, error) {
	var model models.IntegrationModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByShopURL finds an integration by its shop domain
func (r *GormIntegrationRepository) FindByShopURL(ctx context.Context, shopURL string) (*sync.Integration, error) {
	var model models.IntegrationModel
	err := r.db.WithContext(ctx).Where("shop_url = ?", shopURL).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormIntegrationRepository implements the reader interface
var _ sync.IntegrationReader = (*GormIntegrationRepository)(nil)
