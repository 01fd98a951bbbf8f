package models

import (
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueueItemModel is the persistence model for the QueueItem domain entity.
type QueueItemModel struct {
	ID            uuid.UUID        `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID        `gorm:"type:uuid;not null;index:idx_sync_queue_integration_type,priority:1"`
	SyncType      sync.SyncType    `gorm:"type:varchar(30);not null;index:idx_sync_queue_integration_type,priority:2"`
	Status        sync.QueueStatus `gorm:"type:varchar(20);not null;index:idx_sync_queue_status_priority,priority:1"`
	Priority      int              `gorm:"not null;default:100;index:idx_sync_queue_status_priority,priority:2"`
	RetryCount    int              `gorm:"not null;default:0"`
	MaxRetries    int              `gorm:"not null;default:3"`
	Checkpoint    []byte           `gorm:"type:jsonb"`
	LastHeartbeat *time.Time       `gorm:"index"`
	ErrorMessage  string           `gorm:"type:text"`
	ErrorType     string           `gorm:"type:varchar(20)"`
	CreatedAt     time.Time        `gorm:"not null;index:idx_sync_queue_status_priority,priority:3"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QueueItemModel) TableName() string {
	return "sync_queue_items"
}

// ToDomain converts the persistence model to a domain QueueItem entity.
func (m *QueueItemModel) ToDomain() *sync.QueueItem {
	return &sync.QueueItem{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		SyncType:      m.SyncType,
		Status:        m.Status,
		Priority:      m.Priority,
		RetryCount:    m.RetryCount,
		MaxRetries:    m.MaxRetries,
		Checkpoint:    m.Checkpoint,
		LastHeartbeat: m.LastHeartbeat,
		ErrorMessage:  m.ErrorMessage,
		ErrorType:     sync.ErrorType(m.ErrorType),
		CreatedAt:     m.CreatedAt,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain QueueItem entity.
func (m *QueueItemModel) FromDomain(item *sync.QueueItem) {
	m.ID = item.ID
	m.IntegrationID = item.IntegrationID
	m.SyncType = item.SyncType
	m.Status = item.Status
	m.Priority = item.Priority
	m.RetryCount = item.RetryCount
	m.MaxRetries = item.MaxRetries
	m.Checkpoint = item.Checkpoint
	m.LastHeartbeat = item.LastHeartbeat
	m.ErrorMessage = item.ErrorMessage
	m.ErrorType = string(item.ErrorType)
	m.CreatedAt = item.CreatedAt
	m.StartedAt = item.StartedAt
	m.CompletedAt = item.CompletedAt
	m.UpdatedAt = item.UpdatedAt
}

// QueueItemModelFromDomain creates a new persistence model from a domain QueueItem.
func QueueItemModelFromDomain(item *sync.QueueItem) *QueueItemModel {
	m := &QueueItemModel{}
	m.FromDomain(item)
	return m
}

// SyncJobModel is the persistence model for the SyncJob domain entity.
type SyncJobModel struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key"`
	IntegrationID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_sync_jobs_integration"`
	JobType           sync.SyncType  `gorm:"type:varchar(30);not null"`
	Status            sync.JobStatus `gorm:"type:varchar(20);not null;index"`
	TotalItems        int            `gorm:"not null;default:0"`
	ProcessedItems    int            `gorm:"not null;default:0"`
	LastCountedCursor string         `gorm:"type:varchar(255);not null;default:''"`
	ErrorMessage      string         `gorm:"type:text"`
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob entity.
func (m *SyncJobModel) ToDomain() *sync.SyncJob {
	return &sync.SyncJob{
		ID:                m.ID,
		IntegrationID:     m.IntegrationID,
		JobType:           m.JobType,
		Status:            m.Status,
		TotalItems:        m.TotalItems,
		ProcessedItems:    m.ProcessedItems,
		LastCountedCursor: m.LastCountedCursor,
		ErrorMessage:      m.ErrorMessage,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncJob entity.
func (m *SyncJobModel) FromDomain(job *sync.SyncJob) {
	m.ID = job.ID
	m.IntegrationID = job.IntegrationID
	m.JobType = job.JobType
	m.Status = job.Status
	m.TotalItems = job.TotalItems
	m.ProcessedItems = job.ProcessedItems
	m.LastCountedCursor = job.LastCountedCursor
	m.ErrorMessage = job.ErrorMessage
	m.StartedAt = job.StartedAt
	m.CompletedAt = job.CompletedAt
	m.CreatedAt = job.CreatedAt
	m.UpdatedAt = job.UpdatedAt
}

// SyncJobModelFromDomain creates a new persistence model from a domain SyncJob.
func SyncJobModelFromDomain(job *sync.SyncJob) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(job)
	return m
}

// ProductLinkModel is the persistence model for matched product links.
// The unique index on (local_product_id, integration_id) is the conflict key
// making upserts idempotent.
type ProductLinkModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	IntegrationID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_links_local_integration,priority:2"`
	LocalProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_links_local_integration,priority:1"`
	ExternalProductID string    `gorm:"type:varchar(100);not null;index"`
	ExternalVariantID string    `gorm:"type:varchar(100)"`
	SKU               string    `gorm:"type:varchar(100);not null"`
	LastSeenAt        time.Time `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductLinkModel) TableName() string {
	return "product_links"
}

// ToDomain converts the persistence model to a domain ProductLink entity.
func (m *ProductLinkModel) ToDomain() *sync.ProductLink {
	return &sync.ProductLink{
		ID:                m.ID,
		IntegrationID:     m.IntegrationID,
		LocalProductID:    m.LocalProductID,
		ExternalProductID: m.ExternalProductID,
		ExternalVariantID: m.ExternalVariantID,
		SKU:               m.SKU,
		LastSeenAt:        m.LastSeenAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ProductLinkModelFromDomain creates a new persistence model from a domain ProductLink.
func ProductLinkModelFromDomain(l *sync.ProductLink) *ProductLinkModel {
	return &ProductLinkModel{
		ID:                l.ID,
		IntegrationID:     l.IntegrationID,
		LocalProductID:    l.LocalProductID,
		ExternalProductID: l.ExternalProductID,
		ExternalVariantID: l.ExternalVariantID,
		SKU:               l.SKU,
		LastSeenAt:        l.LastSeenAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

// UnmatchedProductModel is the persistence model for the manual-reconciliation
// pool. The unique index on (integration_id, external_id) is the conflict key.
type UnmatchedProductModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_unmatched_integration_external,priority:1"`
	ExternalID    string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_unmatched_integration_external,priority:2"`
	SKU           string          `gorm:"type:varchar(100)"`
	Title         string          `gorm:"type:varchar(255)"`
	Price         decimal.Decimal `gorm:"type:numeric(20,4)"`
	FirstSeenAt   time.Time       `gorm:"not null"`
	LastSeenAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnmatchedProductModel) TableName() string {
	return "unmatched_products"
}

// ToDomain converts the persistence model to a domain UnmatchedProduct entity.
func (m *UnmatchedProductModel) ToDomain() *sync.UnmatchedProduct {
	return &sync.UnmatchedProduct{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		ExternalID:    m.ExternalID,
		SKU:           m.SKU,
		Title:         m.Title,
		Price:         m.Price,
		FirstSeenAt:   m.FirstSeenAt,
		LastSeenAt:    m.LastSeenAt,
	}
}

// UnmatchedProductModelFromDomain creates a new persistence model from a domain UnmatchedProduct.
func UnmatchedProductModelFromDomain(u *sync.UnmatchedProduct) *UnmatchedProductModel {
	return &UnmatchedProductModel{
		ID:            u.ID,
		IntegrationID: u.IntegrationID,
		ExternalID:    u.ExternalID,
		SKU:           u.SKU,
		Title:         u.Title,
		Price:         u.Price,
		FirstSeenAt:   u.FirstSeenAt,
		LastSeenAt:    u.LastSeenAt,
	}
}

// OrderRecordModel is the persistence model for synced platform orders.
// The unique index on (integration_id, external_id) makes re-applied pages
// and re-delivered webhooks idempotent.
type OrderRecordModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	IntegrationID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_records_integration_external,priority:1"`
	ExternalID      string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_records_integration_external,priority:2"`
	Number          string          `gorm:"type:varchar(50)"`
	Currency        string          `gorm:"type:varchar(10)"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(20,4)"`
	FinancialStatus string          `gorm:"type:varchar(30)"`
	PlacedAt        time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderRecordModel) TableName() string {
	return "order_records"
}

// ToDomain converts the persistence model to a domain OrderRecord entity.
func (m *OrderRecordModel) ToDomain() *sync.OrderRecord {
	return &sync.OrderRecord{
		ID:              m.ID,
		IntegrationID:   m.IntegrationID,
		ExternalID:      m.ExternalID,
		Number:          m.Number,
		Currency:        m.Currency,
		TotalPrice:      m.TotalPrice,
		FinancialStatus: m.FinancialStatus,
		PlacedAt:        m.PlacedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// OrderRecordModelFromDomain creates a new persistence model from a domain OrderRecord.
func OrderRecordModelFromDomain(o *sync.OrderRecord) *OrderRecordModel {
	return &OrderRecordModel{
		ID:              o.ID,
		IntegrationID:   o.IntegrationID,
		ExternalID:      o.ExternalID,
		Number:          o.Number,
		Currency:        o.Currency,
		TotalPrice:      o.TotalPrice,
		FinancialStatus: o.FinancialStatus,
		PlacedAt:        o.PlacedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// IntegrationModel is the persistence model for platform credentials.
type IntegrationModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	Name          string    `gorm:"type:varchar(100);not null"`
	ShopURL       string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	AccessToken   string    `gorm:"type:varchar(255);not null"`
	WebhookSecret string    `gorm:"type:varchar(255)"`
	Active        bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *sync.Integration {
	return &sync.Integration{
		ID:            m.ID,
		Name:          m.Name,
		ShopURL:       m.ShopURL,
		AccessToken:   m.AccessToken,
		WebhookSecret: m.WebhookSecret,
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// LocalProductModel is the persistence model for the local catalog slice the
// matcher reads. SKU is the natural key.
type LocalProductModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SKU       string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name      string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocalProductModel) TableName() string {
	return "products"
}
