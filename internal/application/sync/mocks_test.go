package sync

import (
	"context"
	"time"

	"github.com/erp/channel-sync/internal/domain/shared"
	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockQueueItemRepository is a mock implementation of QueueItemRepository
type MockQueueItemRepository struct {
	mock.Mock
}

func (m *MockQueueItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.QueueItem), args.Error(1)
}

func (m *MockQueueItemRepository) FindPending(ctx context.Context, limit int) ([]*sync.QueueItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.QueueItem), args.Error(1)
}

func (m *MockQueueItemRepository) FindByStatus(ctx context.Context, status sync.QueueStatus, limit int) ([]*sync.QueueItem, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.QueueItem), args.Error(1)
}

func (m *MockQueueItemRepository) HasProcessing(ctx context.Context, integrationID uuid.UUID, syncType sync.SyncType, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, integrationID, syncType, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueueItemRepository) CountByStatus(ctx context.Context) (map[sync.QueueStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[sync.QueueStatus]int64), args.Error(1)
}

func (m *MockQueueItemRepository) Enqueue(ctx context.Context, item *sync.QueueItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockQueueItemRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueueItemRepository) Update(ctx context.Context, item *sync.QueueItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockQueueItemRepository) UpdateHeartbeat(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQueueItemRepository) UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpoint []byte) error {
	args := m.Called(ctx, id, checkpoint)
	return args.Error(0)
}

func (m *MockQueueItemRepository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

var _ sync.QueueItemRepository = (*MockQueueItemRepository)(nil)

// MockSyncJobRepository is a mock implementation of SyncJobRepository
type MockSyncJobRepository struct {
	mock.Mock
}

func (m *MockSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.SyncJob, error) {
	args := m.Called(ctx, integrationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.SyncJob), args.Error(1)
}

func (m *MockSyncJobRepository) Create(ctx context.Context, job *sync.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockSyncJobRepository) Update(ctx context.Context, job *sync.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockSyncJobRepository) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int, pageKey string) (bool, error) {
	args := m.Called(ctx, id, delta, pageKey)
	return args.Bool(0), args.Error(1)
}

var _ sync.SyncJobRepository = (*MockSyncJobRepository)(nil)

// MockIntegrationReader is a mock implementation of IntegrationReader
type MockIntegrationReader struct {
	mock.Mock
}

func (m *MockIntegrationReader) FindByID(ctx context.Context, id uuid.UUID) (*sync.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.Integration), args.Error(1)
}

func (m *MockIntegrationReader) FindByShopURL(ctx context.Context, shopURL string) (*sync.Integration, error) {
	args := m.Called(ctx, shopURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.Integration), args.Error(1)
}

var _ sync.IntegrationReader = (*MockIntegrationReader)(nil)

// MockLocalProductReader is a mock implementation of LocalProductReader
type MockLocalProductReader struct {
	mock.Mock
}

func (m *MockLocalProductReader) FindByKeys(ctx context.Context, keys []string) (map[string]sync.LocalProduct, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]sync.LocalProduct), args.Error(1)
}

var _ sync.LocalProductReader = (*MockLocalProductReader)(nil)

// MockProductLinkRepository is a mock implementation of ProductLinkRepository
type MockProductLinkRepository struct {
	mock.Mock
}

func (m *MockProductLinkRepository) Upsert(ctx context.Context, links []*sync.ProductLink) error {
	args := m.Called(ctx, links)
	return args.Error(0)
}

func (m *MockProductLinkRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.ProductLink, error) {
	args := m.Called(ctx, integrationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.ProductLink), args.Error(1)
}

func (m *MockProductLinkRepository) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, integrationID)
	return args.Get(0).(int64), args.Error(1)
}

var _ sync.ProductLinkRepository = (*MockProductLinkRepository)(nil)

// MockUnmatchedProductRepository is a mock implementation of UnmatchedProductRepository
type MockUnmatchedProductRepository struct {
	mock.Mock
}

func (m *MockUnmatchedProductRepository) Upsert(ctx context.Context, records []*sync.UnmatchedProduct) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockUnmatchedProductRepository) DeleteByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) error {
	args := m.Called(ctx, integrationID, externalIDs)
	return args.Error(0)
}

func (m *MockUnmatchedProductRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.UnmatchedProduct, error) {
	args := m.Called(ctx, integrationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.UnmatchedProduct), args.Error(1)
}

func (m *MockUnmatchedProductRepository) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, integrationID)
	return args.Get(0).(int64), args.Error(1)
}

var _ sync.UnmatchedProductRepository = (*MockUnmatchedProductRepository)(nil)

// MockOrderRecordRepository is a mock implementation of OrderRecordRepository
type MockOrderRecordRepository struct {
	mock.Mock
}

func (m *MockOrderRecordRepository) Upsert(ctx context.Context, records []*sync.OrderRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockOrderRecordRepository) ExistsByExternalID(ctx context.Context, integrationID uuid.UUID, externalID string) (bool, error) {
	args := m.Called(ctx, integrationID, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRecordRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.OrderRecord, error) {
	args := m.Called(ctx, integrationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.OrderRecord), args.Error(1)
}

var _ sync.OrderRecordRepository = (*MockOrderRecordRepository)(nil)

// MockFulfillmentService is a mock implementation of FulfillmentService
type MockFulfillmentService struct {
	mock.Mock
}

func (m *MockFulfillmentService) ShipOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error {
	args := m.Called(ctx, orderID, idempotencyKey)
	return args.Error(0)
}

func (m *MockFulfillmentService) CancelOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error {
	args := m.Called(ctx, orderID, idempotencyKey)
	return args.Error(0)
}

var _ sync.FulfillmentService = (*MockFulfillmentService)(nil)

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ shared.IdempotencyStore = (*MockIdempotencyStore)(nil)
