package sync

import (
	"context"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The fakes below back the multi-page worker and processor tests. Unlike the
// testify mocks they carry state across calls, behaving like a tiny database:
// entities are cloned on the way in and out so the code under test cannot
// share memory with the stored rows.

// ---------------------------------------------------------------------------
// Queue Repository Fake
// ---------------------------------------------------------------------------

type memQueueRepo struct {
	mu    stdsync.Mutex
	items map[uuid.UUID]*sync.QueueItem
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{items: make(map[uuid.UUID]*sync.QueueItem)}
}

func cloneQueueItem(q *sync.QueueItem) *sync.QueueItem {
	c := *q
	if q.Checkpoint != nil {
		c.Checkpoint = append([]byte(nil), q.Checkpoint...)
	}
	return &c
}

func (r *memQueueRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, sync.ErrQueueItemNotFound
	}
	return cloneQueueItem(item), nil
}

func (r *memQueueRepo) FindPending(ctx context.Context, limit int) ([]*sync.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*sync.QueueItem
	for _, item := range r.items {
		if item.Status == sync.QueueStatusPending {
			pending = append(pending, cloneQueueItem(item))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority < pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *memQueueRepo) FindByStatus(ctx context.Context, status sync.QueueStatus, limit int) ([]*sync.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.QueueItem
	for _, item := range r.items {
		if item.Status == status {
			out = append(out, cloneQueueItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memQueueRepo) HasProcessing(ctx context.Context, integrationID uuid.UUID, syncType sync.SyncType, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasProcessingLocked(integrationID, syncType, excludeID), nil
}

func (r *memQueueRepo) hasProcessingLocked(integrationID uuid.UUID, syncType sync.SyncType, excludeID uuid.UUID) bool {
	for _, item := range r.items {
		if item.ID != excludeID &&
			item.IntegrationID == integrationID &&
			item.SyncType == syncType &&
			item.Status == sync.QueueStatusProcessing {
			return true
		}
	}
	return false
}

func (r *memQueueRepo) CountByStatus(ctx context.Context) (map[sync.QueueStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[sync.QueueStatus]int64)
	for _, item := range r.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (r *memQueueRepo) Enqueue(ctx context.Context, item *sync.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneQueueItem(item)
	return nil
}

func (r *memQueueRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.Status != sync.QueueStatusPending {
		return false, nil
	}
	if r.hasProcessingLocked(item.IntegrationID, item.SyncType, id) {
		return false, nil
	}
	if err := item.Start(); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *memQueueRepo) Update(ctx context.Context, item *sync.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return sync.ErrQueueItemNotFound
	}
	r.items[item.ID] = cloneQueueItem(item)
	return nil
}

func (r *memQueueRepo) UpdateHeartbeat(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return sync.ErrQueueItemNotFound
	}
	item.Touch()
	return nil
}

func (r *memQueueRepo) UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpoint []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return sync.ErrQueueItemNotFound
	}
	item.Checkpoint = append([]byte(nil), checkpoint...)
	item.RetryCount = 0
	item.UpdatedAt = time.Now()
	return nil
}

func (r *memQueueRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var requeued int64
	for _, item := range r.items {
		if item.Status != sync.QueueStatusProcessing {
			continue
		}
		if item.LastHeartbeat != nil && !item.LastHeartbeat.Before(cutoff) {
			continue
		}
		if item.CanRetry() {
			item.Status = sync.QueueStatusPending
			item.RetryCount++
			item.StartedAt = nil
			requeued++
		} else {
			item.Fail("heartbeat expired", sync.ErrorTypeRetryable)
		}
	}
	return requeued, nil
}

var _ sync.QueueItemRepository = (*memQueueRepo)(nil)

// ---------------------------------------------------------------------------
// Job Repository Fake
// ---------------------------------------------------------------------------

type memJobRepo struct {
	mu   stdsync.Mutex
	jobs map[uuid.UUID]*sync.SyncJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uuid.UUID]*sync.SyncJob)}
}

func cloneJob(j *sync.SyncJob) *sync.SyncJob {
	c := *j
	return &c
}

func (r *memJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sync.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (r *memJobRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.SyncJob
	for _, job := range r.jobs {
		if job.IntegrationID == integrationID {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memJobRepo) Create(ctx context.Context, job *sync.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *memJobRepo) Update(ctx context.Context, job *sync.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return sync.ErrJobNotFound
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *memJobRepo) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int, pageKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, nil
	}
	if job.LastCountedCursor == pageKey {
		return false, nil
	}
	job.ProcessedItems += delta
	job.LastCountedCursor = pageKey
	job.UpdatedAt = time.Now()
	return true, nil
}

var _ sync.SyncJobRepository = (*memJobRepo)(nil)

// ---------------------------------------------------------------------------
// Matching Fakes
// ---------------------------------------------------------------------------

type memLocalProducts struct {
	bySKU map[string]sync.LocalProduct
}

func newMemLocalProducts(skus ...string) *memLocalProducts {
	m := &memLocalProducts{bySKU: make(map[string]sync.LocalProduct)}
	for _, sku := range skus {
		m.bySKU[sku] = sync.LocalProduct{ID: uuid.New(), SKU: sku, Name: "local " + sku}
	}
	return m
}

func (r *memLocalProducts) FindByKeys(ctx context.Context, keys []string) (map[string]sync.LocalProduct, error) {
	out := make(map[string]sync.LocalProduct)
	for _, key := range keys {
		if p, ok := r.bySKU[key]; ok {
			out[key] = p
		}
	}
	return out, nil
}

var _ sync.LocalProductReader = (*memLocalProducts)(nil)

type memLinkRepo struct {
	mu   stdsync.Mutex
	rows map[string]*sync.ProductLink
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{rows: make(map[string]*sync.ProductLink)}
}

func (r *memLinkRepo) Upsert(ctx context.Context, links []*sync.ProductLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range links {
		key := link.LocalProductID.String() + "|" + link.IntegrationID.String()
		r.rows[key] = link
	}
	return nil
}

func (r *memLinkRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.ProductLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.ProductLink
	for _, link := range r.rows {
		if link.IntegrationID == integrationID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (r *memLinkRepo) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	links, _ := r.FindByIntegration(ctx, integrationID, 0)
	return int64(len(links)), nil
}

var _ sync.ProductLinkRepository = (*memLinkRepo)(nil)

type memUnmatchedRepo struct {
	mu   stdsync.Mutex
	rows map[string]*sync.UnmatchedProduct
}

func newMemUnmatchedRepo() *memUnmatchedRepo {
	return &memUnmatchedRepo{rows: make(map[string]*sync.UnmatchedProduct)}
}

func (r *memUnmatchedRepo) Upsert(ctx context.Context, records []*sync.UnmatchedProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		key := rec.IntegrationID.String() + "|" + rec.ExternalID
		r.rows[key] = rec
	}
	return nil
}

func (r *memUnmatchedRepo) DeleteByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range externalIDs {
		delete(r.rows, integrationID.String()+"|"+id)
	}
	return nil
}

func (r *memUnmatchedRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.UnmatchedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.UnmatchedProduct
	for _, rec := range r.rows {
		if rec.IntegrationID == integrationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memUnmatchedRepo) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	recs, _ := r.FindByIntegration(ctx, integrationID, 0)
	return int64(len(recs)), nil
}

var _ sync.UnmatchedProductRepository = (*memUnmatchedRepo)(nil)

type memOrderRepo struct {
	mu   stdsync.Mutex
	rows map[string]*sync.OrderRecord
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{rows: make(map[string]*sync.OrderRecord)}
}

func (r *memOrderRepo) Upsert(ctx context.Context, records []*sync.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.rows[rec.IntegrationID.String()+"|"+rec.ExternalID] = rec
	}
	return nil
}

func (r *memOrderRepo) ExistsByExternalID(ctx context.Context, integrationID uuid.UUID, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[integrationID.String()+"|"+externalID]
	return ok, nil
}

func (r *memOrderRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.OrderRecord
	for _, rec := range r.rows {
		if rec.IntegrationID == integrationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ sync.OrderRecordRepository = (*memOrderRepo)(nil)

// ---------------------------------------------------------------------------
// Scripted Platform Client
// ---------------------------------------------------------------------------

// scriptedClient serves pre-built pages keyed by cursor. Errors in failures
// fire once per key and are then consumed, modelling a transient outage;
// errors in permanentFailures fire on every call.
type scriptedClient struct {
	mu stdsync.Mutex

	productPages map[string]sync.ProductPage
	orderPages   map[string]sync.OrderPage

	failures          map[string]error
	permanentFailures map[string]error

	productCount   int
	orderCount     int
	countErr       error
	productFetches int
	orderFetches   int
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		productPages:      make(map[string]sync.ProductPage),
		orderPages:        make(map[string]sync.OrderPage),
		failures:          make(map[string]error),
		permanentFailures: make(map[string]error),
	}
}

func (c *scriptedClient) CountProducts(ctx context.Context) (int, error) {
	if c.countErr != nil {
		return 0, c.countErr
	}
	return c.productCount, nil
}

func (c *scriptedClient) CountOrders(ctx context.Context) (int, error) {
	if c.countErr != nil {
		return 0, c.countErr
	}
	return c.orderCount, nil
}

func (c *scriptedClient) failureFor(cursor string) error {
	if err, ok := c.permanentFailures[cursor]; ok {
		return err
	}
	if err, ok := c.failures[cursor]; ok {
		delete(c.failures, cursor)
		return err
	}
	return nil
}

func (c *scriptedClient) FetchProductPage(ctx context.Context, pageSize int, cursor string) (*sync.ProductPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failureFor(cursor); err != nil {
		return nil, err
	}
	c.productFetches++
	page := c.productPages[cursor]
	return &page, nil
}

func (c *scriptedClient) FetchOrderPage(ctx context.Context, pageSize int, cursor string) (*sync.OrderPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failureFor(cursor); err != nil {
		return nil, err
	}
	c.orderFetches++
	page := c.orderPages[cursor]
	return &page, nil
}

var _ sync.ShopClient = (*scriptedClient)(nil)

// staticFactory hands out the same client for every integration
type staticFactory struct {
	client sync.ShopClient
}

func (f *staticFactory) ClientFor(integration *sync.Integration) (sync.ShopClient, error) {
	if integration == nil {
		return nil, sync.ErrIntegrationNotFound
	}
	if err := integration.Validate(); err != nil {
		return nil, err
	}
	return f.client, nil
}

var _ sync.ShopClientFactory = (*staticFactory)(nil)

// ---------------------------------------------------------------------------
// Fixture Builders
// ---------------------------------------------------------------------------

// makeProducts builds n single-variant products with SKUs sku-<from>..
func makeProducts(from, n int) []sync.ExternalProduct {
	products := make([]sync.ExternalProduct, 0, n)
	for i := 0; i < n; i++ {
		idx := from + i
		products = append(products, sync.ExternalProduct{
			ID:     fmt.Sprintf("gid-prod-%d", idx),
			Title:  fmt.Sprintf("Product %d", idx),
			Status: "active",
			Variants: []sync.ExternalVariant{{
				ID:                fmt.Sprintf("gid-var-%d", idx),
				SKU:               fmt.Sprintf("sku-%d", idx),
				Price:             decimal.NewFromFloat(9.99),
				InventoryQuantity: idx,
			}},
			UpdatedAt: time.Now(),
		})
	}
	return products
}

// makeOrders builds n orders with external IDs ord-<from>..
func makeOrders(from, n int, placedAt time.Time) []sync.ExternalOrder {
	orders := make([]sync.ExternalOrder, 0, n)
	for i := 0; i < n; i++ {
		idx := from + i
		orders = append(orders, sync.ExternalOrder{
			ID:              fmt.Sprintf("ord-%d", idx),
			Number:          fmt.Sprintf("#%d", 1000+idx),
			Currency:        "USD",
			TotalPrice:      decimal.NewFromInt(int64(idx)),
			FinancialStatus: "paid",
			CreatedAt:       placedAt,
		})
	}
	return orders
}

// activeIntegration builds a usable integration and registers it with the reader
type staticIntegrations struct {
	byID   map[uuid.UUID]*sync.Integration
	byShop map[string]*sync.Integration
}

func newStaticIntegrations(integrations ...*sync.Integration) *staticIntegrations {
	r := &staticIntegrations{
		byID:   make(map[uuid.UUID]*sync.Integration),
		byShop: make(map[string]*sync.Integration),
	}
	for _, in := range integrations {
		r.byID[in.ID] = in
		r.byShop[in.ShopURL] = in
	}
	return r
}

func (r *staticIntegrations) FindByID(ctx context.Context, id uuid.UUID) (*sync.Integration, error) {
	in, ok := r.byID[id]
	if !ok {
		return nil, sync.ErrIntegrationNotFound
	}
	return in, nil
}

func (r *staticIntegrations) FindByShopURL(ctx context.Context, shopURL string) (*sync.Integration, error) {
	in, ok := r.byShop[shopURL]
	if !ok {
		return nil, sync.ErrIntegrationNotFound
	}
	return in, nil
}

var _ sync.IntegrationReader = (*staticIntegrations)(nil)

func activeIntegration() *sync.Integration {
	now := time.Now()
	return &sync.Integration{
		ID:            uuid.New(),
		Name:          "Acme Store",
		ShopURL:       "acme.myshopify.com",
		AccessToken:   "shpat_test",
		WebhookSecret: "whsec_test",
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
