package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	syncapp "github.com/erp/channel-sync/internal/application/sync"
	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/infrastructure/cache"
	"github.com/erp/channel-sync/internal/interfaces/http/middleware"
	"github.com/erp/channel-sync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The handler tests run real services over in-memory repositories, so each
// request exercises the full path from routing through domain rules.

// ---------------------------------------------------------------------------
// Repository Fakes
// ---------------------------------------------------------------------------

type fakeQueueRepo struct {
	mu    stdsync.Mutex
	items map[uuid.UUID]*sync.QueueItem
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{items: make(map[uuid.UUID]*sync.QueueItem)}
}

func cloneItem(q *sync.QueueItem) *sync.QueueItem {
	c := *q
	if q.Checkpoint != nil {
		c.Checkpoint = append([]byte(nil), q.Checkpoint...)
	}
	return &c
}

func (r *fakeQueueRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, sync.ErrQueueItemNotFound
	}
	return cloneItem(item), nil
}

func (r *fakeQueueRepo) FindPending(ctx context.Context, limit int) ([]*sync.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.QueueItem
	for _, item := range r.items {
		if item.Status == sync.QueueStatusPending {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQueueRepo) FindByStatus(ctx context.Context, status sync.QueueStatus, limit int) ([]*sync.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.QueueItem
	for _, item := range r.items {
		if item.Status == status {
			out = append(out, cloneItem(item))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQueueRepo) HasProcessing(ctx context.Context, integrationID uuid.UUID, syncType sync.SyncType, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasProcessingLocked(integrationID, syncType, excludeID), nil
}

func (r *fakeQueueRepo) hasProcessingLocked(integrationID uuid.UUID, syncType sync.SyncType, excludeID uuid.UUID) bool {
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

func (r *fakeQueueRepo) CountByStatus(ctx context.Context) (map[sync.QueueStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[sync.QueueStatus]int64)
	for _, item := range r.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (r *fakeQueueRepo) Enqueue(ctx context.Context, item *sync.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *fakeQueueRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
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

func (r *fakeQueueRepo) Update(ctx context.Context, item *sync.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return sync.ErrQueueItemNotFound
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *fakeQueueRepo) UpdateHeartbeat(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return sync.ErrQueueItemNotFound
	}
	item.Touch()
	return nil
}

func (r *fakeQueueRepo) UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpoint []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return sync.ErrQueueItemNotFound
	}
	item.Checkpoint = append([]byte(nil), checkpoint...)
	item.RetryCount = 0
	return nil
}

func (r *fakeQueueRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

var _ sync.QueueItemRepository = (*fakeQueueRepo)(nil)

type fakeJobRepo struct {
	mu   stdsync.Mutex
	jobs map[uuid.UUID]*sync.SyncJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*sync.SyncJob)}
}

func (r *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sync.ErrJobNotFound
	}
	c := *job
	return &c, nil
}

func (r *fakeJobRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sync.SyncJob
	for _, job := range r.jobs {
		if job.IntegrationID == integrationID {
			c := *job
			out = append(out, &c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeJobRepo) Create(ctx context.Context, job *sync.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *job
	r.jobs[job.ID] = &c
	return nil
}

func (r *fakeJobRepo) Update(ctx context.Context, job *sync.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return sync.ErrJobNotFound
	}
	c := *job
	r.jobs[job.ID] = &c
	return nil
}

func (r *fakeJobRepo) IncrementProcessed(ctx context.Context, id uuid.UUID, delta int, pageKey string) (bool, error) {
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
	return true, nil
}

var _ sync.SyncJobRepository = (*fakeJobRepo)(nil)

type fakeIntegrations struct {
	byID   map[uuid.UUID]*sync.Integration
	byShop map[string]*sync.Integration
}

func newFakeIntegrations(integrations ...*sync.Integration) *fakeIntegrations {
	r := &fakeIntegrations{
		byID:   make(map[uuid.UUID]*sync.Integration),
		byShop: make(map[string]*sync.Integration),
	}
	for _, in := range integrations {
		r.byID[in.ID] = in
		r.byShop[in.ShopURL] = in
	}
	return r
}

func (r *fakeIntegrations) FindByID(ctx context.Context, id uuid.UUID) (*sync.Integration, error) {
	in, ok := r.byID[id]
	if !ok {
		return nil, sync.ErrIntegrationNotFound
	}
	return in, nil
}

func (r *fakeIntegrations) FindByShopURL(ctx context.Context, shopURL string) (*sync.Integration, error) {
	in, ok := r.byShop[shopURL]
	if !ok {
		return nil, sync.ErrIntegrationNotFound
	}
	return in, nil
}

var _ sync.IntegrationReader = (*fakeIntegrations)(nil)

type fakeOrderRepo struct {
	mu   stdsync.Mutex
	rows map[string]*sync.OrderRecord
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{rows: make(map[string]*sync.OrderRecord)}
}

func (r *fakeOrderRepo) Upsert(ctx context.Context, records []*sync.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.rows[rec.IntegrationID.String()+"|"+rec.ExternalID] = rec
	}
	return nil
}

func (r *fakeOrderRepo) ExistsByExternalID(ctx context.Context, integrationID uuid.UUID, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[integrationID.String()+"|"+externalID]
	return ok, nil
}

func (r *fakeOrderRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.OrderRecord, error) {
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

func (r *fakeOrderRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

var _ sync.OrderRecordRepository = (*fakeOrderRepo)(nil)

type fakeLocalProducts struct {
	bySKU map[string]sync.LocalProduct
}

func newFakeLocalProducts(skus ...string) *fakeLocalProducts {
	m := &fakeLocalProducts{bySKU: make(map[string]sync.LocalProduct)}
	for _, sku := range skus {
		m.bySKU[sku] = sync.LocalProduct{ID: uuid.New(), SKU: sku, Name: "local " + sku}
	}
	return m
}

func (r *fakeLocalProducts) FindByKeys(ctx context.Context, keys []string) (map[string]sync.LocalProduct, error) {
	out := make(map[string]sync.LocalProduct)
	for _, key := range keys {
		if p, ok := r.bySKU[key]; ok {
			out[key] = p
		}
	}
	return out, nil
}

var _ sync.LocalProductReader = (*fakeLocalProducts)(nil)

type fakeLinkRepo struct {
	mu   stdsync.Mutex
	rows map[string]*sync.ProductLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{rows: make(map[string]*sync.ProductLink)}
}

func (r *fakeLinkRepo) Upsert(ctx context.Context, links []*sync.ProductLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range links {
		r.rows[link.LocalProductID.String()+"|"+link.IntegrationID.String()] = link
	}
	return nil
}

func (r *fakeLinkRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.ProductLink, error) {
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

func (r *fakeLinkRepo) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	links, _ := r.FindByIntegration(ctx, integrationID, 0)
	return int64(len(links)), nil
}

var _ sync.ProductLinkRepository = (*fakeLinkRepo)(nil)

type fakeUnmatchedRepo struct {
	mu   stdsync.Mutex
	rows map[string]*sync.UnmatchedProduct
}

func newFakeUnmatchedRepo() *fakeUnmatchedRepo {
	return &fakeUnmatchedRepo{rows: make(map[string]*sync.UnmatchedProduct)}
}

func (r *fakeUnmatchedRepo) Upsert(ctx context.Context, records []*sync.UnmatchedProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.rows[rec.IntegrationID.String()+"|"+rec.ExternalID] = rec
	}
	return nil
}

func (r *fakeUnmatchedRepo) DeleteByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range externalIDs {
		delete(r.rows, integrationID.String()+"|"+id)
	}
	return nil
}

func (r *fakeUnmatchedRepo) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*sync.UnmatchedProduct, error) {
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

func (r *fakeUnmatchedRepo) CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	recs, _ := r.FindByIntegration(ctx, integrationID, 0)
	return int64(len(recs)), nil
}

var _ sync.UnmatchedProductRepository = (*fakeUnmatchedRepo)(nil)

// ---------------------------------------------------------------------------
// Scripted Platform Client
// ---------------------------------------------------------------------------

type fakeShopClient struct {
	mu           stdsync.Mutex
	productPages map[string]sync.ProductPage
	orderPages   map[string]sync.OrderPage
	failures     map[string]error
	productCount int
	orderCount   int
}

func newFakeShopClient() *fakeShopClient {
	return &fakeShopClient{
		productPages: make(map[string]sync.ProductPage),
		orderPages:   make(map[string]sync.OrderPage),
		failures:     make(map[string]error),
	}
}

func (c *fakeShopClient) CountProducts(ctx context.Context) (int, error) { return c.productCount, nil }
func (c *fakeShopClient) CountOrders(ctx context.Context) (int, error)   { return c.orderCount, nil }

func (c *fakeShopClient) FetchProductPage(ctx context.Context, pageSize int, cursor string) (*sync.ProductPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[cursor]; err != nil {
		return nil, err
	}
	page := c.productPages[cursor]
	return &page, nil
}

func (c *fakeShopClient) FetchOrderPage(ctx context.Context, pageSize int, cursor string) (*sync.OrderPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[cursor]; err != nil {
		return nil, err
	}
	page := c.orderPages[cursor]
	return &page, nil
}

var _ sync.ShopClient = (*fakeShopClient)(nil)

type fakeClientFactory struct {
	client sync.ShopClient
}

func (f *fakeClientFactory) ClientFor(integration *sync.Integration) (sync.ShopClient, error) {
	if integration == nil {
		return nil, sync.ErrIntegrationNotFound
	}
	if err := integration.Validate(); err != nil {
		return nil, err
	}
	return f.client, nil
}

var _ sync.ShopClientFactory = (*fakeClientFactory)(nil)

// fakeFulfillment records passthrough calls
type fakeFulfillment struct {
	mu    stdsync.Mutex
	calls []fulfillmentCall
	err   error
}

type fulfillmentCall struct {
	action  string
	orderID uuid.UUID
	key     string
}

func (f *fakeFulfillment) ShipOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error {
	return f.record("ship", orderID, idempotencyKey)
}

func (f *fakeFulfillment) CancelOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error {
	return f.record("cancel", orderID, idempotencyKey)
}

func (f *fakeFulfillment) record(action string, orderID uuid.UUID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, fulfillmentCall{action: action, orderID: orderID, key: key})
	return nil
}

var _ sync.FulfillmentService = (*fakeFulfillment)(nil)

// ---------------------------------------------------------------------------
// API Test Server
// ---------------------------------------------------------------------------

type apiEnv struct {
	engine      *gin.Engine
	integration *sync.Integration
	queueRepo   *fakeQueueRepo
	jobRepo     *fakeJobRepo
	orders      *fakeOrderRepo
	links       *fakeLinkRepo
	unmatched   *fakeUnmatchedRepo
	client      *fakeShopClient
	fulfillment *fakeFulfillment
}

func newAPIEnv(t *testing.T, localSKUs ...string) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Now()
	integration := &sync.Integration{
		ID:            uuid.New(),
		Name:          "Acme Store",
		ShopURL:       "acme.myshopify.com",
		AccessToken:   "shpat_test",
		WebhookSecret: "whsec_test",
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	env := &apiEnv{
		integration: integration,
		queueRepo:   newFakeQueueRepo(),
		jobRepo:     newFakeJobRepo(),
		orders:      newFakeOrderRepo(),
		links:       newFakeLinkRepo(),
		unmatched:   newFakeUnmatchedRepo(),
		client:      newFakeShopClient(),
		fulfillment: &fakeFulfillment{},
	}

	integrations := newFakeIntegrations(integration)
	matcher := syncapp.NewMatcher(newFakeLocalProducts(localSKUs...), env.links, env.unmatched)
	worker := syncapp.NewPageWorker(
		integrations, env.queueRepo, env.jobRepo,
		&fakeClientFactory{client: env.client},
		sync.DefaultPageSize,
		syncapp.NewProductPageApplier(matcher),
		syncapp.NewOrderPageApplier(env.orders),
	)
	failures := syncapp.NewFailureHandler(env.queueRepo, env.jobRepo,
		sync.NewBackoffPolicy(time.Millisecond, 2*time.Millisecond))

	dedupe := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = dedupe.Close() })

	service := syncapp.NewService(
		integrations, env.queueRepo, env.jobRepo, env.orders,
		worker, failures, dedupe, time.Hour).
		WithFulfillment(env.fulfillment)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(zap.NewNop()))

	NewHealthHandler("channel-sync", "test", nil).RegisterRoutes(engine)
	router.NewRouter(engine).
		Register(NewSyncHandler(service)).
		Register(NewOrderHandler(service)).
		Register(NewWebhookHandler(service, 1<<20)).
		Setup()

	env.engine = engine
	return env
}

// request performs an HTTP request against the test engine
func (e *apiEnv) request(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

// rawRequest performs a request with a pre-encoded body
func (e *apiEnv) rawRequest(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals a response body into a generic map
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// scriptProducts loads n single-variant products into one first page
func (e *apiEnv) scriptProducts(n int) {
	products := make([]sync.ExternalProduct, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, sync.ExternalProduct{
			ID:     fmt.Sprintf("gid-prod-%d", i),
			Title:  fmt.Sprintf("Product %d", i),
			Status: "active",
			Variants: []sync.ExternalVariant{{
				ID:                fmt.Sprintf("gid-var-%d", i),
				SKU:               fmt.Sprintf("sku-%d", i),
				Price:             decimal.NewFromFloat(9.99),
				InventoryQuantity: i,
			}},
			UpdatedAt: time.Now(),
		})
	}
	e.client.productCount = n
	e.client.productPages[""] = sync.ProductPage{Records: products}
}

// enqueue creates a pending queue item through the API and returns its ID
func (e *apiEnv) enqueue(t *testing.T, syncType string) string {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/v1/sync/queue", map[string]any{
		"integrationId": e.integration.ID.String(),
		"syncType":      syncType,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	return data["id"].(string)
}
