package sync

import (
	"context"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
)

// PageRequest carries everything an applier needs to fetch and persist one
// page
type PageRequest struct {
	// IntegrationID identifies the platform account
	IntegrationID uuid.UUID
	// Client is the platform client bound to this integration
	Client sync.ShopClient
	// PageSize is the fetch size
	PageSize int
	// Cursor is the continuation token; empty starts at the beginning
	Cursor string
	// Since bounds order syncs; zero means unbounded
	Since time.Time
}

// PageOutcome reports what one applied page did
type PageOutcome struct {
	// Processed is the number of records fetched in this page
	Processed int
	// NextCursor continues the sync; empty means the resource is exhausted
	NextCursor string
	// Matched and Unmatched report product matching counts, zero for orders
	Matched   int
	Unmatched int
}

// PageApplier fetches and persists one page for a specific sync type. The
// worker owns the page loop, checkpoints, and job bookkeeping; appliers own
// what a page means.
type PageApplier interface {
	// SyncType returns the sync type this applier handles
	SyncType() sync.SyncType

	// CountTotal returns a best-effort total for progress estimates
	CountTotal(ctx context.Context, client sync.ShopClient) (int, error)

	// ApplyPage fetches one page and persists it idempotently
	ApplyPage(ctx context.Context, req PageRequest) (*PageOutcome, error)
}

// ---------------------------------------------------------------------------
// Product Pages
// ---------------------------------------------------------------------------

// ProductPageApplier syncs the product catalog: each page is fetched, matched
// against the local catalog by SKU, and the match result upserted
type ProductPageApplier struct {
	matcher *Matcher
}

// NewProductPageApplier creates the product sync applier
func NewProductPageApplier(matcher *Matcher) *ProductPageApplier {
	return &ProductPageApplier{matcher: matcher}
}

// SyncType returns the sync type this applier handles
func (a *ProductPageApplier) SyncType() sync.SyncType { return sync.SyncTypeProduct }

// CountTotal returns the shop's product count
func (a *ProductPageApplier) CountTotal(ctx context.Context, client sync.ShopClient) (int, error) {
	return client.CountProducts(ctx)
}

// ApplyPage fetches one product page, matches it, and persists the result
func (a *ProductPageApplier) ApplyPage(ctx context.Context, req PageRequest) (*PageOutcome, error) {
	page, err := req.Client.FetchProductPage(ctx, req.PageSize, req.Cursor)
	if err != nil {
		return nil, err
	}

	result, err := a.matcher.MatchPage(ctx, req.IntegrationID, page.Records)
	if err != nil {
		return nil, err
	}
	if err := a.matcher.Persist(ctx, req.IntegrationID, result); err != nil {
		return nil, err
	}

	return &PageOutcome{
		Processed:  len(page.Records),
		NextCursor: page.NextCursor,
		Matched:    result.MatchedCount(),
		Unmatched:  result.UnmatchedCount(),
	}, nil
}

// ---------------------------------------------------------------------------
// Order Pages
// ---------------------------------------------------------------------------

// OrderPageApplier syncs orders: each page is fetched and upserted keyed on
// the platform order ID
type OrderPageApplier struct {
	orders sync.OrderRecordRepository
}

// NewOrderPageApplier creates the order sync applier
func NewOrderPageApplier(orders sync.OrderRecordRepository) *OrderPageApplier {
	return &OrderPageApplier{orders: orders}
}

// SyncType returns the sync type this applier handles
func (a *OrderPageApplier) SyncType() sync.SyncType { return sync.SyncTypeOrder }

// CountTotal returns the shop's order count
func (a *OrderPageApplier) CountTotal(ctx context.Context, client sync.ShopClient) (int, error) {
	return client.CountOrders(ctx)
}

// ApplyPage fetches one order page and upserts its records
func (a *OrderPageApplier) ApplyPage(ctx context.Context, req PageRequest) (*PageOutcome, error) {
	page, err := req.Client.FetchOrderPage(ctx, req.PageSize, req.Cursor)
	if err != nil {
		return nil, err
	}

	records := make([]*sync.OrderRecord, 0, len(page.Records))
	for _, order := range page.Records {
		if !req.Since.IsZero() && order.CreatedAt.Before(req.Since) {
			continue
		}
		records = append(records, sync.NewOrderRecord(req.IntegrationID, order))
	}

	if err := a.orders.Upsert(ctx, records); err != nil {
		return nil, err
	}

	return &PageOutcome{
		Processed:  len(page.Records),
		NextCursor: page.NextCursor,
	}, nil
}

// Ensure appliers implement the interface
var (
	_ PageApplier = (*ProductPageApplier)(nil)
	_ PageApplier = (*OrderPageApplier)(nil)
)
