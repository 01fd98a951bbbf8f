package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// LocalProduct Value Object
// ---------------------------------------------------------------------------

// LocalProduct is the slice of the local catalog the matcher needs: identity
// plus the natural key used to pair local and external records.
type LocalProduct struct {
	// ID is the local product identifier
	ID uuid.UUID
	// SKU is the natural key
	SKU string
	// Name is the product name, for reference
	Name string
}

// LocalProductReader looks up local products by natural key
type LocalProductReader interface {
	// FindByKeys batch-fetches local products for the given SKUs in a
	// single round trip. Missing keys are simply absent from the result.
	FindByKeys(ctx context.Context, keys []string) (map[string]LocalProduct, error)
}

// ---------------------------------------------------------------------------
// ProductLink Entity
// ---------------------------------------------------------------------------

// ProductLink records a matched pairing between a local product and an
// external platform product. Uniqueness is enforced on
// (local_product_id, integration_id), making re-upserts idempotent.
type ProductLink struct {
	// ID is the unique identifier of this link
	ID uuid.UUID
	// IntegrationID identifies the platform account
	IntegrationID uuid.UUID
	// LocalProductID is the matched local product
	LocalProductID uuid.UUID
	// ExternalProductID is the product ID on the platform
	ExternalProductID string
	// ExternalVariantID is the variant ID on the platform that carried the SKU
	ExternalVariantID string
	// SKU is the natural key the match was made on
	SKU string
	// LastSeenAt is when the external record was last observed during a sync
	LastSeenAt time.Time
	// CreatedAt is when this link was first created
	CreatedAt time.Time
	// UpdatedAt is when this link was last updated
	UpdatedAt time.Time
}

// NewProductLink creates a matched link
func NewProductLink(integrationID, localProductID uuid.UUID, externalProductID, externalVariantID, sku string) *ProductLink {
	now := time.Now()
	return &ProductLink{
		ID:                uuid.New(),
		IntegrationID:     integrationID,
		LocalProductID:    localProductID,
		ExternalProductID: externalProductID,
		ExternalVariantID: externalVariantID,
		SKU:               sku,
		LastSeenAt:        now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ---------------------------------------------------------------------------
// UnmatchedProduct Entity
// ---------------------------------------------------------------------------

// UnmatchedProduct is an external record with no local counterpart, held for
// manual reconciliation. Uniqueness is enforced on
// (integration_id, external_id).
type UnmatchedProduct struct {
	// ID is the unique identifier of this record
	ID uuid.UUID
	// IntegrationID identifies the platform account
	IntegrationID uuid.UUID
	// ExternalID is the product or variant ID on the platform
	ExternalID string
	// SKU is the natural key the match was attempted on; may be empty
	SKU string
	// Title is the external product title, for reconciliation display
	Title string
	// Price is the external price at the time of observation
	Price decimal.Decimal
	// FirstSeenAt is when this record first failed to match
	FirstSeenAt time.Time
	// LastSeenAt is when this record last failed to match
	LastSeenAt time.Time
}

// NewUnmatchedProduct creates an unmatched record
func NewUnmatchedProduct(integrationID uuid.UUID, externalID, sku, title string, price decimal.Decimal) *UnmatchedProduct {
	now := time.Now()
	return &UnmatchedProduct{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		ExternalID:    externalID,
		SKU:           sku,
		Title:         title,
		Price:         price,
		FirstSeenAt:   now,
		LastSeenAt:    now,
	}
}

// ---------------------------------------------------------------------------
// MatchResult
// ---------------------------------------------------------------------------

// MatchResult is the per-page outcome of matching a fetched page against the
// local catalog
type MatchResult struct {
	// Links are the matched pairings to upsert
	Links []*ProductLink
	// Unmatched are the records to upsert into the reconciliation pool
	Unmatched []*UnmatchedProduct
	// MatchedExternalIDs are external IDs matched in this page; any prior
	// unmatched entries for them are removed from the pool
	MatchedExternalIDs []string
}

// MatchedCount returns the number of matched links
func (r *MatchResult) MatchedCount() int { return len(r.Links) }

// UnmatchedCount returns the number of unmatched records
func (r *MatchResult) UnmatchedCount() int { return len(r.Unmatched) }

// ---------------------------------------------------------------------------
// Matching Repositories
// ---------------------------------------------------------------------------

// ProductLinkRepository persists matched links
type ProductLinkRepository interface {
	// Upsert bulk-writes links; conflicts on
	// (local_product_id, integration_id) update the existing row
	Upsert(ctx context.Context, links []*ProductLink) error

	// FindByIntegration lists links for an integration
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*ProductLink, error)

	// CountByIntegration counts links for an integration
	CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error)
}

// UnmatchedProductRepository persists the manual-reconciliation pool
type UnmatchedProductRepository interface {
	// Upsert bulk-writes unmatched records; conflicts on
	// (integration_id, external_id) update the existing row
	Upsert(ctx context.Context, records []*UnmatchedProduct) error

	// DeleteByExternalIDs removes records newly matched in this page
	DeleteByExternalIDs(ctx context.Context, integrationID uuid.UUID, externalIDs []string) error

	// FindByIntegration lists unmatched records for an integration
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*UnmatchedProduct, error)

	// CountByIntegration counts unmatched records for an integration
	CountByIntegration(ctx context.Context, integrationID uuid.UUID) (int64, error)
}
