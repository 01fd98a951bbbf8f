package sync

import (
	"context"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
)

// Matcher pairs fetched platform products with the local catalog by SKU.
// Matching runs per variant: the variant carries the SKU, the product carries
// the external identity.
type Matcher struct {
	localProducts sync.LocalProductReader
	links         sync.ProductLinkRepository
	unmatched     sync.UnmatchedProductRepository
}

// NewMatcher creates a matcher over the given repositories
func NewMatcher(
	localProducts sync.LocalProductReader,
	links sync.ProductLinkRepository,
	unmatched sync.UnmatchedProductRepository,
) *Matcher {
	return &Matcher{
		localProducts: localProducts,
		links:         links,
		unmatched:     unmatched,
	}
}

// MatchPage matches one fetched page against the local catalog. All SKUs of
// the page are resolved in a single batch lookup; variants without a SKU or
// without a local counterpart land in the unmatched pool.
func (m *Matcher) MatchPage(ctx context.Context, integrationID uuid.UUID, products []sync.ExternalProduct) (*sync.MatchResult, error) {
	keys := collectSKUs(products)

	locals, err := m.localProducts.FindByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := &sync.MatchResult{}
	for i := range products {
		product := &products[i]
		for _, variant := range product.Variants {
			externalID := variant.ID
			if externalID == "" {
				externalID = product.ID
			}

			local, found := locals[variant.SKU]
			if variant.SKU == "" || !found {
				result.Unmatched = append(result.Unmatched, sync.NewUnmatchedProduct(
					integrationID, externalID, variant.SKU, product.Title, variant.Price,
				))
				continue
			}

			result.Links = append(result.Links, sync.NewProductLink(
				integrationID, local.ID, product.ID, variant.ID, variant.SKU,
			))
			result.MatchedExternalIDs = append(result.MatchedExternalIDs, externalID)
		}
	}
	return result, nil
}

// Persist applies a match result: links and unmatched records are upserted,
// and newly matched external IDs are removed from the unmatched pool. All
// writes are idempotent, so re-applying the same page converges to the same
// state.
func (m *Matcher) Persist(ctx context.Context, integrationID uuid.UUID, result *sync.MatchResult) error {
	if err := m.links.Upsert(ctx, result.Links); err != nil {
		return err
	}
	if err := m.unmatched.Upsert(ctx, result.Unmatched); err != nil {
		return err
	}
	return m.unmatched.DeleteByExternalIDs(ctx, integrationID, result.MatchedExternalIDs)
}

// collectSKUs gathers the distinct non-empty SKUs of a page
func collectSKUs(products []sync.ExternalProduct) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for i := range products {
		for _, variant := range products[i].Variants {
			if variant.SKU == "" {
				continue
			}
			if _, ok := seen[variant.SKU]; ok {
				continue
			}
			seen[variant.SKU] = struct{}{}
			keys = append(keys, variant.SKU)
		}
	}
	return keys
}
