package sync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Platform Port
// ---------------------------------------------------------------------------

// DefaultPageSize balances API efficiency against execution-time limits
const DefaultPageSize = 250

// ExternalVariant is a variant of a platform product
type ExternalVariant struct {
	// ID is the variant ID on the platform
	ID string
	// SKU is the natural key used for matching; may be empty
	SKU string
	// Price is the variant price
	Price decimal.Decimal
	// InventoryQuantity is the stock level reported by the platform
	InventoryQuantity int
}

// ExternalProduct is one product record fetched from the platform
type ExternalProduct struct {
	// ID is the product ID on the platform
	ID string
	// Title is the product title
	Title string
	// Status is the platform product status, e.g. "active"
	Status string
	// Variants are the product's variants; matching runs per variant SKU
	Variants []ExternalVariant
	// UpdatedAt is the platform-side last-modified time
	UpdatedAt time.Time
}

// ExternalOrderLine is one line item of a platform order
type ExternalOrderLine struct {
	// ExternalProductID is the product ID on the platform
	ExternalProductID string
	// SKU is the line item SKU
	SKU string
	// Quantity is the ordered quantity
	Quantity int
	// Price is the unit price
	Price decimal.Decimal
}

// ExternalOrder is one order record fetched from the platform
type ExternalOrder struct {
	// ID is the order ID on the platform
	ID string
	// Number is the human-readable order number
	Number string
	// Currency is the ISO currency code
	Currency string
	// TotalPrice is the order total
	TotalPrice decimal.Decimal
	// FinancialStatus is the platform payment state, e.g. "paid"
	FinancialStatus string
	// Lines are the order line items
	Lines []ExternalOrderLine
	// CreatedAt is when the order was placed on the platform
	CreatedAt time.Time
}

// ProductPage is one page of products plus the continuation cursor.
// An empty NextCursor signals end-of-resource.
type ProductPage struct {
	Records    []ExternalProduct
	NextCursor string
}

// OrderPage is one page of orders plus the continuation cursor
type OrderPage struct {
	Records    []ExternalOrder
	NextCursor string
}

// ShopClient is the port to the external e-commerce platform. Implementations
// own rate limiting and transport-level retries; errors that escape are
// already final for this attempt and go to the classifier.
type ShopClient interface {
	// CountProducts returns the total product count, for progress estimates
	CountProducts(ctx context.Context) (int, error)

	// CountOrders returns the total order count, for progress estimates
	CountOrders(ctx context.Context) (int, error)

	// FetchProductPage fetches one page of products. An empty cursor
	// denotes the start of the resource; passing a previously returned
	// cursor resumes from that point.
	FetchProductPage(ctx context.Context, pageSize int, cursor string) (*ProductPage, error)

	// FetchOrderPage fetches one page of orders
	FetchOrderPage(ctx context.Context, pageSize int, cursor string) (*OrderPage, error)
}

// ShopClientFactory builds a client bound to one integration's credentials
type ShopClientFactory interface {
	// ClientFor returns a ShopClient for the given integration
	ClientFor(integration *Integration) (ShopClient, error)
}
