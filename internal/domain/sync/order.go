package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// OrderRecord Entity
// ---------------------------------------------------------------------------

// OrderRecord is a platform order persisted locally. Uniqueness is enforced
// on (integration_id, external_id), so re-applying the same order during a
// retried page or a re-delivered webhook is idempotent.
type OrderRecord struct {
	// ID is the unique identifier of this record
	ID uuid.UUID
	// IntegrationID identifies the platform account
	IntegrationID uuid.UUID
	// ExternalID is the order ID on the platform
	ExternalID string
	// Number is the human-readable order number
	Number string
	// Currency is the ISO currency code
	Currency string
	// TotalPrice is the order total
	TotalPrice decimal.Decimal
	// FinancialStatus is the platform payment state
	FinancialStatus string
	// PlacedAt is when the order was placed on the platform
	PlacedAt time.Time
	// CreatedAt is when this record was first persisted
	CreatedAt time.Time
	// UpdatedAt is when this record was last updated
	UpdatedAt time.Time
}

// NewOrderRecord creates an order record from a fetched platform order
func NewOrderRecord(integrationID uuid.UUID, order ExternalOrder) *OrderRecord {
	now := time.Now()
	return &OrderRecord{
		ID:              uuid.New(),
		IntegrationID:   integrationID,
		ExternalID:      order.ID,
		Number:          order.Number,
		Currency:        order.Currency,
		TotalPrice:      order.TotalPrice,
		FinancialStatus: order.FinancialStatus,
		PlacedAt:        order.CreatedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ---------------------------------------------------------------------------
// OrderRecordRepository Interface
// ---------------------------------------------------------------------------

// OrderRecordRepository persists synced platform orders
type OrderRecordRepository interface {
	// Upsert bulk-writes order records; conflicts on
	// (integration_id, external_id) update the existing row
	Upsert(ctx context.Context, records []*OrderRecord) error

	// ExistsByExternalID reports whether an order with this platform ID
	// is already persisted. Used for webhook duplicate detection.
	ExistsByExternalID(ctx context.Context, integrationID uuid.UUID, externalID string) (bool, error)

	// FindByIntegration lists order records for an integration, newest first
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*OrderRecord, error)
}

// ---------------------------------------------------------------------------
// Fulfillment Port
// ---------------------------------------------------------------------------

// FulfillmentService is the outbound RPC port for shipment and cancellation.
// Both calls carry a caller-generated idempotency key; the remote side
// guarantees a repeated key has the same effect as a single call.
type FulfillmentService interface {
	// ShipOrder requests shipment of a local order
	ShipOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error

	// CancelOrder requests cancellation of a local order
	CancelOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error
}
