package shopify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/shopspring/decimal"
)

// Wire types for the Shopify Admin REST API. Prices arrive as decimal strings
// and IDs as int64; both are normalized at the conversion boundary so the
// domain never sees platform encodings.

type countResponse struct {
	Count int `json:"count"`
}

type variantPayload struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

type productPayload struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
	Variants  []variantPayload `json:"variants"`
}

type productsResponse struct {
	Products []productPayload `json:"products"`
}

type lineItemPayload struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type orderPayload struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Currency        string            `json:"currency"`
	TotalPrice      string            `json:"total_price"`
	FinancialStatus string            `json:"financial_status"`
	CreatedAt       time.Time         `json:"created_at"`
	LineItems       []lineItemPayload `json:"line_items"`
}

type ordersResponse struct {
	Orders []orderPayload `json:"orders"`
}

// parsePrice converts a Shopify price string to decimal; malformed or empty
// values degrade to zero rather than failing the whole page
func parsePrice(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (p *productPayload) toDomain() sync.ExternalProduct {
	product := sync.ExternalProduct{
		ID:        strconv.FormatInt(p.ID, 10),
		Title:     p.Title,
		Status:    p.Status,
		UpdatedAt: p.UpdatedAt,
		Variants:  make([]sync.ExternalVariant, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, sync.ExternalVariant{
			ID:                strconv.FormatInt(v.ID, 10),
			SKU:               v.SKU,
			Price:             parsePrice(v.Price),
			InventoryQuantity: v.InventoryQuantity,
		})
	}
	return product
}

// ParseWebhookOrder decodes an orders/create webhook body. Webhook payloads
// carry the order object bare, without the {"orders": [...]} list wrapper.
func ParseWebhookOrder(body []byte) (sync.ExternalOrder, error) {
	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return sync.ExternalOrder{}, fmt.Errorf("shopify: failed to parse webhook order: %w", err)
	}
	if payload.ID == 0 {
		return sync.ExternalOrder{}, fmt.Errorf("shopify: webhook order has no id")
	}
	return payload.toDomain(), nil
}

func (o *orderPayload) toDomain() sync.ExternalOrder {
	order := sync.ExternalOrder{
		ID:              strconv.FormatInt(o.ID, 10),
		Number:          o.Name,
		Currency:        o.Currency,
		TotalPrice:      parsePrice(o.TotalPrice),
		FinancialStatus: o.FinancialStatus,
		CreatedAt:       o.CreatedAt,
		Lines:           make([]sync.ExternalOrderLine, 0, len(o.LineItems)),
	}
	for _, li := range o.LineItems {
		order.Lines = append(order.Lines, sync.ExternalOrderLine{
			ExternalProductID: strconv.FormatInt(li.ProductID, 10),
			SKU:               li.SKU,
			Quantity:          li.Quantity,
			Price:             parsePrice(li.Price),
		})
	}
	return order
}
