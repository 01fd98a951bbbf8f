package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
)

// maxErrorBody bounds how much of an error response is read for the message
const maxErrorBody = 4 * 1024

// idempotencyKeyHeader carries the caller-generated key; the fulfillment
// service treats a repeated key as a no-op replay of the first call
const idempotencyKeyHeader = "Idempotency-Key"

// Client implements sync.FulfillmentService over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a fulfillment client. baseURL must point at the service
// root, e.g. "https://fulfillment.internal".
func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("fulfillment: base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}, nil
}

type orderActionRequest struct {
	OrderID string `json:"orderId"`
}

// ShipOrder requests shipment of a local order
func (c *Client) ShipOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error {
	return c.post(ctx, "/api/v1/orders/ship", orderID, idempotencyKey)
}

// CancelOrder requests cancellation of a local order
func (c *Client) CancelOrder(ctx context.Context, orderID uuid.UUID, idempotencyKey string) error {
	return c.post(ctx, "/api/v1/orders/cancel", orderID, idempotencyKey)
}

func (c *Client) post(ctx context.Context, path string, orderID uuid.UUID, idempotencyKey string) error {
	if idempotencyKey == "" {
		return fmt.Errorf("fulfillment: idempotency key is required")
	}

	payload, err := json.Marshal(orderActionRequest{OrderID: orderID.String()})
	if err != nil {
		return fmt.Errorf("fulfillment: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fulfillment: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &sync.PlatformError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return nil
}

// Ensure Client implements the port
var _ sync.FulfillmentService = (*Client)(nil)
