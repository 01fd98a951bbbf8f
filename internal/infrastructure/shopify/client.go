package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// callLimitHeader reports bucket usage as "used/total", e.g. "32/40"
const callLimitHeader = "X-Shopify-Shop-Api-Call-Limit"

// Client implements sync.ShopClient against the Shopify Admin REST API for a
// single shop. Rate limiting is handled here: 429 responses are retried after
// the server-supplied wait, transport failures after a fixed delay, and when
// the call-limit bucket runs close to full the client sleeps proactively so
// the next request does not get throttled.
type Client struct {
	config     *Config
	origin     string
	token      string
	httpClient *http.Client
}

// NewClient creates a client bound to one shop's credentials
func NewClient(config *Config, shopURL, accessToken string) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newClientWithHTTP(config, shopURL, accessToken, &http.Client{
		Timeout: config.Timeout,
	}), nil
}

func newClientWithHTTP(config *Config, shopURL, accessToken string, httpClient *http.Client) *Client {
	return &Client{
		config:     config,
		origin:     shopOrigin(shopURL),
		token:      accessToken,
		httpClient: httpClient,
	}
}

// shopOrigin normalizes a stored shop domain to a request origin
func shopOrigin(shopURL string) string {
	if strings.HasPrefix(shopURL, "http://") || strings.HasPrefix(shopURL, "https://") {
		return strings.TrimSuffix(shopURL, "/")
	}
	return "https://" + strings.TrimSuffix(shopURL, "/")
}

// ---------------------------------------------------------------------------
// Counts
// ---------------------------------------------------------------------------

// CountProducts returns the shop's total product count
func (c *Client) CountProducts(ctx context.Context) (int, error) {
	return c.count(ctx, "products/count.json", nil)
}

// CountOrders returns the shop's total order count across all statuses
func (c *Client) CountOrders(ctx context.Context) (int, error) {
	return c.count(ctx, "orders/count.json", url.Values{"status": {"any"}})
}

func (c *Client) count(ctx context.Context, path string, query url.Values) (int, error) {
	body, _, err := c.get(ctx, path, query)
	if err != nil {
		return 0, err
	}

	var resp countResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("shopify: failed to parse count response: %w", err)
	}
	return resp.Count, nil
}

// ---------------------------------------------------------------------------
// Paginated Fetches
// ---------------------------------------------------------------------------

// FetchProductPage fetches one page of products. An empty cursor starts at the
// beginning; the returned cursor resumes after this page, empty at the end.
func (c *Client) FetchProductPage(ctx context.Context, pageSize int, cursor string) (*sync.ProductPage, error) {
	body, header, err := c.get(ctx, "products.json", pageQuery(pageSize, cursor, nil))
	if err != nil {
		return nil, err
	}

	var resp productsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("shopify: failed to parse products response: %w", err)
	}

	page := &sync.ProductPage{
		Records:    make([]sync.ExternalProduct, 0, len(resp.Products)),
		NextCursor: nextPageCursor(header.Get("Link")),
	}
	for i := range resp.Products {
		page.Records = append(page.Records, resp.Products[i].toDomain())
	}
	return page, nil
}

// FetchOrderPage fetches one page of orders across all statuses
func (c *Client) FetchOrderPage(ctx context.Context, pageSize int, cursor string) (*sync.OrderPage, error) {
	// Filters are only valid on the first request; with page_info set the
	// API rejects everything except limit
	filters := url.Values{"status": {"any"}}
	body, header, err := c.get(ctx, "orders.json", pageQuery(pageSize, cursor, filters))
	if err != nil {
		return nil, err
	}

	var resp ordersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("shopify: failed to parse orders response: %w", err)
	}

	page := &sync.OrderPage{
		Records:    make([]sync.ExternalOrder, 0, len(resp.Orders)),
		NextCursor: nextPageCursor(header.Get("Link")),
	}
	for i := range resp.Orders {
		page.Records = append(page.Records, resp.Orders[i].toDomain())
	}
	return page, nil
}

func pageQuery(pageSize int, cursor string, firstPageFilters url.Values) url.Values {
	if pageSize <= 0 {
		pageSize = sync.DefaultPageSize
	}

	query := url.Values{"limit": {strconv.Itoa(pageSize)}}
	if cursor != "" {
		query.Set("page_info", cursor)
		return query
	}
	for key, values := range firstPageFilters {
		query[key] = values
	}
	return query
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// get performs a GET with rate-limit and transport retries. Errors that
// escape are final for this attempt; the caller's classifier decides whether
// the whole queue item retries.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		body, header, err := c.do(ctx, path, query)
		if err == nil {
			return body, header, nil
		}
		lastErr = err

		wait, retryable := c.retryWait(err)
		if !retryable || attempt == c.config.MaxAttempts {
			return nil, nil, err
		}
		if err := sleepContext(ctx, wait); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, lastErr
}

// retryWait decides whether the client retries this error in place and for
// how long to wait first
func (c *Client) retryWait(err error) (time.Duration, bool) {
	var pe *sync.PlatformError
	if errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests {
		wait := pe.RetryAfter
		if wait <= 0 {
			wait = sync.DefaultRateLimitWait
		}
		return wait + c.config.RetryAfterMargin, true
	}
	if errors.Is(err, sync.ErrPlatformUnavailable) {
		return c.config.TransportRetryDelay, true
	}
	return 0, false
}

// do performs a single HTTP request
func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	requestURL := fmt.Sprintf("%s/admin/api/%s/%s", c.origin, c.config.APIVersion, path)
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, nil, &sync.PlatformError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, nil, &sync.PlatformError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	// Stay under the bucket limit instead of bouncing off it
	if used, total, ok := parseCallLimit(resp.Header.Get(callLimitHeader)); ok {
		if float64(used) >= c.config.ThrottleThreshold*float64(total) {
			if err := sleepContext(ctx, c.config.ThrottleWait); err != nil {
				return nil, nil, err
			}
		}
	}

	return body, resp.Header, nil
}

// parseCallLimit parses the "used/total" bucket header
func parseCallLimit(value string) (used, total int, ok bool) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	used, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || total <= 0 {
		return 0, 0, false
	}
	return used, total, true
}

// parseRetryAfter parses a Retry-After value in (possibly fractional) seconds
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// nextPageCursor extracts the rel="next" page_info token from a Link header.
// Empty means the resource is exhausted.
func nextPageCursor(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			continue
		}
		parsed, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return parsed.Query().Get("page_info")
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

// ClientFactory builds clients bound to an integration's credentials. All
// clients share one HTTP transport.
type ClientFactory struct {
	config     *Config
	httpClient *http.Client
}

// NewClientFactory creates a factory with the given client configuration
func NewClientFactory(config *Config) (*ClientFactory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ClientFactory{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// ClientFor returns a ShopClient for the given integration
func (f *ClientFactory) ClientFor(integration *sync.Integration) (sync.ShopClient, error) {
	if integration == nil {
		return nil, sync.ErrIntegrationNotFound
	}
	if !integration.Active {
		return nil, sync.ErrIntegrationInactive
	}
	if err := integration.Validate(); err != nil {
		return nil, err
	}
	return newClientWithHTTP(f.config, integration.ShopURL, integration.AccessToken, f.httpClient), nil
}

// Ensure interfaces are implemented
var (
	_ sync.ShopClient        = (*Client)(nil)
	_ sync.ShopClientFactory = (*ClientFactory)(nil)
)
