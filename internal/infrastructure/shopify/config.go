package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"
)

// Config holds the Shopify Admin API client configuration shared by all
// integrations. Per-shop credentials live on the Integration and are bound at
// client construction time.
type Config struct {
	// APIVersion selects the Admin API version path, e.g. "2024-10"
	APIVersion string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxAttempts is the per-call ceiling for rate-limit and transport retries
	MaxAttempts int
	// ThrottleThreshold is the call-limit usage fraction above which the
	// client sleeps before the next request
	ThrottleThreshold float64
	// ThrottleWait is the proactive sleep duration
	ThrottleWait time.Duration
	// RetryAfterMargin is added on top of server-supplied Retry-After waits
	RetryAfterMargin time.Duration
	// TransportRetryDelay is the fixed wait after transport-level failures
	TransportRetryDelay time.Duration
}

// Errors for Shopify client configuration
var (
	ErrConfigMissingAPIVersion = errors.New("shopify: api version is required")
	ErrConfigInvalidThrottle   = errors.New("shopify: throttle threshold must be in (0, 1]")
)

// NewConfig creates a Shopify client configuration with defaults
func NewConfig(apiVersion string) *Config {
	c := &Config{APIVersion: apiVersion}
	c.applyDefaults()
	return c
}

// Validate validates the configuration and fills unset fields with defaults
func (c *Config) Validate() error {
	if c.APIVersion == "" {
		return ErrConfigMissingAPIVersion
	}
	c.applyDefaults()
	if c.ThrottleThreshold <= 0 || c.ThrottleThreshold > 1 {
		return ErrConfigInvalidThrottle
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.ThrottleThreshold == 0 {
		c.ThrottleThreshold = 0.8
	}
	if c.ThrottleWait <= 0 {
		c.ThrottleWait = time.Second
	}
	if c.RetryAfterMargin <= 0 {
		c.RetryAfterMargin = 500 * time.Millisecond
	}
	if c.TransportRetryDelay <= 0 {
		c.TransportRetryDelay = 2 * time.Second
	}
}

// VerifyWebhookSignature checks the X-Shopify-Hmac-Sha256 header against the
// raw request body. Shopify signs the body with HMAC-SHA256 over the shared
// webhook secret and base64-encodes the digest.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
