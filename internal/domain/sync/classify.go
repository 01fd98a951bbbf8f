package sync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// PlatformError
// ---------------------------------------------------------------------------

// PlatformError carries the HTTP-level detail of a failed platform call so
// the classifier can map it without parsing message text.
type PlatformError struct {
	// StatusCode is the HTTP status, 0 for transport-level failures
	StatusCode int
	// Message is the platform error body or transport error text
	Message string
	// RetryAfter is the server-supplied wait, if any
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform request failed: %s", e.Message)
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// DefaultRateLimitWait is used when a rate-limited response carried no
// Retry-After hint
const DefaultRateLimitWait = 2 * time.Second

// Classification is the outcome of classifying a failure
type Classification struct {
	// Type is the error taxonomy bucket
	Type ErrorType
	// RetryAfter is the suggested wait before the next attempt;
	// zero means "use the backoff policy"
	RetryAfter time.Duration
}

// Classify maps a failure to the retry taxonomy. It is total: every non-nil
// error lands in exactly one bucket, with unknown as the conservative
// default.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Type: ErrorTypeUnknown}
	}

	var pe *PlatformError
	if errors.As(err, &pe) {
		if c, ok := classifyStatus(pe); ok {
			return c
		}
	}

	switch {
	case errors.Is(err, ErrPlatformAuth), errors.Is(err, ErrIntegrationNotFound), errors.Is(err, ErrIntegrationInactive):
		return Classification{Type: ErrorTypePermanent}
	case errors.Is(err, ErrCheckpointInvalid), errors.Is(err, ErrCheckpointTypeMismatch), errors.Is(err, ErrInvalidSyncType):
		// corrupt resumption state cannot heal by retrying
		return Classification{Type: ErrorTypePermanent}
	case errors.Is(err, ErrPlatformRateLimited):
		return Classification{Type: ErrorTypeRateLimit, RetryAfter: DefaultRateLimitWait}
	case errors.Is(err, ErrPlatformUnavailable), errors.Is(err, context.DeadlineExceeded):
		return Classification{Type: ErrorTypeRetryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Classification{Type: ErrorTypeRetryable}
	}

	return classifyMessage(err.Error())
}

// classifyStatus maps an HTTP status to a bucket; false means the status
// alone is not decisive and message heuristics should run.
func classifyStatus(pe *PlatformError) (Classification, bool) {
	switch {
	case pe.StatusCode == 401 || pe.StatusCode == 403:
		return Classification{Type: ErrorTypePermanent}, true
	case pe.StatusCode == 429:
		wait := pe.RetryAfter
		if wait <= 0 {
			wait = DefaultRateLimitWait
		}
		return Classification{Type: ErrorTypeRateLimit, RetryAfter: wait}, true
	case pe.StatusCode == 408 || pe.StatusCode >= 500:
		return Classification{Type: ErrorTypeRetryable}, true
	}
	return Classification{}, false
}

// classifyMessage applies text heuristics for errors with no usable status
func classifyMessage(msg string) Classification {
	lower := strings.ToLower(msg)

	permanent := []string{
		"invalid credential", "invalid api key", "invalid access token",
		"unauthorized", "forbidden", "shop not found", "not found",
	}
	for _, s := range permanent {
		if strings.Contains(lower, s) {
			return Classification{Type: ErrorTypePermanent}
		}
	}

	rateLimit := []string{"rate limit", "too many requests", "throttl"}
	for _, s := range rateLimit {
		if strings.Contains(lower, s) {
			return Classification{Type: ErrorTypeRateLimit, RetryAfter: DefaultRateLimitWait}
		}
	}

	retryable := []string{
		"timeout", "timed out", "deadline exceeded",
		"connection reset", "econnreset", "connection refused",
		"no such host", "broken pipe", "unexpected eof",
		"temporar", "unavailable",
	}
	for _, s := range retryable {
		if strings.Contains(lower, s) {
			return Classification{Type: ErrorTypeRetryable}
		}
	}

	return Classification{Type: ErrorTypeUnknown}
}
