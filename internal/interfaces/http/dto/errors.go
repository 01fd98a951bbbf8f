package dto

import (
	"errors"
	"net/http"

	"github.com/erp/channel-sync/internal/domain/sync"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeConflict     = "ERR_CONFLICT"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code, defaulting to
// 500 for unknown codes
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// MapDomainError maps a sync domain error to an API error code
func MapDomainError(err error) string {
	switch {
	case errors.Is(err, sync.ErrQueueItemNotFound),
		errors.Is(err, sync.ErrJobNotFound),
		errors.Is(err, sync.ErrIntegrationNotFound):
		return ErrCodeNotFound
	case errors.Is(err, sync.ErrInvalidSyncType),
		errors.Is(err, sync.ErrInvalidIntegrationID):
		return ErrCodeBadRequest
	case errors.Is(err, sync.ErrIntegrationInactive),
		errors.Is(err, sync.ErrInvalidStatusTransition),
		errors.Is(err, sync.ErrJobCancelled),
		errors.Is(err, sync.ErrRetriesExhausted),
		errors.Is(err, sync.ErrFulfillmentNotConfigured):
		return ErrCodeInvalidState
	case errors.Is(err, sync.ErrSyncAlreadyRunning):
		return ErrCodeConflict
	case errors.Is(err, sync.ErrPlatformRateLimited):
		return ErrCodeRateLimited
	}
	return ErrCodeInternal
}
