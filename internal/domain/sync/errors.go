package sync

import "errors"

// Domain errors for the sync engine
var (
	// ErrQueueItemNotFound is returned when a queue item doesn't exist
	ErrQueueItemNotFound = errors.New("sync: queue item not found")
	// ErrJobNotFound is returned when a sync job doesn't exist
	ErrJobNotFound = errors.New("sync: job not found")
	// ErrIntegrationNotFound is returned when an integration doesn't exist
	ErrIntegrationNotFound = errors.New("sync: integration not found")
	// ErrIntegrationInactive is returned when an integration is disabled
	ErrIntegrationInactive = errors.New("sync: integration is inactive")

	// ErrInvalidIntegrationID is returned when the integration ID is missing
	ErrInvalidIntegrationID = errors.New("sync: invalid integration ID")
	// ErrInvalidSyncType is returned for an unrecognized sync type
	ErrInvalidSyncType = errors.New("sync: invalid sync type")
	// ErrInvalidStatusTransition is returned for an illegal lifecycle transition
	ErrInvalidStatusTransition = errors.New("sync: invalid status transition")

	// ErrSyncAlreadyRunning signals another item for the same
	// (integration, sync type) is processing. Treated as a benign skip.
	ErrSyncAlreadyRunning = errors.New("sync: another sync is already running for this integration and type")
	// ErrJobCancelled signals the job was cancelled externally
	ErrJobCancelled = errors.New("sync: job has been cancelled")
	// ErrRetriesExhausted is returned when retry_count reached max_retries
	ErrRetriesExhausted = errors.New("sync: retries exhausted")

	// ErrCheckpointInvalid is returned when a checkpoint payload fails validation
	ErrCheckpointInvalid = errors.New("sync: invalid checkpoint payload")
	// ErrCheckpointTypeMismatch is returned when a checkpoint's tag doesn't
	// match the queue item's sync type
	ErrCheckpointTypeMismatch = errors.New("sync: checkpoint sync type mismatch")

	// ErrFulfillmentNotConfigured is returned when a fulfillment call is made
	// but no fulfillment backend is configured
	ErrFulfillmentNotConfigured = errors.New("sync: fulfillment service not configured")

	// ErrPlatformUnavailable indicates a transport-level failure reaching the platform
	ErrPlatformUnavailable = errors.New("sync: platform unavailable")
	// ErrPlatformRateLimited indicates the platform rejected the call for rate limiting
	ErrPlatformRateLimited = errors.New("sync: platform rate limited")
	// ErrPlatformAuth indicates the platform rejected the credentials
	ErrPlatformAuth = errors.New("sync: platform authentication failed")
)
