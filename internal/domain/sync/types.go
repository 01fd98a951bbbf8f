package sync

// ---------------------------------------------------------------------------
// SyncType
// ---------------------------------------------------------------------------

// SyncType identifies what kind of data a queue item synchronizes
type SyncType string

const (
	SyncTypeProduct SyncType = "product_sync"
	SyncTypeOrder   SyncType = "order_sync"
)

// IsValid checks if the sync type is recognized
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeProduct, SyncTypeOrder:
		return true
	}
	return false
}

// String returns the string representation
func (t SyncType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// QueueStatus
// ---------------------------------------------------------------------------

// QueueStatus represents the lifecycle state of a queue item
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// IsValid checks if the status is recognized
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed:
		return true
	}
	return false
}

// IsFinal returns true for terminal statuses
func (s QueueStatus) IsFinal() bool {
	return s == QueueStatusCompleted || s == QueueStatusFailed
}

// String returns the string representation
func (s QueueStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// JobStatus
// ---------------------------------------------------------------------------

// JobStatus represents the lifecycle state of a sync job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid checks if the status is recognized
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsFinal returns true for terminal statuses
func (s JobStatus) IsFinal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// String returns the string representation
func (s JobStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ErrorType
// ---------------------------------------------------------------------------

// ErrorType classifies a sync failure for retry decisions
type ErrorType string

const (
	// ErrorTypePermanent errors are never retried
	ErrorTypePermanent ErrorType = "permanent"
	// ErrorTypeRetryable errors are retried with exponential backoff
	ErrorTypeRetryable ErrorType = "retryable"
	// ErrorTypeRateLimit errors are retried after a server-supplied delay
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeUnknown errors follow the retryable path but are flagged
	// distinctly so operators can investigate misclassification
	ErrorTypeUnknown ErrorType = "unknown"
)

// IsRetryable returns true if the error type permits another attempt
func (t ErrorType) IsRetryable() bool {
	return t == ErrorTypeRetryable || t == ErrorTypeRateLimit || t == ErrorTypeUnknown
}

// String returns the string representation
func (t ErrorType) String() string {
	return string(t)
}
