package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncJob Entity
// ---------------------------------------------------------------------------

// SyncJob is the operator-facing progress record for one logical sync. It is
// created on the first page and updated incrementally; one job spans many
// page-sized queue invocations.
type SyncJob struct {
	// ID is the unique identifier of this job
	ID uuid.UUID
	// IntegrationID identifies the external account being synced
	IntegrationID uuid.UUID
	// JobType identifies the data being synchronized
	JobType SyncType
	// Status is the lifecycle state
	Status JobStatus
	// TotalItems is a best-effort count estimate taken at bootstrap.
	// Never used to gate completion; only cursor exhaustion does that.
	TotalItems int
	// ProcessedItems is the monotonically non-decreasing progress counter
	ProcessedItems int
	// LastCountedCursor is the page key of the last page whose record
	// count was added to ProcessedItems. Guards the increment against
	// re-delivery of an already-counted page.
	LastCountedCursor string
	// ErrorMessage holds the failure message for failed jobs
	ErrorMessage string
	// StartedAt is when the job transitioned to running
	StartedAt *time.Time
	// CompletedAt is when the job reached a terminal state
	CompletedAt *time.Time
	// CreatedAt is when the job row was created
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated
	UpdatedAt time.Time
}

// PageKey identifies one page of a sync for exactly-once progress counting.
// The fetching cursor alone is not unique (the first page's cursor is empty),
// so the page ordinal is prefixed.
func PageKey(pagesDone int, cursor string) string {
	return fmt.Sprintf("%d:%s", pagesDone, cursor)
}

// NewSyncJob creates a pending sync job
func NewSyncJob(integrationID uuid.UUID, jobType SyncType) (*SyncJob, error) {
	if integrationID == uuid.Nil {
		return nil, ErrInvalidIntegrationID
	}
	if !jobType.IsValid() {
		return nil, ErrInvalidSyncType
	}

	now := time.Now()
	return &SyncJob{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		JobType:       jobType,
		Status:        JobStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Start transitions the job to running
func (j *SyncJob) Start(totalItems int) error {
	if j.Status != JobStatusPending {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	j.Status = JobStatusRunning
	j.TotalItems = totalItems
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Complete marks the job as finished successfully
func (j *SyncJob) Complete() error {
	if j.Status != JobStatusRunning {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail terminates the job with an error message
func (j *SyncJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Cancel marks the job as cancelled. Takes effect cooperatively: the worker
// checks the status at the next page boundary.
func (j *SyncJob) Cancel() error {
	if j.Status.IsFinal() {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// IsCancelled returns true if the job was cancelled externally
func (j *SyncJob) IsCancelled() bool {
	return j.Status == JobStatusCancelled
}

// ---------------------------------------------------------------------------
// SyncJobRepository Interface
// ---------------------------------------------------------------------------

// SyncJobReader defines the interface for reading sync jobs
type SyncJobReader interface {
	// FindByID finds a job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindByIntegration lists jobs for an integration, newest first
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]*SyncJob, error)
}

// SyncJobWriter defines the interface for persisting sync jobs
type SyncJobWriter interface {
	// Create persists a new job
	Create(ctx context.Context, job *SyncJob) error

	// Update persists lifecycle changes to an existing job
	Update(ctx context.Context, job *SyncJob) error

	// IncrementProcessed adds delta to processed_items in a single
	// conditional update keyed on pageKey (see PageKey): if
	// last_counted_cursor already equals pageKey the call is a no-op, so
	// a re-delivered page is never double counted. Returns true when
	// applied.
	IncrementProcessed(ctx context.Context, id uuid.UUID, delta int, pageKey string) (bool, error)
}

// SyncJobRepository defines the full interface for sync job persistence
type SyncJobRepository interface {
	SyncJobReader
	SyncJobWriter
}
