package dto

import (
	"time"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// EnqueueSyncRequest asks for a new sync to be queued
type EnqueueSyncRequest struct {
	IntegrationID string `json:"integrationId" binding:"required,uuid"`
	SyncType      string `json:"syncType" binding:"required,oneof=product_sync order_sync"`
	// Priority orders dispatch, lower is more urgent; zero uses the default
	Priority int `json:"priority" binding:"omitempty,min=0"`
}

// RunSyncRequest dispatches one page of sync work. When QueueID is given that
// exact item is dispatched, otherwise the integration's most urgent pending
// item runs.
type RunSyncRequest struct {
	IntegrationID string `json:"integrationId" binding:"required,uuid"`
	QueueID       string `json:"queueId" binding:"omitempty,uuid"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// RunSyncResponse reports the outcome of a single page dispatch. The shape is
// flat rather than enveloped because scheduler integrations consume it
// directly: success false with an errorType still means the dispatch itself
// worked and the failure was recorded.
type RunSyncResponse struct {
	Success      bool   `json:"success"`
	Skipped      bool   `json:"skipped,omitempty"`
	JobID        string `json:"jobId,omitempty"`
	Processed    int    `json:"processed,omitempty"`
	HasMore      bool   `json:"hasMore"`
	NextPageInfo string `json:"nextPageInfo,omitempty"`
	Cancelled    bool   `json:"cancelled,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorType    string `json:"errorType,omitempty"`
}

// QueueItemResponse is the API view of a queue item
type QueueItemResponse struct {
	ID            string     `json:"id"`
	IntegrationID string     `json:"integrationId"`
	SyncType      string     `json:"syncType"`
	Status        string     `json:"status"`
	Priority      int        `json:"priority"`
	RetryCount    int        `json:"retryCount"`
	MaxRetries    int        `json:"maxRetries"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	ErrorType     string     `json:"errorType,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// NewQueueItemResponse maps a queue item to its API view
func NewQueueItemResponse(item *sync.QueueItem) QueueItemResponse {
	return QueueItemResponse{
		ID:            item.ID.String(),
		IntegrationID: item.IntegrationID.String(),
		SyncType:      item.SyncType.String(),
		Status:        item.Status.String(),
		Priority:      item.Priority,
		RetryCount:    item.RetryCount,
		MaxRetries:    item.MaxRetries,
		ErrorMessage:  item.ErrorMessage,
		ErrorType:     item.ErrorType.String(),
		CreatedAt:     item.CreatedAt,
		StartedAt:     item.StartedAt,
		CompletedAt:   item.CompletedAt,
	}
}

// NewQueueItemListResponse maps a list of queue items
func NewQueueItemListResponse(items []*sync.QueueItem) []QueueItemResponse {
	out := make([]QueueItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewQueueItemResponse(item))
	}
	return out
}

// SyncJobResponse is the API view of a sync job
type SyncJobResponse struct {
	ID             string     `json:"id"`
	IntegrationID  string     `json:"integrationId"`
	JobType        string     `json:"jobType"`
	Status         string     `json:"status"`
	TotalItems     int        `json:"totalItems"`
	ProcessedItems int        `json:"processedItems"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// NewSyncJobResponse maps a sync job to its API view
func NewSyncJobResponse(job *sync.SyncJob) SyncJobResponse {
	return SyncJobResponse{
		ID:             job.ID.String(),
		IntegrationID:  job.IntegrationID.String(),
		JobType:        job.JobType.String(),
		Status:         job.Status.String(),
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		ErrorMessage:   job.ErrorMessage,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		CreatedAt:      job.CreatedAt,
	}
}

// NewSyncJobListResponse maps a list of sync jobs
func NewSyncJobListResponse(jobs []*sync.SyncJob) []SyncJobResponse {
	out := make([]SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, NewSyncJobResponse(job))
	}
	return out
}

// QueueStatsResponse reports the item count per queue status
type QueueStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// NewQueueStatsResponse maps the per-status counts
func NewQueueStatsResponse(counts map[sync.QueueStatus]int64) QueueStatsResponse {
	return QueueStatsResponse{
		Pending:    counts[sync.QueueStatusPending],
		Processing: counts[sync.QueueStatusProcessing],
		Completed:  counts[sync.QueueStatusCompleted],
		Failed:     counts[sync.QueueStatusFailed],
	}
}

// OrderRecordResponse is the API view of a synced platform order
type OrderRecordResponse struct {
	ID              string          `json:"id"`
	IntegrationID   string          `json:"integrationId"`
	ExternalID      string          `json:"externalId"`
	Number          string          `json:"number,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	FinancialStatus string          `json:"financialStatus,omitempty"`
	PlacedAt        time.Time       `json:"placedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewOrderRecordResponse maps an order record to its API view
func NewOrderRecordResponse(rec *sync.OrderRecord) OrderRecordResponse {
	return OrderRecordResponse{
		ID:              rec.ID.String(),
		IntegrationID:   rec.IntegrationID.String(),
		ExternalID:      rec.ExternalID,
		Number:          rec.Number,
		Currency:        rec.Currency,
		TotalPrice:      rec.TotalPrice,
		FinancialStatus: rec.FinancialStatus,
		PlacedAt:        rec.PlacedAt,
		CreatedAt:       rec.CreatedAt,
	}
}

// NewOrderRecordListResponse maps a list of order records
func NewOrderRecordListResponse(records []*sync.OrderRecord) []OrderRecordResponse {
	out := make([]OrderRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, NewOrderRecordResponse(rec))
	}
	return out
}

// OrderActionResponse acknowledges a fulfillment passthrough request
type OrderActionResponse struct {
	OrderID string `json:"orderId"`
	Action  string `json:"action"`
}

// WebhookOrderResponse acknowledges a webhook delivery
type WebhookOrderResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}
