package handler

import (
	"strconv"

	syncapp "github.com/erp/channel-sync/internal/application/sync"
	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/erp/channel-sync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles sync queue and job endpoints
type SyncHandler struct {
	BaseHandler
	service *syncapp.Service
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service *syncapp.Service) *SyncHandler {
	return &SyncHandler{service: service}
}

// RegisterRoutes registers sync routes on the API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/sync")
	group.POST("/queue", h.EnqueueSync)
	group.GET("/queue", h.ListQueue)
	group.GET("/queue/stats", h.QueueStats)
	group.POST("/run", h.RunSync)
	group.POST("/process", h.ProcessNext)
	group.GET("/jobs", h.ListJobs)
	group.GET("/jobs/:id", h.GetJob)
	group.POST("/jobs/:id/cancel", h.CancelJob)
}

// EnqueueSync queues a new sync for an integration
func (h *SyncHandler) EnqueueSync(c *gin.Context) {
	var req dto.EnqueueSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	integrationID, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	item, err := h.service.Enqueue(c.Request.Context(), integrationID, sync.SyncType(req.SyncType), req.Priority)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dto.NewQueueItemResponse(item))
}

// RunSync dispatches exactly one page of sync work. External schedulers call
// this repeatedly until hasMore is false.
func (h *SyncHandler) RunSync(c *gin.Context) {
	var req dto.RunSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	integrationID, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	var outcome *syncapp.ProcessOutcome
	if req.QueueID != "" {
		queueID, err := uuid.Parse(req.QueueID)
		if err != nil {
			h.BadRequest(c, "Invalid queue ID")
			return
		}
		outcome, err = h.service.ProcessQueueItem(c.Request.Context(), queueID)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
	} else {
		outcome, err = h.service.ProcessNextFor(c.Request.Context(), integrationID)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
	}

	c.JSON(200, runResponse(outcome))
}

// ProcessNext dispatches one page for the integration's most urgent pending
// item. Same contract as RunSync without item targeting.
func (h *SyncHandler) ProcessNext(c *gin.Context) {
	var req dto.RunSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	integrationID, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	outcome, err := h.service.ProcessNextFor(c.Request.Context(), integrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	c.JSON(200, runResponse(outcome))
}

// runResponse flattens a dispatch outcome into the scheduler-facing shape
func runResponse(outcome *syncapp.ProcessOutcome) dto.RunSyncResponse {
	if outcome.Skipped {
		return dto.RunSyncResponse{
			Success: true,
			Skipped: true,
			Message: "no work dispatched",
		}
	}
	if outcome.Failure != nil {
		return dto.RunSyncResponse{
			Success:   false,
			Error:     outcome.FailureMessage,
			ErrorType: outcome.Failure.Type.String(),
		}
	}

	r := outcome.Result
	return dto.RunSyncResponse{
		Success:      true,
		JobID:        r.JobID.String(),
		Processed:    r.Processed,
		HasMore:      r.HasMore,
		NextPageInfo: r.NextCursor,
		Cancelled:    r.Cancelled,
	}
}

// GetJob returns a sync job by ID
func (h *SyncHandler) GetJob(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewSyncJobResponse(job))
}

// ListJobs lists an integration's jobs, newest first
func (h *SyncHandler) ListJobs(c *gin.Context) {
	integrationID, err := uuid.Parse(c.Query("integrationId"))
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), integrationID, queryLimit(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewSyncJobListResponse(jobs))
}

// CancelJob requests cooperative cancellation of a running job
func (h *SyncHandler) CancelJob(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.service.CancelJob(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewSyncJobResponse(job))
}

// ListQueue lists queue items in a given status
func (h *SyncHandler) ListQueue(c *gin.Context) {
	status := sync.QueueStatus(c.DefaultQuery("status", string(sync.QueueStatusPending)))
	if !status.IsValid() {
		h.BadRequest(c, "Invalid queue status")
		return
	}

	items, err := h.service.ListQueueItems(c.Request.Context(), status, queryLimit(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewQueueItemListResponse(items))
}

// QueueStats reports the item count per status
func (h *SyncHandler) QueueStats(c *gin.Context) {
	counts, err := h.service.QueueStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewQueueStatsResponse(counts))
}

// queryLimit parses the optional limit query parameter
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
