package handler

import (
	syncapp "github.com/erp/channel-sync/internal/application/sync"
	"github.com/erp/channel-sync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles synced order inspection and fulfillment passthrough
type OrderHandler struct {
	BaseHandler
	service *syncapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *syncapp.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers order routes on the API group
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/orders")
	group.GET("", h.ListOrders)
	group.POST("/:id/ship", h.ShipOrder)
	group.POST("/:id/cancel", h.CancelOrder)
}

// ListOrders lists an integration's synced order records, newest first
func (h *OrderHandler) ListOrders(c *gin.Context) {
	integrationID, err := uuid.Parse(c.Query("integrationId"))
	if err != nil {
		h.BadRequest(c, "Invalid integration ID")
		return
	}

	records, err := h.service.ListOrders(c.Request.Context(), integrationID, queryLimit(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewOrderRecordListResponse(records))
}

// ShipOrder passes a shipment request through to the fulfillment service
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	orderID := uuid.MustParse(req.ID)
	if err := h.service.ShipOrder(c.Request.Context(), orderID); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.OrderActionResponse{OrderID: orderID.String(), Action: "ship"})
}

// CancelOrder passes a cancellation request through to the fulfillment service
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	orderID := uuid.MustParse(req.ID)
	if err := h.service.CancelOrder(c.Request.Context(), orderID); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.OrderActionResponse{OrderID: orderID.String(), Action: "cancel"})
}
