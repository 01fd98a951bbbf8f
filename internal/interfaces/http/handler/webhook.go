package handler

import (
	"io"
	"net/http"

	syncapp "github.com/erp/channel-sync/internal/application/sync"
	"github.com/erp/channel-sync/internal/infrastructure/logger"
	"github.com/erp/channel-sync/internal/infrastructure/shopify"
	"github.com/erp/channel-sync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Shopify webhook headers
const (
	shopDomainHeader = "X-Shopify-Shop-Domain"
	signatureHeader  = "X-Shopify-Hmac-Sha256"
	deliveryIDHeader = "X-Shopify-Webhook-Id"
	topicHeader      = "X-Shopify-Topic"
)

// defaultMaxWebhookBody caps webhook payload reads when no limit is configured
const defaultMaxWebhookBody = 1 << 20 // 1MB

// WebhookHandler receives order webhooks pushed by the platform. Signature
// failures get a 401 so the platform retries after credentials are fixed;
// everything after a verified signature answers 200, because a non-2xx would
// only trigger redelivery of a payload that will fail the same way again.
type WebhookHandler struct {
	BaseHandler
	service     *syncapp.Service
	maxBodySize int64
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(service *syncapp.Service, maxBodySize int64) *WebhookHandler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxWebhookBody
	}
	return &WebhookHandler{service: service, maxBodySize: maxBodySize}
}

// RegisterRoutes registers webhook routes on the API group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/webhooks")
	group.POST("/shopify/orders", h.HandleOrderWebhook)
}

// HandleOrderWebhook processes an orders/create (or orders/updated) delivery
func (h *WebhookHandler) HandleOrderWebhook(c *gin.Context) {
	log := logger.L(c.Request.Context())

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodySize))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	shopDomain := c.GetHeader(shopDomainHeader)
	if shopDomain == "" {
		h.Unauthorized(c, "Missing shop domain header")
		return
	}

	integration, err := h.service.ResolveIntegrationByShop(c.Request.Context(), shopDomain)
	if err != nil {
		log.Warn("webhook from unknown shop", zap.String("shop_domain", shopDomain))
		h.Unauthorized(c, "Unknown shop")
		return
	}

	if !shopify.VerifyWebhookSignature(integration.WebhookSecret, body, c.GetHeader(signatureHeader)) {
		log.Warn("webhook signature verification failed",
			zap.String("shop_domain", shopDomain),
			zap.String("topic", c.GetHeader(topicHeader)))
		h.Unauthorized(c, "Invalid webhook signature")
		return
	}

	order, err := shopify.ParseWebhookOrder(body)
	if err != nil {
		// Authenticated but malformed; redelivery cannot fix it
		log.Error("webhook payload rejected",
			zap.String("shop_domain", shopDomain),
			zap.Error(err))
		c.JSON(http.StatusOK, dto.WebhookOrderResponse{
			Received: true,
			Message:  "payload could not be parsed",
		})
		return
	}

	created, err := h.service.RecordWebhookOrder(
		c.Request.Context(), integration.ID, order, c.GetHeader(deliveryIDHeader))
	if err != nil {
		log.Error("webhook order persistence failed",
			zap.String("external_id", order.ID),
			zap.Error(err))
		c.JSON(http.StatusOK, dto.WebhookOrderResponse{
			Received: true,
			Message:  "order could not be persisted",
		})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookOrderResponse{
		Received:  true,
		Duplicate: !created,
	})
}
