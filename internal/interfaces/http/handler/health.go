package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	appName string
	env     string
	db      Pinger
	started time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(appName, env string, db Pinger) *HealthHandler {
	return &HealthHandler{
		appName: appName,
		env:     env,
		db:      db,
		started: time.Now(),
	}
}

// RegisterRoutes registers health routes on the engine root, outside the
// versioned API group so probes survive API version changes
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ping", h.Ping)
}

// Ping is a bare liveness probe
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Health reports readiness including the database connection
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"app":      h.appName,
		"env":      h.env,
		"database": dbStatus,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
