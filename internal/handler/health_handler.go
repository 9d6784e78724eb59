package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RasterizerChecker reports whether the external PDF rasterizer is usable.
type RasterizerChecker interface {
	Ready() error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	rasterizer RasterizerChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(rasterizer RasterizerChecker) *HealthHandler {
	return &HealthHandler{rasterizer: rasterizer}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.rasterizer.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
