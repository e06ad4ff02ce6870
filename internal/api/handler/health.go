package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LariSevilha/comment-analysis/internal/cache"
)

// HealthHandler reports service liveness and cache reachability.
type HealthHandler struct {
	cache *cache.Cache
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(c *cache.Cache) *HealthHandler {
	return &HealthHandler{cache: c}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	cacheStatus := "ok"
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		cacheStatus = "unavailable"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"cache":  cacheStatus,
	})
}
