package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/service"
)

// MetricsHandler exposes cached user and group metrics plus the cache
// operation counters.
type MetricsHandler struct {
	metrics *service.MetricsService
	cache   *cache.Cache
}

// NewMetricsHandler creates a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, c *cache.Cache) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, cache: c}
}

// UserMetrics handles GET /api/v1/metrics/users/:id.
func (h *MetricsHandler) UserMetrics(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	metrics, err := h.metrics.UserMetrics(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute metrics: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// GroupMetrics handles GET /api/v1/metrics/group.
func (h *MetricsHandler) GroupMetrics(c *gin.Context) {
	metrics, err := h.metrics.GroupMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute metrics: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *MetricsHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}
