package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/service"
)

// AnalysisHandler exposes job creation, progress polling, and the
// synchronous classification preview.
type AnalysisHandler struct {
	analysis *service.AnalysisService
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

type startAnalysisRequest struct {
	Username string `json:"username" binding:"required"`
}

// Start handles POST /api/v1/analyses. Returns 202: the work is async
// and the job id is the handle to poll.
func (h *AnalysisHandler) Start(c *gin.Context) {
	var req startAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must not be empty"})
		return
	}

	jobID, err := h.analysis.StartAnalysis(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start analysis: " + err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// Progress handles GET /api/v1/analyses/:id/progress.
func (h *AnalysisHandler) Progress(c *gin.Context) {
	report, err := h.analysis.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

type classifyPreviewRequest struct {
	Text string `json:"text" binding:"required"`
}

// ClassifyPreview handles POST /api/v1/classify/preview.
func (h *AnalysisHandler) ClassifyPreview(c *gin.Context) {
	var req classifyPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result := h.analysis.ClassifyPreview(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, gin.H{
		"keyword_count": result.KeywordCount,
		"would_approve": result.Approved,
	})
}
