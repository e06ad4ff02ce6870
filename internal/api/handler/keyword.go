package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/service"
)

// KeywordHandler exposes the classification dictionary CRUD.
type KeywordHandler struct {
	keywords *service.KeywordService
}

// NewKeywordHandler creates a keyword handler.
func NewKeywordHandler(keywords *service.KeywordService) *KeywordHandler {
	return &KeywordHandler{keywords: keywords}
}

type keywordRequest struct {
	Word   string `json:"word" binding:"required"`
	Active *bool  `json:"active"`
}

func (r *keywordRequest) active() bool {
	if r.Active == nil {
		return true
	}
	return *r.Active
}

// List handles GET /api/v1/keywords.
func (h *KeywordHandler) List(c *gin.Context) {
	keywords, err := h.keywords.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list keywords: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

// Create handles POST /api/v1/keywords.
func (h *KeywordHandler) Create(c *gin.Context) {
	var req keywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	keyword, err := h.keywords.Create(c.Request.Context(), req.Word, req.active())
	if err != nil {
		if errors.Is(err, service.ErrEmptyKeyword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create keyword: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, keyword)
}

// Update handles PUT /api/v1/keywords/:id.
func (h *KeywordHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req keywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	keyword, err := h.keywords.Update(c.Request.Context(), id, req.Word, req.active())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyKeyword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Keyword not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update keyword: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, keyword)
}

// Delete handles DELETE /api/v1/keywords/:id.
func (h *KeywordHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.keywords.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Keyword not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete keyword: " + err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}
