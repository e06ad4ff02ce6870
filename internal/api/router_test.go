package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/config"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
	"github.com/LariSevilha/comment-analysis/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Keyword{},
		&domain.AnalysisJob{},
	))

	log := logger.Default()
	c := cache.New("test", cache.NewMemoryStore(), cache.NewStats(), log)
	invalidator := cache.NewInvalidator(c, log)
	q := queue.NewMemoryQueue(16)

	keywordRepo := repository.NewKeywordRepository(db)
	classifier := service.NewClassificationService(keywordRepo, c, 2, log)
	metrics := service.NewMetricsService(repository.NewMetricsRepository(db), c, invalidator, log)
	analysis := service.NewAnalysisService(repository.NewJobRepository(db), q, classifier, log)
	keywords := service.NewKeywordService(keywordRepo, invalidator, q, log)

	router := SetupRouter(Services{
		Analysis: analysis,
		Keywords: keywords,
		Metrics:  metrics,
		Cache:    c,
	}, &config.ServerConfig{Mode: "test"}, log)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStartAnalysisEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyses", gin.H{"username": "alice"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["job_id"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/analyses/"+resp["job_id"]+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestStartAnalysisRejectsMissingUsername(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyses", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressUnknownJobReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/analyses/no-such-job/progress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassifyPreviewEndpoint(t *testing.T) {
	router, db := newTestRouter(t)
	for _, word := range []string{"ótimo", "excelente", "incrível"} {
		require.NoError(t, db.Create(&domain.Keyword{Word: word, Active: true}).Error)
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/classify/preview", gin.H{
		"text": "Este produto é ótimo e excelente",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		KeywordCount int  `json:"keyword_count"`
		WouldApprove bool `json:"would_approve"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.KeywordCount)
	assert.True(t, resp.WouldApprove)
}

func TestKeywordCRUDEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/keywords", gin.H{"word": "Fantástico"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Keyword
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "fantástico", created.Word)
	assert.True(t, created.Active)

	w = doJSON(t, router, http.MethodGet, "/api/v1/keywords", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fantástico")

	path := fmt.Sprintf("/api/v1/keywords/%d", created.ID)
	w = doJSON(t, router, http.MethodPut, path, gin.H{"word": "fantástico", "active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":false`)

	w = doJSON(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKeywordCreateRejectsBlankWord(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/keywords", gin.H{"word": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	router, db := newTestRouter(t)
	require.NoError(t, db.Create(&domain.User{ExternalID: 1, Username: "alice", Name: "Alice", Email: "a@example.com"}).Error)

	w := doJSON(t, router, http.MethodGet, "/api/v1/metrics/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = doJSON(t, router, http.MethodGet, "/api/v1/metrics/users/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/metrics/group", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_users":1`)
}

func TestCacheStatsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hit_ratio"`)
}
