package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LariSevilha/comment-analysis/internal/api/handler"
	"github.com/LariSevilha/comment-analysis/internal/api/middleware"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/config"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/service"
)

// Services bundles the collaborators the router needs.
type Services struct {
	Analysis *service.AnalysisService
	Keywords *service.KeywordService
	Metrics  *service.MetricsService
	Cache    *cache.Cache
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(services Services, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(services.Cache)
	analysisHandler := handler.NewAnalysisHandler(services.Analysis)
	keywordHandler := handler.NewKeywordHandler(services.Keywords)
	metricsHandler := handler.NewMetricsHandler(services.Metrics, services.Cache)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Analyses
		v1.POST("/analyses", analysisHandler.Start)
		v1.GET("/analyses/:id/progress", analysisHandler.Progress)

		// Classification preview
		v1.POST("/classify/preview", analysisHandler.ClassifyPreview)

		// Keyword dictionary
		v1.GET("/keywords", keywordHandler.List)
		v1.POST("/keywords", keywordHandler.Create)
		v1.PUT("/keywords/:id", keywordHandler.Update)
		v1.DELETE("/keywords/:id", keywordHandler.Delete)

		// Metrics
		v1.GET("/metrics/users/:id", metricsHandler.UserMetrics)
		v1.GET("/metrics/group", metricsHandler.GroupMetrics)

		// Cache stats
		v1.GET("/cache/stats", metricsHandler.CacheStats)
	}

	return r
}
