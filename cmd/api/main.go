package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LariSevilha/comment-analysis/internal/api"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/config"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
	"github.com/LariSevilha/comment-analysis/internal/service"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		LogFile:     cfg.Log.File,
		ServiceName: "comment-analysis-api",
	})
	logger.SetDefault(log)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	var (
		store cache.Store
		q     queue.Queue
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = cache.NewRedisStore(client)
		q = queue.NewRedisQueue(client, log)
		log.WithField("addr", cfg.Redis.Addr).Info("Using Redis cache and queue")
	} else {
		store = cache.NewMemoryStore()
		q = queue.NewMemoryQueue(0)
		log.Warn("Redis disabled, using in-process cache and queue")
	}

	c := cache.New(cfg.Cache.Environment, store, cache.NewStats(), log,
		cache.WithPolicy(cache.TypeKeywords, cache.Policy{TTL: cfg.Cache.KeywordTTL, MaxBytes: 256 * 1024}),
		cache.WithPolicy(cache.TypeUserMetrics, cache.Policy{TTL: cfg.Cache.MetricsTTL, MaxBytes: 64 * 1024}),
		cache.WithPolicy(cache.TypeGroupMetrics, cache.Policy{TTL: cfg.Cache.MetricsTTL, MaxBytes: 64 * 1024}),
		cache.WithPolicy(cache.TypeBreaker, cache.Policy{TTL: cfg.Cache.BreakerTTL, MaxBytes: 4 * 1024}),
	)
	invalidator := cache.NewInvalidator(c, log)

	keywordRepo := repository.NewKeywordRepository(db)
	classifier := service.NewClassificationService(keywordRepo, c, cfg.Pipeline.ApprovalThreshold, log)
	metrics := service.NewMetricsService(repository.NewMetricsRepository(db), c, invalidator, log)
	analysis := service.NewAnalysisService(repository.NewJobRepository(db), q, classifier, log)
	keywords := service.NewKeywordService(keywordRepo, invalidator, q, log)

	router := api.SetupRouter(api.Services{
		Analysis: analysis,
		Keywords: keywords,
		Metrics:  metrics,
		Cache:    c,
	}, &cfg.Server, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
