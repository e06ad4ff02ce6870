package main

import (
	"context"
	"errors"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/LariSevilha/comment-analysis/internal/alert"
	"github.com/LariSevilha/comment-analysis/internal/breaker"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/config"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
	"github.com/LariSevilha/comment-analysis/internal/service"
	"github.com/LariSevilha/comment-analysis/internal/source"
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
		ServiceName: "comment-analysis-worker",
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

	var alerts alert.Notifier = alert.NewLogNotifier(log)
	if cfg.Alerts.WebhookURL != "" {
		alerts = alert.NewFanout(log,
			alert.NewLogNotifier(log),
			alert.NewWebhookNotifier(cfg.Alerts.WebhookURL, log),
		)
	}

	contentBreaker, err := breaker.New(breaker.Config{
		Name:             "content-api",
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		CallTimeout:      cfg.Breaker.CallTimeout,
	}, c, breaker.DefaultCountable, alerts, log)
	if err != nil {
		log.WithError(err).Fatal("Invalid content breaker config")
	}
	translatorBreaker, err := breaker.New(breaker.Config{
		Name:             "translator",
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		CallTimeout:      cfg.Breaker.CallTimeout,
	}, c, breaker.DefaultCountable, alerts, log)
	if err != nil {
		log.WithError(err).Fatal("Invalid translator breaker config")
	}

	content := source.NewContentClient(&source.ContentClientConfig{
		BaseURL: cfg.ContentAPI.BaseURL,
		Timeout: cfg.ContentAPI.Timeout,
	})
	translator := source.NewTranslatorClient(&source.TranslatorClientConfig{
		BaseURL: cfg.Translator.BaseURL,
		APIKey:  cfg.Translator.APIKey,
		Timeout: cfg.Translator.Timeout,
	})

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	keywordRepo := repository.NewKeywordRepository(db)
	jobRepo := repository.NewJobRepository(db)

	classifier := service.NewClassificationService(keywordRepo, c, cfg.Pipeline.ApprovalThreshold, log)
	metrics := service.NewMetricsService(repository.NewMetricsRepository(db), c, invalidator, log)
	translation := service.NewTranslationService(translator, translatorBreaker, c,
		cfg.Translator.SourceLang, cfg.Translator.TargetLang, log)

	importer := service.NewImportService(content, userRepo, postRepo, commentRepo, jobRepo, q,
		contentBreaker, invalidator, &service.ImportConfig{
			FetchConcurrency: cfg.Pipeline.FetchConcurrency,
			RetryMaxAttempts: cfg.Pipeline.RetryMaxAttempts,
			RetryBaseBackoff: cfg.Pipeline.RetryBaseBackoff,
			ImportShare:      cfg.Pipeline.ImportShare,
		}, log)
	pipeline := service.NewPipelineService(commentRepo, jobRepo, translation, classifier,
		metrics, cfg.Pipeline.ImportShare, log)

	worker := queue.NewWorker(q, cfg.Pipeline.Workers, log)
	worker.Register(queue.KindImportUser, func(ctx context.Context, task *queue.Task) error {
		var payload queue.ImportUserPayload
		if err := task.DecodePayload(&payload); err != nil {
			return err
		}
		_, err := importer.ImportUser(ctx, payload.JobID, payload.Username)
		return err
	})
	worker.Register(queue.KindTranslateComment, func(ctx context.Context, task *queue.Task) error {
		var payload queue.TranslateCommentPayload
		if err := task.DecodePayload(&payload); err != nil {
			return err
		}
		return pipeline.ProcessComment(ctx, payload)
	})
	worker.Register(queue.KindReclassifyComments, func(ctx context.Context, task *queue.Task) error {
		var payload queue.ReclassifyCommentsPayload
		if err := task.DecodePayload(&payload); err != nil {
			return err
		}
		return pipeline.ReclassifyAll(ctx, payload.Reason)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warming := service.NewWarmingService(classifier, metrics, userRepo, log)
	if cfg.Cache.WarmingSpec != "" {
		if _, err := warming.Start(ctx, cfg.Cache.WarmingSpec); err != nil {
			log.WithError(err).Fatal("Failed to schedule cache warming")
		}
		defer warming.Stop()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down worker...")
		cancel()
	}()

	log.WithField("workers", cfg.Pipeline.Workers).Info("Starting worker pool")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Worker pool failed")
	}

	log.Info("Worker exited")
}
