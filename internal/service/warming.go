package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/repository"
)

// WarmingKind names a cache namespace the warmer can prefill. The set is
// closed: unknown kinds are rejected so a typo in configuration fails
// loudly instead of silently warming nothing.
type WarmingKind string

const (
	WarmKeywords     WarmingKind = "keywords"
	WarmUserMetrics  WarmingKind = "user_metrics"
	WarmGroupMetrics WarmingKind = "group_metrics"
)

// WarmingService prefills cache entries on a cron schedule so the first
// request after an invalidation does not pay the recompute cost.
type WarmingService struct {
	classifier *ClassificationService
	metrics    *MetricsService
	users      *repository.UserRepository
	log        *logger.Logger

	warmers map[WarmingKind]func(ctx context.Context) error
	cron    *cron.Cron
}

// NewWarmingService creates the warming service with all warmers wired.
func NewWarmingService(classifier *ClassificationService, metrics *MetricsService, users *repository.UserRepository, log *logger.Logger) *WarmingService {
	if log == nil {
		log = logger.Default()
	}
	s := &WarmingService{
		classifier: classifier,
		metrics:    metrics,
		users:      users,
		log:        log,
	}
	s.warmers = map[WarmingKind]func(ctx context.Context) error{
		WarmKeywords:     s.warmKeywords,
		WarmUserMetrics:  s.warmUserMetrics,
		WarmGroupMetrics: s.warmGroupMetrics,
	}
	return s
}

// Warm runs one warmer. Unknown kinds are an error.
func (s *WarmingService) Warm(ctx context.Context, kind WarmingKind) error {
	warmer, ok := s.warmers[kind]
	if !ok {
		return fmt.Errorf("unknown warming kind %q", kind)
	}
	started := time.Now()
	if err := warmer(ctx); err != nil {
		return fmt.Errorf("warm %s: %w", kind, err)
	}
	s.log.WithFields(logger.Fields{
		"kind":                 string(kind),
		logger.FieldDurationMs: time.Since(started).Milliseconds(),
	}).Debug("Cache warmed")
	return nil
}

// WarmAll runs every warmer, continuing past individual failures.
func (s *WarmingService) WarmAll(ctx context.Context) {
	for _, kind := range []WarmingKind{WarmKeywords, WarmUserMetrics, WarmGroupMetrics} {
		if err := s.Warm(ctx, kind); err != nil {
			s.log.WithError(err).WithField("kind", string(kind)).Warn("Cache warming failed")
		}
	}
}

// Start schedules WarmAll on the cron spec and runs an immediate pass.
// Returns the scheduler so the caller owns its shutdown.
func (s *WarmingService) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		s.WarmAll(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule cache warming: %w", err)
	}
	c.Start()
	s.cron = c

	go s.WarmAll(ctx)
	return c, nil
}

// Stop halts the scheduler if one is running.
func (s *WarmingService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *WarmingService) warmKeywords(ctx context.Context) error {
	s.classifier.ActiveKeywords(ctx)
	return nil
}

func (s *WarmingService) warmUserMetrics(ctx context.Context) error {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.metrics.UserMetrics(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *WarmingService) warmGroupMetrics(ctx context.Context) error {
	_, err := s.metrics.GroupMetrics(ctx)
	return err
}
