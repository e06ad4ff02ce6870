package service

import (
	"context"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/repository"
)

// MetricsService computes and caches derived comment statistics.
// Metrics are never authoritative: reads fall through to the database
// and write the result back, recalculation invalidates first.
type MetricsService struct {
	metrics     *repository.MetricsRepository
	cache       *cache.Cache
	invalidator *cache.Invalidator
	log         *logger.Logger
}

// NewMetricsService creates the metrics service.
func NewMetricsService(metrics *repository.MetricsRepository, c *cache.Cache, invalidator *cache.Invalidator, log *logger.Logger) *MetricsService {
	if log == nil {
		log = logger.Default()
	}
	return &MetricsService{
		metrics:     metrics,
		cache:       c,
		invalidator: invalidator,
		log:         log,
	}
}

// Recalculate drops the cached entries for the user and the group, then
// recomputes both and writes them through. Called after every terminal
// comment transition.
func (s *MetricsService) Recalculate(ctx context.Context, userID uint) error {
	if err := s.invalidator.Fire(ctx, cache.TriggerMetricsRecalculation, &userID); err != nil {
		return err
	}
	if _, err := s.UserMetrics(ctx, userID); err != nil {
		return err
	}
	if _, err := s.GroupMetrics(ctx); err != nil {
		return err
	}
	return nil
}

// UserMetrics returns one user's metrics, cached.
func (s *MetricsService) UserMetrics(ctx context.Context, userID uint) (*domain.UserMetrics, error) {
	key := cache.UserMetricsKey(userID)

	var cached domain.UserMetrics
	found, err := s.cache.Get(ctx, cache.TypeUserMetrics, key, &cached)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("User metrics cache read failed")
	}
	if found {
		return &cached, nil
	}

	metrics, err := s.metrics.UserMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.TypeUserMetrics, key, metrics); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("User metrics cache write failed")
	}
	return metrics, nil
}

// GroupMetrics returns the aggregate metrics across all users, cached.
func (s *MetricsService) GroupMetrics(ctx context.Context) (*domain.GroupMetrics, error) {
	var cached domain.GroupMetrics
	found, err := s.cache.Get(ctx, cache.TypeGroupMetrics, cache.GroupMetricsKey, &cached)
	if err != nil {
		s.log.WithError(err).Warn("Group metrics cache read failed")
	}
	if found {
		return &cached, nil
	}

	metrics, err := s.metrics.GroupMetrics(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.TypeGroupMetrics, cache.GroupMetricsKey, metrics); err != nil {
		s.log.WithError(err).Warn("Group metrics cache write failed")
	}
	return metrics, nil
}
