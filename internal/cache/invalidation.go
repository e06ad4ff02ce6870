package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/LariSevilha/comment-analysis/internal/logger"
)

// Trigger names a business event that drives cache invalidation.
type Trigger string

const (
	TriggerKeywordChange        Trigger = "keyword_change"
	TriggerUserDataChange       Trigger = "user_data_change"
	TriggerCommentChange        Trigger = "comment_change"
	TriggerMetricsRecalculation Trigger = "metrics_recalculation"
)

// UserMetricsKey is the cache key for one user's metrics entry.
func UserMetricsKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// GroupMetricsKey is the cache key for the group-wide metrics entry.
const GroupMetricsKey = "group"

// Invalidator applies trigger-driven invalidation over the typed cache.
// Translation entries are never touched by any trigger: translation is
// memoized permanently and evicted only by explicit key deletion.
type Invalidator struct {
	cache *Cache
	log   *logger.Logger
}

// NewInvalidator creates an invalidator bound to the cache.
func NewInvalidator(c *Cache, log *logger.Logger) *Invalidator {
	if log == nil {
		log = logger.Default()
	}
	return &Invalidator{cache: c, log: log}
}

// Fire applies the trigger's invalidation effects. userID scopes
// user_data_change and comment_change to one user; nil clears all users.
// Unknown triggers are rejected, never silently ignored.
func (i *Invalidator) Fire(ctx context.Context, tr Trigger, userID *uint) error {
	i.log.WithFields(logger.Fields{
		"trigger": string(tr),
		"scoped":  userID != nil,
	}).Debug("Firing cache invalidation")

	switch tr {
	case TriggerKeywordChange:
		return i.clearAll(ctx, TypeKeywords, TypeUserMetrics, TypeGroupMetrics, TypeClassification)

	case TriggerUserDataChange:
		if err := i.clearUserMetrics(ctx, userID); err != nil {
			return err
		}
		return i.cache.ClearType(ctx, TypeGroupMetrics)

	case TriggerCommentChange:
		if err := i.clearUserMetrics(ctx, userID); err != nil {
			return err
		}
		return i.clearAll(ctx, TypeGroupMetrics, TypeClassification)

	case TriggerMetricsRecalculation:
		return i.clearAll(ctx, TypeUserMetrics, TypeGroupMetrics)

	default:
		return fmt.Errorf("unknown invalidation trigger %q", tr)
	}
}

func (i *Invalidator) clearUserMetrics(ctx context.Context, userID *uint) error {
	if userID == nil {
		return i.cache.ClearType(ctx, TypeUserMetrics)
	}
	return i.cache.Delete(ctx, TypeUserMetrics, UserMetricsKey(*userID))
}

// clearAll clears every listed type, collecting errors so one failed
// namespace does not stop the others from being invalidated.
func (i *Invalidator) clearAll(ctx context.Context, types ...Type) error {
	var errs []error
	for _, t := range types {
		if err := i.cache.ClearType(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}
