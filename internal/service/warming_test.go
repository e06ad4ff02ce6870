package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
)

func newWarming(e *env) *WarmingService {
	return NewWarmingService(e.classifier, e.metrics, e.users, logger.Default())
}

func TestWarmRejectsUnknownKind(t *testing.T) {
	e := newEnv(t)
	warming := newWarming(e)

	err := warming.Warm(context.Background(), WarmingKind("translations"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown warming kind")
}

func TestWarmAllPrefillsCaches(t *testing.T) {
	e := newEnv(t)
	e.seedKeywords(t, "alpha", "beta")
	ctx := context.Background()

	user, err := e.users.Upsert(ctx, &domain.User{ExternalID: 1, Username: "alice", Name: "Alice", Email: "a@example.com"})
	require.NoError(t, err)

	warming := newWarming(e)
	warming.WarmAll(ctx)

	var words []string
	found, err := e.cache.Get(ctx, cache.TypeKeywords, "active", &words)
	require.NoError(t, err)
	assert.True(t, found)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, words)

	var userMetrics domain.UserMetrics
	found, err = e.cache.Get(ctx, cache.TypeUserMetrics, cache.UserMetricsKey(user.ID), &userMetrics)
	require.NoError(t, err)
	assert.True(t, found)

	var group domain.GroupMetrics
	found, err = e.cache.Get(ctx, cache.TypeGroupMetrics, cache.GroupMetricsKey, &group)
	require.NoError(t, err)
	assert.True(t, found)
}
