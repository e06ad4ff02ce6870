package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedInvalidationFixture(t *testing.T, c *Cache) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, TypeKeywords, "active", []string{"bom"}))
	require.NoError(t, c.Set(ctx, TypeClassification, "comment:1", 2))
	require.NoError(t, c.Set(ctx, TypeUserMetrics, UserMetricsKey(1), "m1"))
	require.NoError(t, c.Set(ctx, TypeUserMetrics, UserMetricsKey(2), "m2"))
	require.NoError(t, c.Set(ctx, TypeGroupMetrics, GroupMetricsKey, "g"))
	require.NoError(t, c.Set(ctx, TypeTranslation, "hash1", "texto"))
}

func present(t *testing.T, c *Cache, typ Type, key string) bool {
	t.Helper()
	var out interface{}
	found, err := c.Get(context.Background(), typ, key, &out)
	require.NoError(t, err)
	return found
}

func TestKeywordChangeClearsDependentsButNotTranslations(t *testing.T) {
	c := newTestCache(t)
	seedInvalidationFixture(t, c)
	inv := NewInvalidator(c, nil)

	require.NoError(t, inv.Fire(context.Background(), TriggerKeywordChange, nil))

	assert.False(t, present(t, c, TypeKeywords, "active"))
	assert.False(t, present(t, c, TypeClassification, "comment:1"))
	assert.False(t, present(t, c, TypeUserMetrics, UserMetricsKey(1)))
	assert.False(t, present(t, c, TypeGroupMetrics, GroupMetricsKey))
	assert.True(t, present(t, c, TypeTranslation, "hash1"), "translations survive keyword_change")
}

func TestUserDataChangeScopedToOneUser(t *testing.T) {
	c := newTestCache(t)
	seedInvalidationFixture(t, c)
	inv := NewInvalidator(c, nil)

	userID := uint(1)
	require.NoError(t, inv.Fire(context.Background(), TriggerUserDataChange, &userID))

	assert.False(t, present(t, c, TypeUserMetrics, UserMetricsKey(1)))
	assert.True(t, present(t, c, TypeUserMetrics, UserMetricsKey(2)))
	assert.False(t, present(t, c, TypeGroupMetrics, GroupMetricsKey))
	assert.True(t, present(t, c, TypeKeywords, "active"))
}

func TestUserDataChangeWithoutIDClearsAllUsers(t *testing.T) {
	c := newTestCache(t)
	seedInvalidationFixture(t, c)
	inv := NewInvalidator(c, nil)

	require.NoError(t, inv.Fire(context.Background(), TriggerUserDataChange, nil))

	assert.False(t, present(t, c, TypeUserMetrics, UserMetricsKey(1)))
	assert.False(t, present(t, c, TypeUserMetrics, UserMetricsKey(2)))
}

func TestCommentChangeClearsClassification(t *testing.T) {
	c := newTestCache(t)
	seedInvalidationFixture(t, c)
	inv := NewInvalidator(c, nil)

	userID := uint(2)
	require.NoError(t, inv.Fire(context.Background(), TriggerCommentChange, &userID))

	assert.False(t, present(t, c, TypeUserMetrics, UserMetricsKey(2)))
	assert.True(t, present(t, c, TypeUserMetrics, UserMetricsKey(1)))
	assert.False(t, present(t, c, TypeClassification, "comment:1"))
	assert.False(t, present(t, c, TypeGroupMetrics, GroupMetricsKey))
	assert.True(t, present(t, c, TypeTranslation, "hash1"))
}

func TestMetricsRecalculationClearsMetricsOnly(t *testing.T) {
	c := newTestCache(t)
	seedInvalidationFixture(t, c)
	inv := NewInvalidator(c, nil)

	require.NoError(t, inv.Fire(context.Background(), TriggerMetricsRecalculation, nil))

	assert.False(t, present(t, c, TypeUserMetrics, UserMetricsKey(1)))
	assert.False(t, present(t, c, TypeGroupMetrics, GroupMetricsKey))
	assert.True(t, present(t, c, TypeKeywords, "active"))
	assert.True(t, present(t, c, TypeClassification, "comment:1"))
	assert.True(t, present(t, c, TypeTranslation, "hash1"))
}

func TestUnknownTriggerRejected(t *testing.T) {
	c := newTestCache(t)
	inv := NewInvalidator(c, nil)

	err := inv.Fire(context.Background(), Trigger("cache_warming"), nil)
	assert.Error(t, err)
}
