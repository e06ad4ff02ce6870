package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
)

func TestCountDistinctKeywords(t *testing.T) {
	keywords := []string{"ótimo", "excelente", "incrível"}

	tests := []struct {
		name string
		text string
		want int
	}{
		{"two matches", "Este produto é ótimo e excelente", 2},
		{"repeats count once", "ótimo ótimo ótimo", 1},
		{"case insensitive", "ÓTIMO e Excelente", 2},
		{"substring does not match", "ótimos produtos excelentes", 0},
		{"punctuation is a boundary", "ótimo! excelente, incrível.", 3},
		{"no matches", "nada a declarar", 0},
		{"empty text", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countDistinctKeywords(tt.text, keywords))
		})
	}
}

func TestActiveKeywordsPrefersCacheThenStore(t *testing.T) {
	e := newEnv(t)
	e.seedKeywords(t, "alpha", "beta")
	ctx := context.Background()

	words := e.classifier.ActiveKeywords(ctx)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, words)

	// A store change is invisible until the cached entry is dropped.
	require.NoError(t, e.keywords.Create(ctx, &domain.Keyword{Word: "gamma", Active: true}))
	assert.ElementsMatch(t, []string{"alpha", "beta"}, e.classifier.ActiveKeywords(ctx))

	require.NoError(t, e.cache.ClearType(ctx, cache.TypeKeywords))
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma"}, e.classifier.ActiveKeywords(ctx))
}

func TestEvaluateMemoizesUntilKeywordChange(t *testing.T) {
	e := newEnv(t)
	e.seedKeywords(t, "ótimo", "excelente")
	ctx := context.Background()

	count, approved := e.classifier.Evaluate(ctx, "ótimo e excelente")
	require.Equal(t, 2, count)
	require.True(t, approved)

	// A store change without the invalidation trigger leaves the
	// memoized verdict in place.
	var excelente domain.Keyword
	require.NoError(t, e.db.First(&excelente, "word = ?", "excelente").Error)
	require.NoError(t, e.keywords.Delete(ctx, excelente.ID))
	count, approved = e.classifier.Evaluate(ctx, "ótimo e excelente")
	assert.Equal(t, 2, count)
	assert.True(t, approved)

	require.NoError(t, e.invalidator.Fire(ctx, cache.TriggerKeywordChange, nil))
	count, approved = e.classifier.Evaluate(ctx, "ótimo e excelente")
	assert.Equal(t, 1, count)
	assert.False(t, approved)
}

func TestClassifyCommentRejectsBlankText(t *testing.T) {
	e := newEnv(t)
	comment := &domain.Comment{Body: "   "}

	_, _, err := e.classifier.ClassifyComment(context.Background(), comment)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestClassifyCommentPrefersTranslatedBody(t *testing.T) {
	e := newEnv(t)
	e.seedKeywords(t, "great", "amazing")
	translated := "great and amazing"
	comment := &domain.Comment{Body: "ótimo e incrível", TranslatedBody: &translated}

	count, approved, err := e.classifier.ClassifyComment(context.Background(), comment)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, approved)
}
