package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/repository"
)

// ErrNoText means a comment has neither a translated body nor an
// original body to classify.
var ErrNoText = errors.New("comment has no text to classify")

const activeKeywordsCacheKey = "active"

// ClassificationService scores text against the active keyword set.
// The keyword set is read through a short-lived cache and falls back to
// a hardcoded default list, so classification never hard-fails purely
// because the keyword store is down.
type ClassificationService struct {
	keywords  *repository.KeywordRepository
	cache     *cache.Cache
	threshold int
	log       *logger.Logger
}

// NewClassificationService creates a classification service. threshold
// is the minimum distinct keyword count for approval.
func NewClassificationService(keywords *repository.KeywordRepository, c *cache.Cache, threshold int, log *logger.Logger) *ClassificationService {
	if threshold <= 0 {
		threshold = 2
	}
	if log == nil {
		log = logger.Default()
	}
	return &ClassificationService{keywords: keywords, cache: c, threshold: threshold, log: log}
}

// ActiveKeywords returns the active keyword set, preferring the cache,
// then the store, then the built-in default list.
func (s *ClassificationService) ActiveKeywords(ctx context.Context) []string {
	var words []string
	if found, err := s.cache.Get(ctx, cache.TypeKeywords, activeKeywordsCacheKey, &words); err == nil && found {
		return words
	}

	words, err := s.keywords.ActiveWords(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Keyword store unavailable, using default keyword set")
		return domain.DefaultKeywords
	}

	if err := s.cache.Set(ctx, cache.TypeKeywords, activeKeywordsCacheKey, words); err != nil {
		s.log.WithError(err).Warn("Failed to cache active keywords")
	}
	return words
}

// classificationScore is the memoized verdict for one text hash.
type classificationScore struct {
	KeywordCount int  `json:"keyword_count"`
	Approved     bool `json:"approved"`
}

// Evaluate scores free text: the distinct active keywords matched as
// whole words, and whether that clears the approval threshold. Verdicts
// are memoized by text hash; keyword and comment change triggers clear
// the memo, so a hit is always consistent with the current keyword set.
func (s *ClassificationService) Evaluate(ctx context.Context, text string) (int, bool) {
	key := TextHash(text)
	var cached classificationScore
	if found, err := s.cache.Get(ctx, cache.TypeClassification, key, &cached); err == nil && found {
		return cached.KeywordCount, cached.Approved
	}

	count := countDistinctKeywords(text, s.ActiveKeywords(ctx))
	approved := count >= s.threshold
	if err := s.cache.Set(ctx, cache.TypeClassification, key, classificationScore{KeywordCount: count, Approved: approved}); err != nil {
		s.log.WithError(err).Warn("Failed to cache classification verdict")
	}
	return count, approved
}

// ClassifyComment scores a comment's text. Returns ErrNoText when there
// is nothing to classify.
func (s *ClassificationService) ClassifyComment(ctx context.Context, comment *domain.Comment) (int, bool, error) {
	text := comment.TextForClassification()
	if strings.TrimSpace(text) == "" {
		return 0, false, ErrNoText
	}
	count, approved := s.Evaluate(ctx, text)
	return count, approved, nil
}

// countDistinctKeywords matches each keyword as a whole word against the
// lowercased text. Repeated occurrences of one keyword count once.
// Tokenizing on non-letter, non-digit runes keeps the word-boundary
// semantics correct for accented keywords.
func countDistinctKeywords(text string, keywords []string) int {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	present := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		present[token] = struct{}{}
	}

	count := 0
	for _, keyword := range keywords {
		if _, ok := present[strings.ToLower(keyword)]; ok {
			count++
		}
	}
	return count
}
