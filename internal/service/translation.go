package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/LariSevilha/comment-analysis/internal/breaker"
	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/logger"
)

// Translator is the external translation collaborator.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// TranslationService translates text with permanent memoization. It
// never surfaces errors: any failure falls back to the original text
// while still counting against the circuit breaker, so a flaky
// translator degrades the pipeline instead of stopping it.
type TranslationService struct {
	translator Translator
	breaker    *breaker.Breaker
	cache      *cache.Cache
	sourceLang string
	targetLang string
	log        *logger.Logger
}

// NewTranslationService creates a translation service.
func NewTranslationService(translator Translator, brk *breaker.Breaker, c *cache.Cache, sourceLang, targetLang string, log *logger.Logger) *TranslationService {
	if log == nil {
		log = logger.Default()
	}
	return &TranslationService{
		translator: translator,
		breaker:    brk,
		cache:      c,
		sourceLang: sourceLang,
		targetLang: targetLang,
		log:        log,
	}
}

// TextHash is the memoization key: translation is a pure function of its
// input text, so the hash covers the text alone.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Translate returns the translated text, or the original text unchanged
// when translation is unavailable. Cached results never expire.
func (s *TranslationService) Translate(ctx context.Context, text string) string {
	if text == "" {
		return text
	}

	hash := TextHash(text)

	var cached string
	if found, err := s.cache.Get(ctx, cache.TypeTranslation, hash, &cached); err == nil && found {
		return cached
	}

	var translated string
	err := s.breaker.Execute(ctx, func(callCtx context.Context) error {
		out, err := s.translator.Translate(callCtx, text, s.sourceLang, s.targetLang)
		if err != nil {
			return err
		}
		translated = out
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("text_hash", hash).Warn("Translation failed, falling back to original text")
		return text
	}

	if err := s.cache.Set(ctx, cache.TypeTranslation, hash, translated); err != nil {
		s.log.WithError(err).WithField("text_hash", hash).Warn("Failed to cache translation")
	}
	return translated
}

// Evict removes one memoized translation by text hash. This is the only
// way a translation entry leaves the cache.
func (s *TranslationService) Evict(ctx context.Context, textHash string) error {
	return s.cache.Delete(ctx, cache.TypeTranslation, textHash)
}
