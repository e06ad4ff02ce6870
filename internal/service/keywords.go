package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LariSevilha/comment-analysis/internal/cache"
	"github.com/LariSevilha/comment-analysis/internal/domain"
	"github.com/LariSevilha/comment-analysis/internal/logger"
	"github.com/LariSevilha/comment-analysis/internal/queue"
	"github.com/LariSevilha/comment-analysis/internal/repository"
)

// ErrEmptyKeyword rejects blank dictionary entries.
var ErrEmptyKeyword = errors.New("keyword word must not be empty")

// KeywordService manages the classification dictionary. Every mutation
// fires the keyword-change invalidation and schedules a reclassification
// sweep, so already-decided comments converge on the new dictionary.
type KeywordService struct {
	keywords    *repository.KeywordRepository
	invalidator *cache.Invalidator
	queue       queue.Queue
	log         *logger.Logger
}

// NewKeywordService creates the keyword service.
func NewKeywordService(keywords *repository.KeywordRepository, invalidator *cache.Invalidator, q queue.Queue, log *logger.Logger) *KeywordService {
	if log == nil {
		log = logger.Default()
	}
	return &KeywordService{keywords: keywords, invalidator: invalidator, queue: q, log: log}
}

// List returns every dictionary entry, active or not.
func (s *KeywordService) List(ctx context.Context) ([]domain.Keyword, error) {
	return s.keywords.List(ctx)
}

// Get returns one dictionary entry.
func (s *KeywordService) Get(ctx context.Context, id uint) (*domain.Keyword, error) {
	return s.keywords.GetByID(ctx, id)
}

// Create adds a keyword and propagates the change.
func (s *KeywordService) Create(ctx context.Context, word string, active bool) (*domain.Keyword, error) {
	if strings.TrimSpace(word) == "" {
		return nil, ErrEmptyKeyword
	}
	keyword := &domain.Keyword{Word: word, Active: active}
	if err := s.keywords.Create(ctx, keyword); err != nil {
		return nil, err
	}
	s.propagateChange(ctx, fmt.Sprintf("keyword %q created", keyword.Word))
	return keyword, nil
}

// Update changes a keyword's word or active flag and propagates.
func (s *KeywordService) Update(ctx context.Context, id uint, word string, active bool) (*domain.Keyword, error) {
	if strings.TrimSpace(word) == "" {
		return nil, ErrEmptyKeyword
	}
	keyword, err := s.keywords.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	keyword.Word = word
	keyword.Active = active
	if err := s.keywords.Update(ctx, keyword); err != nil {
		return nil, err
	}
	s.propagateChange(ctx, fmt.Sprintf("keyword %q updated", keyword.Word))
	return keyword, nil
}

// Delete removes a keyword and propagates.
func (s *KeywordService) Delete(ctx context.Context, id uint) error {
	keyword, err := s.keywords.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.keywords.Delete(ctx, id); err != nil {
		return err
	}
	s.propagateChange(ctx, fmt.Sprintf("keyword %q deleted", keyword.Word))
	return nil
}

// propagateChange invalidates keyword-derived cache entries and enqueues
// one reclassification sweep. Both are best-effort: the dictionary write
// has already committed and the sweep reads the database, so a failed
// invalidation degrades to stale cache until TTL, not to wrong data.
func (s *KeywordService) propagateChange(ctx context.Context, reason string) {
	if err := s.invalidator.Fire(ctx, cache.TriggerKeywordChange, nil); err != nil {
		s.log.WithError(err).Warn("Keyword cache invalidation failed")
	}

	task, err := queue.NewTask(queue.KindReclassifyComments, queue.ReclassifyCommentsPayload{Reason: reason})
	if err != nil {
		s.log.WithError(err).Error("Failed to build reclassification task")
		return
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.log.WithError(err).Error("Failed to enqueue reclassification task")
		return
	}
	s.log.WithField("reason", reason).Info("Reclassification scheduled")
}
