package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/domain"
)

// KeywordRepository handles keyword dictionary operations.
type KeywordRepository struct {
	db *gorm.DB
}

// NewKeywordRepository creates a new KeywordRepository.
func NewKeywordRepository(db *gorm.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// Create inserts a keyword, lowercasing the word first.
func (r *KeywordRepository) Create(ctx context.Context, keyword *domain.Keyword) error {
	keyword.Word = strings.ToLower(strings.TrimSpace(keyword.Word))
	return r.db.WithContext(ctx).Create(keyword).Error
}

// Update saves changes to a keyword.
func (r *KeywordRepository) Update(ctx context.Context, keyword *domain.Keyword) error {
	keyword.Word = strings.ToLower(strings.TrimSpace(keyword.Word))
	return r.db.WithContext(ctx).Save(keyword).Error
}

// Delete removes a keyword by ID.
func (r *KeywordRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Keyword{}, "id = ?", id).Error
}

// GetByID retrieves a keyword by its ID.
func (r *KeywordRepository) GetByID(ctx context.Context, id uint) (*domain.Keyword, error) {
	var keyword domain.Keyword
	if err := r.db.WithContext(ctx).First(&keyword, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &keyword, nil
}

// List retrieves all keywords.
func (r *KeywordRepository) List(ctx context.Context) ([]domain.Keyword, error) {
	var keywords []domain.Keyword
	if err := r.db.WithContext(ctx).Order("word").Find(&keywords).Error; err != nil {
		return nil, err
	}
	return keywords, nil
}

// ActiveWords returns the active keyword set, lowercased.
func (r *KeywordRepository) ActiveWords(ctx context.Context) ([]string, error) {
	var words []string
	if err := r.db.WithContext(ctx).
		Model(&domain.Keyword{}).
		Where("active = ?", true).
		Order("word").
		Pluck("word", &words).Error; err != nil {
		return nil, err
	}
	return words, nil
}
