package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/domain"
)

// PostRepository handles post data operations.
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Upsert creates or updates a post keyed by external_id and returns the
// stored record.
func (r *PostRepository) Upsert(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	var existing domain.Post
	err := r.db.WithContext(ctx).First(&existing, "external_id = ?", post.ExternalID).Error
	if err == nil {
		existing.UserID = post.UserID
		existing.Title = post.Title
		existing.Body = post.Body
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// GetByID retrieves a post by its ID.
func (r *PostRepository) GetByID(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// ListByUser retrieves all posts owned by the user.
func (r *PostRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Post, error) {
	var posts []domain.Post
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CountByUser counts posts owned by the user.
func (r *PostRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Post{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
