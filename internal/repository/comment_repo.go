package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/domain"
)

// ErrStaleStatus means a guarded status update found the row in a
// different state than expected, usually a concurrent task racing a
// retried one. The losing writer must re-read and re-decide.
var ErrStaleStatus = fmt.Errorf("comment status changed concurrently")

// CommentRepository handles comment data operations.
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Upsert creates or updates a comment keyed by external_id. On conflict
// only the source-owned fields are refreshed: status, translated_body,
// and keyword_count belong to the pipeline and survive re-imports.
func (r *CommentRepository) Upsert(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	var existing domain.Comment
	err := r.db.WithContext(ctx).First(&existing, "external_id = ?", comment.ExternalID).Error
	if err == nil {
		existing.PostID = comment.PostID
		existing.Name = comment.Name
		existing.Email = comment.Email
		existing.Body = comment.Body
		if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if comment.Status == "" {
		comment.Status = domain.CommentStatusNew
	}
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// GetByID retrieves a comment by its ID.
func (r *CommentRepository) GetByID(ctx context.Context, id uint) (*domain.Comment, error) {
	var comment domain.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByStatusForPosts retrieves comments in the given status across the
// post ids.
func (r *CommentRepository) ListByStatusForPosts(ctx context.Context, postIDs []uint, status domain.CommentStatus) ([]domain.Comment, error) {
	if len(postIDs) == 0 {
		return []domain.Comment{}, nil
	}
	var comments []domain.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id IN ? AND status = ?", postIDs, status).
		Order("id").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListByStatus retrieves comments in the given status.
func (r *CommentRepository) ListByStatus(ctx context.Context, status domain.CommentStatus, limit, offset int) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Limit(limit).
		Offset(offset).
		Order("id").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListTerminal retrieves all comments in a terminal state, used by the
// reclassification flow after a keyword change.
func (r *CommentRepository) ListTerminal(ctx context.Context) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.CommentStatus{domain.CommentStatusApproved, domain.CommentStatusRejected}).
		Order("id").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateStatusFrom performs a conditional status update guarding against
// concurrent transitions: the write only lands if the row is still in
// the expected state. Returns ErrStaleStatus when the guard fails.
func (r *CommentRepository) UpdateStatusFrom(ctx context.Context, id uint, from, to domain.CommentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// UpdateTranslatedBody sets the translated body.
func (r *CommentRepository) UpdateTranslatedBody(ctx context.Context, id uint, translated string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Update("translated_body", translated).Error
}

// UpdateKeywordCount persists the classification count. Kept separate
// from the status transition so the count survives a refused transition.
func (r *CommentRepository) UpdateKeywordCount(ctx context.Context, id uint, count int) error {
	return r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Update("keyword_count", count).Error
}

// OwnerUserID resolves the user owning the comment through its post.
func (r *CommentRepository) OwnerUserID(ctx context.Context, commentID uint) (uint, error) {
	var userID uint
	err := r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Select("posts.user_id").
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("comments.id = ?", commentID).
		Scan(&userID).Error
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return userID, nil
}

// CountByPost counts comments under a post.
func (r *CommentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
