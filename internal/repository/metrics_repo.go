package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/LariSevilha/comment-analysis/internal/domain"
)

// MetricsRepository computes derived aggregates from comment rows.
// Nothing here is authoritative: every number is reconstructible.
type MetricsRepository struct {
	db *gorm.DB
}

// NewMetricsRepository creates a new MetricsRepository.
func NewMetricsRepository(db *gorm.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

type statusCount struct {
	Status string
	C      int64
}

type keywordAgg struct {
	Min *int
	Max *int
	Avg *float64
}

// UserMetrics recomputes aggregate statistics for one user.
func (r *MetricsRepository) UserMetrics(ctx context.Context, userID uint) (*domain.UserMetrics, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	base := r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.user_id = ?", userID)

	byStatus, total, err := statusBreakdown(base)
	if err != nil {
		return nil, err
	}

	stats, err := keywordStats(r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.user_id = ?", userID))
	if err != nil {
		return nil, err
	}

	return &domain.UserMetrics{
		UserID:            userID,
		Username:          user.Username,
		TotalComments:     total,
		CommentsByStatus:  byStatus,
		ApprovalRate:      approvalRate(byStatus),
		KeywordCountStats: stats,
		CalculatedAt:      time.Now().UTC(),
	}, nil
}

// GroupMetrics recomputes aggregate statistics across all users.
func (r *MetricsRepository) GroupMetrics(ctx context.Context) (*domain.GroupMetrics, error) {
	var totalUsers int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&totalUsers).Error; err != nil {
		return nil, err
	}

	byStatus, total, err := statusBreakdown(r.db.WithContext(ctx).Model(&domain.Comment{}))
	if err != nil {
		return nil, err
	}

	stats, err := keywordStats(r.db.WithContext(ctx).Model(&domain.Comment{}))
	if err != nil {
		return nil, err
	}

	return &domain.GroupMetrics{
		TotalUsers:        totalUsers,
		TotalComments:     total,
		CommentsByStatus:  byStatus,
		ApprovalRate:      approvalRate(byStatus),
		KeywordCountStats: stats,
		CalculatedAt:      time.Now().UTC(),
	}, nil
}

func statusBreakdown(query *gorm.DB) (map[string]int64, int64, error) {
	var rows []statusCount
	if err := query.Select("comments.status as status, COUNT(*) as c").
		Group("comments.status").
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	byStatus := map[string]int64{}
	var total int64
	for _, row := range rows {
		byStatus[row.Status] = row.C
		total += row.C
	}
	return byStatus, total, nil
}

func keywordStats(query *gorm.DB) (domain.KeywordStats, error) {
	var agg keywordAgg
	err := query.
		Where("comments.keyword_count IS NOT NULL").
		Select("MIN(comments.keyword_count) as min, MAX(comments.keyword_count) as max, AVG(comments.keyword_count) as avg").
		Scan(&agg).Error
	if err != nil {
		return domain.KeywordStats{}, err
	}

	stats := domain.KeywordStats{}
	if agg.Min != nil {
		stats.Min = *agg.Min
	}
	if agg.Max != nil {
		stats.Max = *agg.Max
	}
	if agg.Avg != nil {
		stats.Avg = *agg.Avg
	}
	return stats, nil
}

// approvalRate is approved / (approved + rejected); 0 when nothing has
// reached a terminal state yet.
func approvalRate(byStatus map[string]int64) float64 {
	approved := byStatus[string(domain.CommentStatusApproved)]
	rejected := byStatus[string(domain.CommentStatusRejected)]
	terminal := approved + rejected
	if terminal == 0 {
		return 0
	}
	return float64(approved) / float64(terminal)
}
