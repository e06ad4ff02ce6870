package domain

import "time"

// UserMetrics aggregates comment statistics for one user. Derived data:
// always recomputable from Comment rows, never authoritative.
type UserMetrics struct {
	UserID            uint             `json:"user_id"`
	Username          string           `json:"username"`
	TotalComments     int64            `json:"total_comments"`
	CommentsByStatus  map[string]int64 `json:"comments_by_status"`
	ApprovalRate      float64          `json:"approval_rate"`
	KeywordCountStats KeywordStats     `json:"keyword_count_stats"`
	CalculatedAt      time.Time        `json:"calculated_at"`
}

// GroupMetrics aggregates comment statistics across all users.
type GroupMetrics struct {
	TotalUsers        int64            `json:"total_users"`
	TotalComments     int64            `json:"total_comments"`
	CommentsByStatus  map[string]int64 `json:"comments_by_status"`
	ApprovalRate      float64          `json:"approval_rate"`
	KeywordCountStats KeywordStats     `json:"keyword_count_stats"`
	CalculatedAt      time.Time        `json:"calculated_at"`
}

// KeywordStats summarizes keyword_count over classified comments.
type KeywordStats struct {
	Min int     `json:"min"`
	Max int     `json:"max"`
	Avg float64 `json:"avg"`
}
