package domain

import "time"

// CommentStatus represents the lifecycle state of a comment.
// Values include CommentStatusNew, CommentStatusProcessing,
// CommentStatusApproved, and CommentStatusRejected.
type CommentStatus string

const (
	CommentStatusNew        CommentStatus = "new"
	CommentStatusProcessing CommentStatus = "processing"
	CommentStatusApproved   CommentStatus = "approved"
	CommentStatusRejected   CommentStatus = "rejected"
)

// Terminal reports whether the status is an end state of the primary lifecycle.
func (s CommentStatus) Terminal() bool {
	return s == CommentStatusApproved || s == CommentStatusRejected
}

// Comment is a user comment flowing through the analysis pipeline.
// ExternalID is the idempotency key: re-imports upsert, never duplicate.
type Comment struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ExternalID     int64         `gorm:"uniqueIndex;not null" json:"external_id"`
	PostID         uint          `gorm:"not null;index" json:"post_id"`
	Name           string        `gorm:"type:text" json:"name"`
	Email          string        `gorm:"type:text" json:"email"`
	Body           string        `gorm:"type:text" json:"body"`
	TranslatedBody *string       `gorm:"type:text" json:"translated_body,omitempty"`
	Status         CommentStatus `gorm:"type:text;default:new;index" json:"status"`
	KeywordCount   *int          `json:"keyword_count,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Comment) TableName() string {
	return "comments"
}

// TextForClassification returns the translated body when present and
// non-empty, otherwise the original body.
func (c *Comment) TextForClassification() string {
	if c.TranslatedBody != nil && *c.TranslatedBody != "" {
		return *c.TranslatedBody
	}
	return c.Body
}
