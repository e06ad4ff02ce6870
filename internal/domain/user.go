package domain

import "time"

// User is a content author imported from the external source.
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID int64     `gorm:"uniqueIndex;not null" json:"external_id"`
	Name       string    `gorm:"type:text" json:"name"`
	Username   string    `gorm:"type:text;index" json:"username"`
	Email      string    `gorm:"type:text" json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Post is a content item owned by a User.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID int64     `gorm:"uniqueIndex;not null" json:"external_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Title      string    `gorm:"type:text" json:"title"`
	Body       string    `gorm:"type:text" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}
