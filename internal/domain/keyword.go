package domain

import "time"

// Keyword is a dictionary entry used by the classification stage.
// Only active keywords participate in matching; words are stored lowercased.
type Keyword struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Word      string    `gorm:"type:text;uniqueIndex;not null" json:"word"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Keyword) TableName() string {
	return "keywords"
}

// DefaultKeywords is the fallback dictionary used when the keyword store
// is unavailable, so classification never hard-fails on a source outage.
var DefaultKeywords = []string{
	"ótimo", "excelente", "incrível", "bom", "recomendo",
	"great", "excellent", "amazing", "good", "recommend",
}
