package model

import "time"

// HealthArticle is a health news entry served through the article cache.
type HealthArticle struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"column:title;type:varchar(255);not null"`
	Summary     string    `json:"summary" gorm:"column:summary;type:text"`
	URL         string    `json:"url" gorm:"column:url;type:varchar(512)"`
	Category    string    `json:"category" gorm:"column:category;type:varchar(64);index"`
	PublishedAt time.Time `json:"published_at" gorm:"column:published_at;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (HealthArticle) TableName() string {
	return "health_articles"
}
