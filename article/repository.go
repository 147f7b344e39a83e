package article

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/medibot/model"
	"gorm.io/gorm"
)

// ErrTitleRequired is returned when an article has no title.
var ErrTitleRequired = errors.New("title is required")

// CreateInput is the payload for a new article.
type CreateInput struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
}

// LoadRecent returns the newest articles, optionally restricted to one category.
func LoadRecent(ctx context.Context, db *gorm.DB, category string, limit int) ([]model.HealthArticle, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	tx := db.WithContext(ctx).Order("published_at DESC").Order("id DESC").Limit(limit)
	if category = strings.ToLower(strings.TrimSpace(category)); category != "" {
		tx = tx.Where("category = ?", category)
	}

	articles := []model.HealthArticle{}
	if err := tx.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}
	return articles, nil
}

// Create validates and inserts an article. PublishedAt defaults to now.
func Create(ctx context.Context, db *gorm.DB, in CreateInput) (model.HealthArticle, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.HealthArticle{}, ErrTitleRequired
	}
	published := in.PublishedAt
	if published.IsZero() {
		published = time.Now().UTC()
	}

	a := model.HealthArticle{
		Title:       title,
		Summary:     strings.TrimSpace(in.Summary),
		URL:         strings.TrimSpace(in.URL),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		PublishedAt: published,
	}
	if err := db.WithContext(ctx).Create(&a).Error; err != nil {
		return model.HealthArticle{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}
