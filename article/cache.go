// Package article serves health articles through a read-through cache.
package article

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/medibot/model"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix = "health_news"

	DefaultTTL  = time.Hour
	RecentLimit = 20
)

// Key returns the cache key for a category; the empty category is the global feed.
func Key(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return keyPrefix
	}
	return keyPrefix + ":" + category
}

// Cache stores article lists in Redis, or in process memory when no Redis
// client is configured. Entries expire after the TTL.
type Cache struct {
	rdb   *redis.Client
	local *cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		rdb:   rdb,
		local: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		log:   log.With().Str("component", "article_cache").Logger(),
	}
}

// Get returns the cached list for category and whether it was present.
func (c *Cache) Get(ctx context.Context, category string) ([]model.HealthArticle, bool, error) {
	key := Key(category)
	if c.rdb == nil {
		v, ok := c.local.Get(key)
		if !ok {
			return nil, false, nil
		}
		articles, _ := v.([]model.HealthArticle)
		return articles, true, nil
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var articles []model.HealthArticle
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return articles, true, nil
}

// Set stores articles for category for the cache TTL.
func (c *Cache) Set(ctx context.Context, category string, articles []model.HealthArticle) error {
	key := Key(category)
	if c.rdb == nil {
		c.local.Set(key, articles, c.ttl)
		return nil
	}

	raw, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops the global feed and the given categories.
func (c *Cache) Invalidate(ctx context.Context, categories ...string) error {
	keys := []string{Key("")}
	for _, cat := range categories {
		if k := Key(cat); k != keyPrefix {
			keys = append(keys, k)
		}
	}

	if c.rdb == nil {
		for _, k := range keys {
			c.local.Delete(k)
		}
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Fetch returns the cached list for category, calling load on a miss and
// caching its result. Cache failures are logged and fall back to load.
func (c *Cache) Fetch(ctx context.Context, category string, load func(ctx context.Context) ([]model.HealthArticle, error)) ([]model.HealthArticle, bool, error) {
	articles, hit, err := c.Get(ctx, category)
	if err != nil {
		c.log.Warn().Err(err).Str("category", category).Msg("article cache read failed")
	}
	if hit {
		return articles, true, nil
	}

	articles, err = load(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, category, articles); err != nil {
		c.log.Warn().Err(err).Str("category", category).Msg("article cache write failed")
	}
	return articles, false, nil
}
