package endpoint

import (
	"context"
	"errors"

	"github.com/ariebrainware/medibot/article"
	"github.com/ariebrainware/medibot/middleware"
	"github.com/ariebrainware/medibot/model"
	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ArticleHandler serves health articles through the article cache.
type ArticleHandler struct {
	cache *article.Cache
}

func NewArticleHandler(cache *article.Cache) *ArticleHandler {
	return &ArticleHandler{cache: cache}
}

// HealthNews handles GET /article/health?category=.
func (h *ArticleHandler) HealthNews(c *gin.Context) {
	category := c.Query("category")
	load := func(ctx context.Context) ([]model.HealthArticle, error) {
		var articles []model.HealthArticle
		err := middleware.WithScope(ctx, middleware.GetDB(c), middleware.ScopeReadOnly, func(tx *gorm.DB) error {
			var err error
			articles, err = article.LoadRecent(ctx, tx, category, article.RecentLimit)
			return err
		})
		return articles, err
	}

	articles, cached, err := h.cache.Fetch(c.Request.Context(), category, load)
	if err != nil {
		serverError(c, "Failed to load health articles", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Health articles retrieved",
		Data: gin.H{"articles": articles, "count": len(articles), "cached": cached},
	})
}

// Create handles POST /article/create and invalidates the affected cache keys.
func (h *ArticleHandler) Create(c *gin.Context) {
	var in article.CreateInput
	if !bindJSON(c, &in) {
		return
	}

	var created model.HealthArticle
	err := middleware.RunScoped(c, middleware.ScopeReadWrite, func(tx *gorm.DB) error {
		var err error
		created, err = article.Create(c.Request.Context(), tx, in)
		return err
	})
	if errors.Is(err, article.ErrTitleRequired) {
		util.CallUserError(c, util.APIErrorParams{
			Msg:    "Invalid article",
			Err:    err,
			Fields: map[string]string{"title": "is required"},
		})
		return
	}
	if err != nil {
		serverError(c, "Failed to create article", err)
		return
	}

	if err := h.cache.Invalidate(c.Request.Context(), created.Category); err != nil {
		util.Logger().Warn().Err(err).Str("category", created.Category).Msg("article cache invalidation failed")
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Article created", Data: created})
}
