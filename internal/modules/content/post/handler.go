package post

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/models"
	"github.com/notionpress/core/internal/pkg/fallback"
	"github.com/notionpress/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.Named("post")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/posts", h.list)
	rg.GET("/feed", h.feed)
	rg.GET("/search", h.search)
	rg.GET("/categories", h.categories)
	rg.GET("/category/:category", h.byCategory)
	rg.GET("/tags", h.tags)
	rg.GET("/tag/:tag", h.byTag)
}

// List surfaces degrade to an empty result when the source is down, so
// the site keeps rendering instead of erroring.
func (h *Handler) list(c *gin.Context) {
	posts := fallback.Run(c.Request.Context(), h.log, "posts.published", []models.Post{}, h.svc.Published)
	response.OK(c, posts)
}

func (h *Handler) feed(c *gin.Context) {
	posts := fallback.Run(c.Request.Context(), h.log, "posts.feed", []models.Post{}, h.svc.PublicOnly)
	response.OK(c, posts)
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")
	posts := fallback.Run(c.Request.Context(), h.log, "posts.search", []models.Post{}, func(ctx context.Context) ([]models.Post, error) {
		return h.svc.Search(ctx, q)
	})
	response.OK(c, posts)
}

func (h *Handler) categories(c *gin.Context) {
	cats := fallback.Run(c.Request.Context(), h.log, "posts.categories", []NameCount{}, h.svc.Categories)
	response.OK(c, cats)
}

func (h *Handler) byCategory(c *gin.Context) {
	category := c.Param("category")
	posts := fallback.Run(c.Request.Context(), h.log, "posts.by_category", []models.Post{}, func(ctx context.Context) ([]models.Post, error) {
		return h.svc.ByCategory(ctx, category)
	})
	response.OK(c, posts)
}

func (h *Handler) tags(c *gin.Context) {
	tags := fallback.Run(c.Request.Context(), h.log, "posts.tags", []NameCount{}, h.svc.Tags)
	response.OK(c, tags)
}

func (h *Handler) byTag(c *gin.Context) {
	tag := c.Param("tag")
	posts := fallback.Run(c.Request.Context(), h.log, "posts.by_tag", []models.Post{}, func(ctx context.Context) ([]models.Post, error) {
		return h.svc.ByTag(ctx, tag)
	})
	response.OK(c, posts)
}
