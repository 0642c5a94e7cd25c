package detail

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/models"
	"github.com/notionpress/core/internal/modules/content/author"
	"github.com/notionpress/core/internal/modules/content/post"
	"github.com/notionpress/core/internal/pkg/fallback"
	"github.com/notionpress/core/internal/pkg/response"
)

type Handler struct {
	svc     *Service
	posts   *post.Service
	authors *author.Service
	log     *zap.Logger
}

func NewHandler(svc *Service, posts *post.Service, authors *author.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, posts: posts, authors: authors, log: log.Named("detail")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/posts/:slug", h.postDetail)
	rg.GET("/pages", h.pages)
	rg.GET("/pages/:slug", h.pageDetail)
	rg.GET("/series/:name", h.series)
	rg.GET("/author/:name", h.authorPage)
	rg.GET("/feed-data", h.feedData)
}

// Detail paths never surface a raw upstream error: when the source is
// down and no snapshot exists yet, the page degrades to not found.
func (h *Handler) postDetail(c *gin.Context) {
	d, err := h.svc.Post(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.log.Error("post detail unavailable", zap.String("slug", c.Param("slug")), zap.Error(err))
	}
	if d == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, d)
}

func (h *Handler) pages(c *gin.Context) {
	pages := fallback.Run(c.Request.Context(), h.log, "detail.pages", []models.Post{}, h.posts.Pages)
	response.OK(c, pages)
}

func (h *Handler) pageDetail(c *gin.Context) {
	d, err := h.svc.Page(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.log.Error("page detail unavailable", zap.String("slug", c.Param("slug")), zap.Error(err))
	}
	if d == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, d)
}

// series lists the ordered run of posts sharing a series name.
func (h *Handler) series(c *gin.Context) {
	name := c.Param("name")
	posts := fallback.Run(c.Request.Context(), h.log, "detail.series", []models.Post{}, func(ctx context.Context) ([]models.Post, error) {
		return h.posts.Series(ctx, models.Post{Series: name})
	})
	response.OK(c, posts)
}

// authorPage bundles an author profile with their public posts.
func (h *Handler) authorPage(c *gin.Context) {
	a, ok, err := h.authors.ByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.log.Error("author lookup unavailable", zap.String("name", c.Param("name")), zap.Error(err))
	}
	if !ok {
		response.NotFound(c)
		return
	}
	posts := fallback.Run(c.Request.Context(), h.log, "detail.author_posts", []models.Post{}, func(ctx context.Context) ([]models.Post, error) {
		return h.posts.ByAuthor(ctx, a)
	})
	response.OK(c, gin.H{"author": a, "posts": posts})
}

func (h *Handler) feedData(c *gin.Context) {
	empty := &FeedData{
		Posts:   []models.Post{},
		Tags:    []post.NameCount{},
		Authors: map[string]models.AuthorSummary{},
	}
	data := fallback.Run(c.Request.Context(), h.log, "detail.feed", empty, h.svc.Feed)
	response.OK(c, data)
}
