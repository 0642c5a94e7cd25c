package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/notionpress/core/internal/middleware"
	"github.com/notionpress/core/internal/modules/content/author"
	"github.com/notionpress/core/internal/modules/content/detail"
	"github.com/notionpress/core/internal/modules/content/post"
	"github.com/notionpress/core/internal/modules/storage/assets"
	"github.com/notionpress/core/internal/modules/system/revalidate"
	"github.com/notionpress/core/internal/pkg/response"
)

var processStart = time.Now()

func (a *App) registerRoutes() {
	// Cached image bytes are served outside the API group: they carry
	// their own immutable cache headers and must never hit Redis.
	assets.NewHandler(a.assets).RegisterRoutes(a.router)

	api := a.router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(a.cfg.RevalidateSecret))
	api.Use(middleware.PageCache(a.rdb, middleware.PageCacheOptions{
		TTL:             time.Minute,
		EnableCDNHeader: a.cfg.IsProduction(),
		SkipPaths:       []string{"/api/v1/revalidate", "/api/v1/ping"},
	}))
	api.Use(middleware.RateLimit(a.rdb))
	api.Use(middleware.Idempotence(a.rdb))

	api.GET("", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":   "notionpress-core",
			"uptime": time.Since(processStart).Truncate(time.Second).String(),
			"jobs":   a.sched.List(),
		})
	})
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"pong": true})
	})

	post.NewHandler(a.posts, a.logger).RegisterRoutes(api)
	author.NewHandler(a.authors, a.logger).RegisterRoutes(api)
	detail.NewHandler(a.details, a.posts, a.authors, a.logger).RegisterRoutes(api)

	revalidate.NewHandler(a.rdb, a.logger, a.posts, a.authors).
		RegisterRoutes(api, middleware.Auth(a.cfg.RevalidateSecret))

	a.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})
}
