// Package app wires configuration, the Notion client, content
// services and HTTP routes into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/config"
	"github.com/notionpress/core/internal/middleware"
	"github.com/notionpress/core/internal/modules/content/author"
	"github.com/notionpress/core/internal/modules/content/detail"
	"github.com/notionpress/core/internal/modules/content/post"
	"github.com/notionpress/core/internal/modules/enrich/linkpreview"
	"github.com/notionpress/core/internal/modules/processing/render"
	"github.com/notionpress/core/internal/modules/processing/resolver"
	"github.com/notionpress/core/internal/modules/storage/assets"
	"github.com/notionpress/core/internal/notion"
	pkgcron "github.com/notionpress/core/internal/pkg/cron"
	pkgredis "github.com/notionpress/core/internal/pkg/redis"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	logger   *zap.Logger
	rdb      *goredis.Client
	posts    *post.Service
	authors  *author.Service
	details  *detail.Service
	assets   *assets.Cache
	previews *linkpreview.Enricher
	sched    *pkgcron.Scheduler
	cancel   context.CancelFunc
}

// New initializes the application: config, Redis, Notion pipeline,
// then routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	rdb, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	client := notion.NewClient(cfg.Notion.Token)
	assetCache := assets.NewCache(cfg.Cache.AssetDir, logger)
	previews := linkpreview.New(cfg.Cache.PreviewDir, cfg.PreviewTTL(), logger)

	posts := post.NewService(client, cfg.Notion.PostsDataSource, assetCache, cfg.PostTTL(), nil, logger)
	authors := author.NewService(client, cfg.Notion.AuthorDataSource, assetCache, cfg.AuthorTTL(), nil, logger)

	blocks := resolver.New(client, int64(cfg.Resolver.Concurrency), logger)
	markup := render.New(cfg.SiteOrigin)
	details := detail.NewService(posts, authors, blocks, markup, logger,
		detail.TreePassFunc(assetCache.CacheImages),
		detail.TreePassFunc(previews.Enrich),
	)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:      cfg,
		router:   router,
		logger:   logger,
		rdb:      rdb,
		posts:    posts,
		authors:  authors,
		details:  details,
		assets:   assetCache,
		previews: previews,
		sched:    pkgcron.New(),
		cancel:   cancel,
	}

	app.registerCronJobs()
	go app.sched.Start(ctx)

	app.registerRoutes()
	return app, nil
}

func buildCORSConfig(cfg *config.AppConfig) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Idempotence"},
		ExposeHeaders:    []string{"Content-Length", "x-np-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && cfg.IsProduction() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsConfig
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs.
func (a *App) Shutdown() { a.cancel() }
