// Package revalidate exposes the cache purge endpoint content editors
// hit after publishing, so changes show up without waiting out the
// TTLs.
package revalidate

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notionpress/core/internal/middleware"
	"github.com/notionpress/core/internal/pkg/response"
)

// Invalidator discards one cached snapshot.
type Invalidator interface {
	Invalidate()
}

type Handler struct {
	rdb    *redis.Client
	stores []Invalidator
	log    *zap.Logger
}

func NewHandler(rdb *redis.Client, log *zap.Logger, stores ...Invalidator) *Handler {
	return &Handler{rdb: rdb, stores: stores, log: log.Named("revalidate")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/revalidate", authMW, h.revalidate)
}

func (h *Handler) revalidate(c *gin.Context) {
	for _, store := range h.stores {
		store.Invalidate()
	}

	purged, err := h.purge(c.Request.Context())
	if err != nil {
		h.log.Warn("response cache purge incomplete", zap.Error(err))
	}
	h.log.Info("content revalidated", zap.Int64("purged", purged))

	response.OK(c, gin.H{
		"revalidated": true,
		"purged":      purged,
		"now":         time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) purge(ctx context.Context) (int64, error) {
	return middleware.PurgePageCache(ctx, h.rdb)
}
