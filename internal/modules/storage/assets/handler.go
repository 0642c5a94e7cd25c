package assets

import (
	"github.com/gin-gonic/gin"

	"github.com/notionpress/core/internal/pkg/response"
)

type Handler struct {
	cache *Cache
}

func NewHandler(cache *Cache) *Handler {
	return &Handler{cache: cache}
}

// RegisterRoutes mounts the asset route on the engine root; the serving
// URLs baked into rendered pages are not versioned under /api/v1.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET(ServePath+"/:id", h.serve)
}

// Materialized files never change for a given id, so clients may cache
// them forever.
func (h *Handler) serve(c *gin.Context) {
	path, contentType, ok := h.cache.Lookup(c.Param("id"))
	if !ok {
		response.NotFound(c)
		return
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.File(path)
}
