package author

import (
	"strings"

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
	return &Handler{svc: svc, log: log.Named("author")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authors := rg.Group("/authors")
	authors.GET("", h.list)
	authors.GET("/lookup", h.lookup)
}

func (h *Handler) list(c *gin.Context) {
	authors := fallback.Run(c.Request.Context(), h.log, "authors.list", []models.Author{}, h.svc.All)
	response.OK(c, authors)
}

// lookup resolves an attribution to a profile. ids takes a comma
// separated list of source person identifiers; a match there wins over
// the name.
func (h *Handler) lookup(c *gin.Context) {
	name := c.Query("name")
	var ids []string
	if raw := c.Query("ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}
	if name == "" && len(ids) == 0 {
		response.BadRequest(c, "name or ids required")
		return
	}
	author, ok, err := h.svc.Resolve(c.Request.Context(), ids, name)
	if err != nil {
		h.log.Error("author resolve unavailable", zap.String("name", name), zap.Error(err))
	}
	if !ok {
		response.NotFound(c)
		return
	}
	response.OK(c, author)
}
