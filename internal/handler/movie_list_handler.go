// Package handler exposes the cached movie lists over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"releasewatch/internal/catalog"
)

// ListService is the read side of the catalog cache.
type ListService interface {
	Lists() []string
	GetPage(ctx context.Context, list string, page, limit int) (*catalog.Page, error)
}

type MovieListHandler struct {
	svc    ListService
	logger zerolog.Logger
}

func NewMovieListHandler(svc ListService, logger zerolog.Logger) *MovieListHandler {
	return &MovieListHandler{svc: svc, logger: logger}
}

func (h *MovieListHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Index)
	rg.GET("/:list", h.Get)
}

// Index handles GET /api/v1/lists
func (h *MovieListHandler) Index(c *gin.Context) {
	names := h.svc.Lists()
	sort.Strings(names)
	c.JSON(http.StatusOK, gin.H{"lists": names})
}

// Get handles GET /api/v1/lists/:list?page=&limit=
func (h *MovieListHandler) Get(c *gin.Context) {
	list := c.Param("list")
	page, err := queryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	limit, err := queryInt(c, "limit", catalog.DefaultPageLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	// a cold list builds synchronously and may walk several catalog pages
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result, err := h.svc.GetPage(ctx, list, page, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownList) {
			c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
			return
		}
		h.logger.Error().Err(err).Str("list", list).Msg("failed to serve list")
		c.JSON(http.StatusBadGateway, gin.H{"error": "list temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// RegisterHealth mounts GET /healthz. Each check runs with a short timeout;
// any failure turns the response into a 503.
func RegisterHealth(r gin.IRoutes, checks map[string]func(context.Context) error) {
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	})
}
