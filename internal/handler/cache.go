package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioc-radar/backend/internal/model"
)

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// CacheHandler - 관리자용 응답 캐시 무효화
type CacheHandler struct {
	cache cacheInvalidator
}

func NewCacheHandler(cache cacheInvalidator) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// InvalidateCache godoc
// @Summary Invalidate cached responses
// @Description Removes entries whose key contains pattern. Empty pattern clears everything.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param pattern query string false "Key substring, e.g. dashboard:42:"
// @Success 200 {object} model.CacheInvalidateResponse
// @Failure 403,500 {object} model.ErrorResponse
// @Router /api/v1/admin/cache/invalidate [post]
func (h *CacheHandler) InvalidateCache(c *gin.Context) {
	removed, err := h.cache.Invalidate(c.Request.Context(), c.Query("pattern"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.CacheInvalidateResponse{Status: "ok", Removed: removed})
}
