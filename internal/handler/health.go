package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status        string `json:"status"`
	DefaultSource string `json:"default_source"`
	Cache         bool   `json:"cache"`
	Archive       bool   `json:"archive"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports liveness, the default source and whether the cache and archive are wired
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	cacheOn, archiveOn := h.indexService.Status()
	c.JSON(http.StatusOK, healthResponse{
		Status:        "healthy",
		DefaultSource: h.indexService.DefaultSource(),
		Cache:         cacheOn,
		Archive:       archiveOn,
	})
}
