package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetWeights godoc
// @Summary      Index weights
// @Description  Returns the fixed weight table of the T5 index
// @Tags         index
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/weights [get]
func (h *Handler) GetWeights(c *gin.Context) {
	weights := h.indexService.Weights()
	c.JSON(http.StatusOK, gin.H{
		"weights": weights,
		"symbols": weights.Symbols(),
		"title":   weights.Title(),
	})
}

// GetSources godoc
// @Summary      Data sources
// @Description  Lists the configured price sources and their lookback limits
// @Tags         index
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/sources [get]
func (h *Handler) GetSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.indexService.Sources()})
}

// GetRuns godoc
// @Summary      Recent index builds
// @Description  Lists archived index builds, newest first
// @Tags         index
// @Produce      json
// @Param        limit  query  int  false  "Number of runs (max 100)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/runs [get]
func (h *Handler) GetRuns(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-runs")
	defer span.End()

	runs, err := h.indexService.ListRuns(ctx, boundedInt(c.Query("limit"), 20, 100))
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
