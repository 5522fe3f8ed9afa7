package handler

import (
	"net/http"

	"t5index/internal/domain"
	"t5index/internal/render"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type indexResponse struct {
	ID      string             `json:"id"`
	Source  string             `json:"source"`
	Start   string             `json:"start"`
	End     string             `json:"end"`
	Title   string             `json:"title"`
	Weights domain.WeightTable `json:"weights"`
	Summary render.Summary     `json:"summary"`
	Index   domain.IndexSeries `json:"index"`
}

type assetRows struct {
	Symbol string               `json:"symbol"`
	Weight float64              `json:"weight"`
	Points int                  `json:"points"`
	Head   []domain.Observation `json:"head"`
	Tail   []domain.Observation `json:"tail"`
}

// GetIndex godoc
// @Summary      Build the T5 index
// @Description  Fetches daily prices for the weighted assets and returns the composite index rebased to 1000
// @Tags         index
// @Produce      json
// @Param        source  query  string  false  "Data source (coingecko, yahoo)"
// @Param        start   query  string  false  "Start date YYYY-MM-DD"
// @Param        end     query  string  false  "End date YYYY-MM-DD"
// @Success      200  {object}  indexResponse
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/index [get]
func (h *Handler) GetIndex(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-index")
	defer span.End()

	req, err := h.indexRequest(c)
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("range", req.Range.String()))
	req.Record = true

	result, err := h.indexService.Build(ctx, req)
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}

	summary, _ := render.Summarize(result.Index)
	c.JSON(http.StatusOK, indexResponse{
		ID:      result.ID.String(),
		Source:  result.Source,
		Start:   result.Range.Start.Format("2006-01-02"),
		End:     result.Range.End.Format("2006-01-02"),
		Title:   result.Weights.Title(),
		Weights: result.Weights,
		Summary: summary,
		Index:   result.Index,
	})
}

// GetIndexChart godoc
// @Summary      T5 index chart
// @Description  Renders the composite index as a PNG line chart
// @Tags         index
// @Produce      png
// @Param        source  query  string  false  "Data source (coingecko, yahoo)"
// @Param        start   query  string  false  "Start date YYYY-MM-DD"
// @Param        end     query  string  false  "End date YYYY-MM-DD"
// @Success      200  {file}    binary
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/index/chart.png [get]
func (h *Handler) GetIndexChart(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-index-chart")
	defer span.End()

	req, err := h.indexRequest(c)
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}

	result, err := h.indexService.Build(ctx, req)
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}

	png, err := render.IndexChartPNG(result.Index, result.Weights, render.DefaultChartOptions())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GetAssetRows godoc
// @Summary      Per-asset price rows
// @Description  Returns the first and last N daily prices of every weighted asset
// @Tags         index
// @Produce      json
// @Param        source  query  string  false  "Data source (coingecko, yahoo)"
// @Param        start   query  string  false  "Start date YYYY-MM-DD"
// @Param        end     query  string  false  "End date YYYY-MM-DD"
// @Param        rows    query  int     false  "Rows from each end (max 100)"  default(10)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/index/assets [get]
func (h *Handler) GetAssetRows(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-asset-rows")
	defer span.End()

	req, err := h.indexRequest(c)
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}
	n := boundedInt(c.Query("rows"), render.DefaultRows, 100)

	result, err := h.indexService.Build(ctx, req)
	if err != nil {
		c.JSON(buildStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source": result.Source,
		"rows":   n,
		"assets": collectRows(result.Weights, result.Series, n),
	})
}

func collectRows(weights domain.WeightTable, series map[string]domain.AssetSeries, n int) []assetRows {
	out := make([]assetRows, 0, len(series))
	for _, symbol := range weights.Active() {
		s, ok := series[symbol]
		if !ok {
			continue
		}
		out = append(out, assetRows{
			Symbol: symbol,
			Weight: weights[symbol],
			Points: s.Len(),
			Head:   render.Head(s, n),
			Tail:   render.Tail(s, n),
		})
	}
	return out
}
