package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"t5index/internal/daterange"
	"t5index/internal/index"
	"t5index/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer       trace.Tracer
	indexService *service.IndexService
	apiKey       string
}

func New(tracer trace.Tracer, indexService *service.IndexService, apiKey string) *Handler {
	return &Handler{
		tracer:       tracer,
		indexService: indexService,
		apiKey:       apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(dashboardTemplate)

	r.GET("/health", h.Health)
	r.GET("/", h.Dashboard)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", APIKeyAuth(h.apiKey))
	api.GET("/weights", h.GetWeights)
	api.GET("/sources", h.GetSources)
	api.GET("/index", h.GetIndex)
	api.GET("/index/chart.png", h.GetIndexChart)
	api.GET("/index/assets", h.GetAssetRows)
	api.GET("/runs", h.GetRuns)
}

// indexRequest reads source, start and end from the query. Without dates
// the window is the service default for the source.
func (h *Handler) indexRequest(c *gin.Context) (service.IndexRequest, error) {
	source := strings.ToLower(strings.TrimSpace(c.Query("source")))
	start, end := c.Query("start"), c.Query("end")

	if start == "" && end == "" {
		r, err := h.indexService.DefaultRange(source)
		if err != nil {
			return service.IndexRequest{}, err
		}
		return service.IndexRequest{Source: source, Range: r}, nil
	}

	r, err := daterange.Parse(start, end)
	if err != nil {
		return service.IndexRequest{}, err
	}
	return service.IndexRequest{Source: source, Range: r}, nil
}

// buildStatus maps pipeline errors onto HTTP status codes.
func buildStatus(err error) int {
	var fetchErr *service.FetchError
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, index.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrArchiveNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func boundedInt(raw string, fallback, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}
