package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace/noop"
)

// stubSource returns prices laid out day by day from the requested start.
type stubSource struct {
	name   string
	prices []float64
	err    error
}

func (s stubSource) Name() string         { return s.name }
func (s stubSource) MaxLookbackDays() int { return 365 }

func (s stubSource) FetchDailySeries(ctx context.Context, symbol string, r daterange.Range) (domain.AssetSeries, error) {
	if s.err != nil {
		return domain.AssetSeries{}, s.err
	}
	points := make([]domain.Observation, len(s.prices))
	for i, p := range s.prices {
		points[i] = domain.Observation{Time: r.Start.AddDate(0, 0, i), Price: p}
	}
	return domain.NewAssetSeries(symbol, points)
}

func newTestRouter(t *testing.T, apiKey string, sources ...service.SeriesSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracer := noop.NewTracerProvider().Tracer("handler-test")
	svc := service.NewIndexService(tracer, domain.DefaultWeights(), "coingecko", sources...)
	h := New(tracer, svc, apiKey)

	r := gin.New()
	r.Use(RequestID())
	h.RegisterRoutes(r)
	return r
}

func recentWindow() (string, string) {
	today := time.Now().UTC()
	return today.AddDate(0, 0, -5).Format("2006-01-02"), today.AddDate(0, 0, -1).Format("2006-01-02")
}

func get(r *gin.Engine, target string, headers ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func okSource() stubSource {
	return stubSource{name: "coingecko", prices: []float64{100, 110, 120}}
}

func TestGetIndex(t *testing.T) {
	r := newTestRouter(t, "", okSource())
	start, end := recentWindow()

	w := get(r, "/api/index?start="+start+"&end="+end)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Source  string `json:"source"`
		Start   string `json:"start"`
		Title   string `json:"title"`
		Summary struct {
			Last      float64 `json:"last"`
			ChangePct float64 `json:"change_pct"`
		} `json:"summary"`
		Index []domain.IndexPoint `json:"index"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Source != "coingecko" || body.Start != start {
		t.Fatalf("unexpected response: %+v", body)
	}
	if len(body.Index) != 3 || body.Index[0].Value != 1000 {
		t.Fatalf("unexpected index: %+v", body.Index)
	}
	if !strings.HasPrefix(body.Title, "BTC (50%)") {
		t.Fatalf("unexpected title: %s", body.Title)
	}
}

func TestGetIndexDefaultWindow(t *testing.T) {
	r := newTestRouter(t, "", okSource())

	w := get(r, "/api/index")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for default window, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetIndexErrors(t *testing.T) {
	start, end := recentWindow()
	tests := []struct {
		name   string
		source stubSource
		query  string
		want   int
	}{
		{"inverted range", okSource(), "?start=" + end + "&end=" + start, http.StatusBadRequest},
		{"bad date", okSource(), "?start=yesterday&end=" + end, http.StatusBadRequest},
		{"future end", okSource(), "?start=" + start + "&end=" + time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"), http.StatusBadRequest},
		{"too long", okSource(), "?start=" + time.Now().UTC().AddDate(-2, 0, 0).Format("2006-01-02") + "&end=" + end, http.StatusBadRequest},
		{"unknown source", okSource(), "?source=bloomberg&start=" + start + "&end=" + end, http.StatusBadRequest},
		{"unknown source default window", okSource(), "?source=bloomberg", http.StatusBadRequest},
		{"fetch failure", stubSource{name: "coingecko", err: errors.New("status 503")}, "?start=" + start + "&end=" + end, http.StatusBadGateway},
		{"empty series", stubSource{name: "coingecko"}, "?start=" + start + "&end=" + end, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, "", tt.source)
			w := get(r, "/api/index"+tt.query)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), "error") {
				t.Fatalf("expected error payload, got %s", w.Body.String())
			}
		})
	}
}

func TestGetIndexChart(t *testing.T) {
	r := newTestRouter(t, "", okSource())
	start, end := recentWindow()

	w := get(r, "/api/index/chart.png?start="+start+"&end="+end)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "\x89PNG") {
		t.Fatal("expected PNG body")
	}
}

func TestGetAssetRows(t *testing.T) {
	r := newTestRouter(t, "", okSource())
	start, end := recentWindow()

	w := get(r, "/api/index/assets?rows=2&start="+start+"&end="+end)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Assets []struct {
			Symbol string               `json:"symbol"`
			Head   []domain.Observation `json:"head"`
			Tail   []domain.Observation `json:"tail"`
		} `json:"assets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(body.Assets) != 5 || body.Assets[0].Symbol != "BTC" {
		t.Fatalf("unexpected assets: %+v", body.Assets)
	}
	if len(body.Assets[0].Head) != 2 || body.Assets[0].Tail[1].Price != 120 {
		t.Fatalf("unexpected rows: %+v", body.Assets[0])
	}
}

func TestGetWeightsAndSources(t *testing.T) {
	r := newTestRouter(t, "", okSource(), stubSource{name: "yahoo"})

	w := get(r, "/api/weights")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"BTC":0.5`) {
		t.Fatalf("unexpected weights response: %d %s", w.Code, w.Body.String())
	}

	w = get(r, "/api/sources")
	var body struct {
		Sources []service.SourceInfo `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(body.Sources) != 2 || body.Sources[0].Name != "coingecko" || !body.Sources[0].Default {
		t.Fatalf("unexpected sources: %+v", body.Sources)
	}
}

type memoryRuns struct {
	runs []domain.IndexRun
}

func (m *memoryRuns) UpsertSeries(ctx context.Context, source string, series domain.AssetSeries) error {
	return nil
}

func (m *memoryRuns) GetSeries(ctx context.Context, source, symbol string, r daterange.Range) (domain.AssetSeries, error) {
	return domain.AssetSeries{}, errors.New("not archived")
}

func (m *memoryRuns) RecordRun(ctx context.Context, run domain.IndexRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryRuns) ListRuns(ctx context.Context, limit int) ([]domain.IndexRun, error) {
	return m.runs, nil
}

func TestOnlyIndexEndpointRecordsRuns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := noop.NewTracerProvider().Tracer("handler-test")
	store := &memoryRuns{}
	svc := service.NewIndexService(tracer, domain.DefaultWeights(), "coingecko", okSource()).WithArchive(store, store)
	r := gin.New()
	New(tracer, svc, "").RegisterRoutes(r)
	start, end := recentWindow()
	query := "?start=" + start + "&end=" + end

	for _, path := range []string{"/api/index/chart.png", "/api/index/assets", "/"} {
		if w := get(r, path+query); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
	if len(store.runs) != 0 {
		t.Fatalf("expected no runs from chart, table or dashboard, got %d", len(store.runs))
	}

	if w := get(r, "/api/index"+query); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(store.runs) != 1 {
		t.Fatalf("expected one run from /api/index, got %d", len(store.runs))
	}

	w := get(r, "/api/runs")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), store.runs[0].ID.String()) {
		t.Fatalf("unexpected runs response: %d %s", w.Code, w.Body.String())
	}
}

func TestGetRunsWithoutArchive(t *testing.T) {
	r := newTestRouter(t, "", okSource())

	w := get(r, "/api/runs")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	r := newTestRouter(t, "", okSource())
	start, end := recentWindow()

	w := get(r, "/?start="+start+"&end="+end)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"data:image/png;base64,", "<h2>BTC</h2>", "<h2>ADA</h2>", "First 3 rows", `value="` + start + `"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}

func TestDashboardShowsOnlyError(t *testing.T) {
	r := newTestRouter(t, "", okSource())
	start, end := recentWindow()

	w := get(r, "/?start="+end+"&end="+start)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "end date is before start date") {
		t.Fatalf("expected error message, got %s", body)
	}
	if strings.Contains(body, "<img") || strings.Contains(body, "<table") {
		t.Fatal("error page must not render chart or tables")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	r := newTestRouter(t, "secret", okSource())

	if w := get(r, "/api/weights"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}
	if w := get(r, "/api/weights", "X-API-Key", "wrong"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", w.Code)
	}
	if w := get(r, "/api/weights", "X-API-Key", "secret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}
	if w := get(r, "/health"); w.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(t, "", okSource())

	w := get(r, "/health")
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}

	w = get(r, "/health", "X-Request-ID", "abc-123")
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %s", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, "", okSource())

	w := get(r, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("unexpected metrics response: %d", w.Code)
	}
}
