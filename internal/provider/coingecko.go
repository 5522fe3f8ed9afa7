package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"

	// CoinGeckoName identifies the CoinGecko source in configs and cache keys.
	CoinGeckoName = "coingecko"
)

// CoinGeckoProvider fetches historical prices from the CoinGecko free API.
type CoinGeckoProvider struct {
	requester
	baseURL     string
	tracer      trace.Tracer
	maxLookback int
}

// NewCoinGeckoProvider creates a provider with built-in rate limiting.
// Rate limited to 8 requests per minute (one token every 7.5 seconds).
func NewCoinGeckoProvider(tracer trace.Tracer, maxLookbackDays int) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		requester: requester{
			source:  CoinGeckoName,
			client:  &http.Client{Timeout: 30 * time.Second},
			limiter: NewRateLimiter(8, 7500*time.Millisecond),
			breaker: newBreaker(CoinGeckoName),
		},
		baseURL:     coingeckoBaseURL,
		tracer:      tracer,
		maxLookback: maxLookbackDays,
	}
}

func (p *CoinGeckoProvider) Name() string { return CoinGeckoName }

// MaxLookbackDays is the public API's history limit.
func (p *CoinGeckoProvider) MaxLookbackDays() int { return p.maxLookback }

// FetchDailySeries fetches market_chart/range for the window and collapses
// it to one price per UTC day. CoinGecko returns hourly points for windows
// under ~90 days and daily points beyond that.
func (p *CoinGeckoProvider) FetchDailySeries(ctx context.Context, symbol string, r daterange.Range) (domain.AssetSeries, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-daily-series")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("range", r.Key()))

	cgID, ok := domain.CoinGeckoID[symbol]
	if !ok {
		return domain.AssetSeries{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	url := fmt.Sprintf("%s/coins/%s/market_chart/range?vs_currency=usd&from=%d&to=%d",
		p.baseURL, cgID, r.Start.Unix(), r.EndOfDay().Unix())

	body, err := p.get(ctx, url)
	if err != nil {
		return domain.AssetSeries{}, fmt.Errorf("fetch market chart for %s: %w", symbol, err)
	}

	// Response shape: {"prices": [[1706918400000, 43000.12], ...], "total_volumes": [...]}
	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.AssetSeries{}, fmt.Errorf("parse market chart for %s: %w", symbol, err)
	}

	points := make([]pricePoint, 0, len(raw.Prices))
	for _, pt := range raw.Prices {
		if len(pt) < 2 {
			continue
		}
		points = append(points, pricePoint{ts: time.UnixMilli(int64(pt[0])).UTC(), price: pt[1]})
	}

	series, err := collapseDaily(symbol, points, r)
	if err != nil {
		return domain.AssetSeries{}, err
	}
	if series.Len() == 0 {
		return domain.AssetSeries{}, fmt.Errorf("%s %s: %w", CoinGeckoName, symbol, ErrNoData)
	}
	span.SetAttributes(attribute.Int("points", series.Len()))
	return series, nil
}
