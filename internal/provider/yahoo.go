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
	yahooBaseURL = "https://query1.finance.yahoo.com"

	// YahooName identifies the Yahoo Finance source in configs and cache keys.
	YahooName = "yahoo"
)

// yahooChartResp mirrors the v8 chart response, trimmed to daily closes.
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider fetches daily closes from the Yahoo Finance chart API.
type YahooProvider struct {
	requester
	baseURL     string
	tracer      trace.Tracer
	maxLookback int
}

// NewYahooProvider creates a provider limited to one request per second
// with bursts of five.
func NewYahooProvider(tracer trace.Tracer, maxLookbackDays int) *YahooProvider {
	return &YahooProvider{
		requester: requester{
			source:  YahooName,
			client:  &http.Client{Timeout: 30 * time.Second},
			limiter: NewRateLimiter(5, time.Second),
			breaker: newBreaker(YahooName),
			headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
			},
		},
		baseURL:     yahooBaseURL,
		tracer:      tracer,
		maxLookback: maxLookbackDays,
	}
}

func (p *YahooProvider) Name() string { return YahooName }

func (p *YahooProvider) MaxLookbackDays() int { return p.maxLookback }

// FetchDailySeries fetches 1d bars for the window. Days with a null close
// are skipped.
func (p *YahooProvider) FetchDailySeries(ctx context.Context, symbol string, r daterange.Range) (domain.AssetSeries, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-daily-series")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("range", r.Key()))

	ticker, ok := domain.YahooTicker[symbol]
	if !ok {
		return domain.AssetSeries{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits",
		p.baseURL, ticker, r.Start.Unix(), r.EndOfDay().Unix())

	body, err := p.get(ctx, url)
	if err != nil {
		return domain.AssetSeries{}, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}

	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return domain.AssetSeries{}, fmt.Errorf("parse chart for %s: %w", symbol, err)
	}
	if yc.Chart.Error != nil {
		return domain.AssetSeries{}, fmt.Errorf("yahoo %s: %s: %s", symbol, yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return domain.AssetSeries{}, fmt.Errorf("%s %s: %w", YahooName, symbol, ErrNoData)
	}

	ts := yc.Chart.Result[0].Timestamp
	closes := yc.Chart.Result[0].Indicators.Quote[0].Close
	points := make([]pricePoint, 0, len(ts))
	for i, t := range ts {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, pricePoint{ts: time.Unix(t, 0).UTC(), price: *closes[i]})
	}

	series, err := collapseDaily(symbol, points, r)
	if err != nil {
		return domain.AssetSeries{}, err
	}
	if series.Len() == 0 {
		return domain.AssetSeries{}, fmt.Errorf("%s %s: %w", YahooName, symbol, ErrNoData)
	}
	span.SetAttributes(attribute.Int("points", series.Len()))
	return series, nil
}
