package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestYahoo(rt roundTripFunc) *YahooProvider {
	p := NewYahooProvider(testTracer, 730)
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: rt}
	p.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func TestYahooFetchDailySeries(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	body := `{"chart":{"result":[{"timestamp":[` +
		itoa(base.Unix()) + `,` + itoa(base.AddDate(0, 0, 1).Unix()) + `,` + itoa(base.AddDate(0, 0, 2).Unix()) +
		`],"indicators":{"quote":[{"close":[94419.76,null,96886.88]}]}}],"error":null}}`

	p := newTestYahoo(func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/v8/finance/chart/BTC-USD") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("interval") != "1d" {
			t.Fatalf("expected daily interval, got %s", req.URL.RawQuery)
		}
		if req.Header.Get("User-Agent") == "" {
			t.Fatal("expected a browser user agent")
		}
		return rawResponse(http.StatusOK, body), nil
	})

	series, err := p.FetchDailySeries(context.Background(), "BTC", testRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("null close should be skipped, got %+v", series.Points)
	}
	if series.Points[1].Price != 96886.88 {
		t.Fatalf("unexpected close: %v", series.Points[1].Price)
	}
}

func TestYahooChartError(t *testing.T) {
	p := newTestYahoo(func(*http.Request) (*http.Response, error) {
		return rawResponse(http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`), nil
	})
	_, err := p.FetchDailySeries(context.Background(), "ADA", testRange())
	if err == nil || !strings.Contains(err.Error(), "delisted") {
		t.Fatalf("expected upstream error message, got %v", err)
	}
}

func TestYahooUnknownSymbol(t *testing.T) {
	p := newTestYahoo(nil)
	if _, err := p.FetchDailySeries(context.Background(), "LINK", testRange()); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestProviderIdentity(t *testing.T) {
	y := NewYahooProvider(testTracer, 730)
	cg := NewCoinGeckoProvider(testTracer, 365)
	if y.Name() != YahooName || y.MaxLookbackDays() != 730 {
		t.Fatalf("unexpected yahoo identity: %s %d", y.Name(), y.MaxLookbackDays())
	}
	if cg.Name() != CoinGeckoName || cg.MaxLookbackDays() != 365 {
		t.Fatalf("unexpected coingecko identity: %s %d", cg.Name(), cg.MaxLookbackDays())
	}
}
