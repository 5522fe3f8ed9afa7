package provider

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func rawResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestCollapseDailyDropsInvalidPrices(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []pricePoint{
		{ts: base.Add(26 * time.Hour), price: 7},
		{ts: base.Add(2 * time.Hour), price: 5},
		{ts: base.Add(3 * time.Hour), price: 0},
		{ts: base.Add(4 * time.Hour), price: math.NaN()},
		{ts: base.Add(50 * time.Hour), price: -1},
	}

	series, err := collapseDaily("SOL", points, testRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 days, got %+v", series.Points)
	}
	if series.Points[0].Price != 5 || series.Points[1].Price != 7 {
		t.Fatalf("unexpected prices: %+v", series.Points)
	}
}

func TestCollapseDailyEmpty(t *testing.T) {
	series, err := collapseDaily("XRP", nil, testRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 0 || series.Symbol != "XRP" {
		t.Fatalf("expected empty series, got %+v", series)
	}
}
