package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"

	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertSeriesQueuesOneRowPerDay(t *testing.T) {
	pool := &fakePool{}
	repo := NewPriceRepository(pool, testTracer)

	series, err := domain.NewAssetSeries("BTC", []domain.Observation{
		{Time: day(1), Price: 84000},
		{Time: day(2), Price: 86000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.UpsertSeries(context.Background(), "coingecko", series); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.batched) != 2 {
		t.Fatalf("expected 2 queued rows, got %d", len(pool.batched))
	}
	first := pool.batched[0]
	if !strings.Contains(first.sql, "ON CONFLICT (source, symbol, day)") {
		t.Fatalf("expected upsert statement, got %s", first.sql)
	}
	if first.args[0] != "coingecko" || first.args[1] != "BTC" || first.args[3] != 84000.0 {
		t.Fatalf("unexpected args: %v", first.args)
	}
}

func TestUpsertSeriesSkipsEmpty(t *testing.T) {
	pool := &fakePool{}
	repo := NewPriceRepository(pool, testTracer)

	if err := repo.UpsertSeries(context.Background(), "yahoo", domain.AssetSeries{Symbol: "ADA"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.batched) != 0 {
		t.Fatalf("expected no statements, got %d", len(pool.batched))
	}
}

func TestUpsertSeriesPropagatesBatchError(t *testing.T) {
	pool := &fakePool{batchErr: errors.New("constraint violation")}
	repo := NewPriceRepository(pool, testTracer)

	series, _ := domain.NewAssetSeries("SOL", []domain.Observation{{Time: day(1), Price: 140}})
	if err := repo.UpsertSeries(context.Background(), "yahoo", series); err == nil {
		t.Fatal("expected batch error")
	}
}

func TestGetSeries(t *testing.T) {
	pool := &fakePool{rows: [][]any{
		{day(1), 2.1},
		{day(2), 2.3},
	}}
	repo := NewPriceRepository(pool, testTracer)

	got, err := repo.GetSeries(context.Background(), "coingecko", "XRP", daterange.New(day(1), day(5)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Symbol != "XRP" || got.Len() != 2 || got.Points[1].Price != 2.3 {
		t.Fatalf("unexpected series: %+v", got)
	}
	args := pool.queries[0].args
	if args[0] != "coingecko" || args[1] != "XRP" {
		t.Fatalf("unexpected query args: %v", args)
	}
}

func TestGetSeriesQueryError(t *testing.T) {
	pool := &fakePool{queryErr: errors.New("timeout")}
	repo := NewPriceRepository(pool, testTracer)

	if _, err := repo.GetSeries(context.Background(), "coingecko", "XRP", daterange.New(day(1), day(5))); err == nil {
		t.Fatal("expected query error")
	}
}
