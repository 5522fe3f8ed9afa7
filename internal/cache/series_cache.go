package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// RedisClient is the subset of *redis.Client the series cache needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SeriesCache memoizes fetched AssetSeries per source, symbol and window.
// Entries expire after ttl; nothing else invalidates them.
type SeriesCache struct {
	redis  RedisClient
	tracer trace.Tracer
	ttl    time.Duration
}

func NewSeriesCache(tracer trace.Tracer, client RedisClient, ttl time.Duration) *SeriesCache {
	return &SeriesCache{redis: client, tracer: tracer, ttl: ttl}
}

// SeriesKey builds the cache key for one fetch.
func SeriesKey(source, symbol string, r daterange.Range) string {
	return fmt.Sprintf("series:%s:%s:%s", source, symbol, r.Key())
}

// Get returns the cached series. ok is false on a miss.
func (c *SeriesCache) Get(ctx context.Context, source, symbol string, r daterange.Range) (domain.AssetSeries, bool, error) {
	ctx, span := c.tracer.Start(ctx, "series-cache.get")
	defer span.End()

	data, err := c.redis.Get(ctx, SeriesKey(source, symbol, r)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.SeriesCacheLookups.WithLabelValues("miss").Inc()
		return domain.AssetSeries{}, false, nil
	}
	if err != nil {
		metrics.SeriesCacheLookups.WithLabelValues("error").Inc()
		return domain.AssetSeries{}, false, err
	}

	var decoded domain.AssetSeries
	if err := json.Unmarshal(data, &decoded); err != nil {
		metrics.SeriesCacheLookups.WithLabelValues("error").Inc()
		return domain.AssetSeries{}, false, fmt.Errorf("decode cached series: %w", err)
	}
	series, err := domain.NewAssetSeries(symbol, decoded.Points)
	if err != nil {
		metrics.SeriesCacheLookups.WithLabelValues("error").Inc()
		return domain.AssetSeries{}, false, fmt.Errorf("cached series: %w", err)
	}
	metrics.SeriesCacheLookups.WithLabelValues("hit").Inc()
	return series, true, nil
}

// Set stores series under its source, symbol and window.
func (c *SeriesCache) Set(ctx context.Context, source string, r daterange.Range, series domain.AssetSeries) error {
	ctx, span := c.tracer.Start(ctx, "series-cache.set")
	defer span.End()

	data, err := json.Marshal(series)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, SeriesKey(source, series.Symbol, r), data, c.ttl).Err()
}
