package job

import (
	"context"
	"sync/atomic"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/service"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// IndexBuilder is the part of the index service the warmer drives.
type IndexBuilder interface {
	Build(ctx context.Context, req service.IndexRequest) (*service.IndexResult, error)
	DefaultRange(source string) (daterange.Range, error)
}

// CacheWarmer rebuilds the default window on a schedule so dashboard
// requests for it are answered from the series cache.
type CacheWarmer struct {
	tracer   trace.Tracer
	builder  IndexBuilder
	source   string
	interval time.Duration
	runs     atomic.Int64
}

func NewCacheWarmer(tracer trace.Tracer, builder IndexBuilder, source string, intervalSecs int) *CacheWarmer {
	return &CacheWarmer{
		tracer:   tracer,
		builder:  builder,
		source:   source,
		interval: time.Duration(intervalSecs) * time.Second,
	}
}

// Start warms immediately and then on every tick. Blocks until ctx is
// cancelled.
func (w *CacheWarmer) Start(ctx context.Context) {
	log.Info().
		Str("source", w.source).
		Dur("interval", w.interval).
		Msg("cache warmer starting")

	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cache warmer stopped")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

// Runs reports how many warm cycles have completed, successful or not.
func (w *CacheWarmer) Runs() int64 {
	return w.runs.Load()
}

func (w *CacheWarmer) warm(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "cache-warmer.warm")
	defer span.End()
	defer w.runs.Add(1)

	r, err := w.builder.DefaultRange(w.source)
	if err != nil {
		log.Error().Err(err).Str("source", w.source).Msg("cache warm failed")
		return
	}
	req := service.IndexRequest{Source: w.source, Range: r}
	result, err := w.builder.Build(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("source", w.source).Str("range", req.Range.String()).Msg("cache warm failed")
		return
	}
	log.Debug().Str("source", result.Source).Int("points", len(result.Index)).Msg("cache warmed")
}
