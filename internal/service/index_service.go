package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"
	"t5index/internal/index"
	"t5index/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownSource        = errors.New("unknown data source")
	ErrArchiveNotConfigured = errors.New("price archive not configured")
)

// SeriesSource fetches daily USD closes for one symbol over a range.
type SeriesSource interface {
	Name() string
	MaxLookbackDays() int
	FetchDailySeries(ctx context.Context, symbol string, r daterange.Range) (domain.AssetSeries, error)
}

type SeriesCache interface {
	Get(ctx context.Context, source, symbol string, r daterange.Range) (domain.AssetSeries, bool, error)
	Set(ctx context.Context, source string, r daterange.Range, series domain.AssetSeries) error
}

// PriceArchive persists fetched closes and serves them back when the
// source is unavailable.
type PriceArchive interface {
	UpsertSeries(ctx context.Context, source string, series domain.AssetSeries) error
	GetSeries(ctx context.Context, source, symbol string, r daterange.Range) (domain.AssetSeries, error)
}

type RunStore interface {
	RecordRun(ctx context.Context, run domain.IndexRun) error
	ListRuns(ctx context.Context, limit int) ([]domain.IndexRun, error)
}

// FetchError reports which symbol a source failed to deliver.
type FetchError struct {
	Symbol string
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Symbol, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IndexRequest selects the source and window of one build. An empty Source
// means the configured default. Record stores the build in the run history;
// chart, table and warm-up builds leave it unset.
type IndexRequest struct {
	Source string
	Range  daterange.Range
	Record bool
}

type IndexResult struct {
	ID      uuid.UUID                     `json:"id"`
	Source  string                        `json:"source"`
	Range   daterange.Range               `json:"range"`
	Weights domain.WeightTable            `json:"weights"`
	Series  map[string]domain.AssetSeries `json:"-"`
	Index   domain.IndexSeries            `json:"index"`
	BuiltAt time.Time                     `json:"built_at"`
}

type SourceInfo struct {
	Name            string `json:"name"`
	MaxLookbackDays int    `json:"max_lookback_days"`
	Default         bool   `json:"default"`
}

// DefaultWindowDays is the undated window length before the source
// lookback cap applies.
const DefaultWindowDays = 365

// IndexService runs validate, fetch, align and build for one request.
type IndexService struct {
	tracer        trace.Tracer
	weights       domain.WeightTable
	sources       map[string]SeriesSource
	defaultSource string
	cache         SeriesCache
	archive       PriceArchive
	runs          RunStore
	defaultWindow int
	now           func() time.Time
}

func NewIndexService(tracer trace.Tracer, weights domain.WeightTable, defaultSource string, sources ...SeriesSource) *IndexService {
	byName := make(map[string]SeriesSource, len(sources))
	for _, src := range sources {
		byName[src.Name()] = src
	}
	return &IndexService{
		tracer:        tracer,
		weights:       weights.Clone(),
		sources:       byName,
		defaultSource: defaultSource,
		defaultWindow: DefaultWindowDays,
		now:           time.Now,
	}
}

// WithCache enables read-through memoization of fetched series.
func (s *IndexService) WithCache(c SeriesCache) *IndexService {
	s.cache = c
	return s
}

// WithArchive enables best-effort persistence of fetched series and runs.
func (s *IndexService) WithArchive(prices PriceArchive, runs RunStore) *IndexService {
	s.archive = prices
	s.runs = runs
	return s
}

// Status reports which optional collaborators are wired.
func (s *IndexService) Status() (cacheEnabled, archiveEnabled bool) {
	return s.cache != nil, s.runs != nil
}

// WithDefaultWindow sets the length of the window used when a request
// carries no dates. Non-positive values are ignored.
func (s *IndexService) WithDefaultWindow(days int) *IndexService {
	if days > 0 {
		s.defaultWindow = days
	}
	return s
}

// DefaultRange is the undated window for source (empty means the default
// source): the default window capped by the source lookback, ending today.
// Every surface and the cache warmer use it so their cache keys agree.
func (s *IndexService) DefaultRange(source string) (daterange.Range, error) {
	src, err := s.resolve(source)
	if err != nil {
		return daterange.Range{}, err
	}
	return daterange.Default(min(s.defaultWindow, src.MaxLookbackDays()), s.now()), nil
}

func (s *IndexService) Weights() domain.WeightTable {
	return s.weights.Clone()
}

func (s *IndexService) DefaultSource() string {
	return s.defaultSource
}

// Sources lists the configured sources by name.
func (s *IndexService) Sources() []SourceInfo {
	out := make([]SourceInfo, 0, len(s.sources))
	for name, src := range s.sources {
		out = append(out, SourceInfo{
			Name:            name,
			MaxLookbackDays: src.MaxLookbackDays(),
			Default:         name == s.defaultSource,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MaxLookbackDays reports the lookback limit of source, or of the default
// source when source is empty.
func (s *IndexService) MaxLookbackDays(source string) (int, error) {
	src, err := s.resolve(source)
	if err != nil {
		return 0, err
	}
	return src.MaxLookbackDays(), nil
}

// Build validates req, fetches every weighted asset and builds the index.
// Range problems wrap daterange.ErrInvalidRange, builder problems wrap
// index.ErrInvalidInput and source failures are *FetchError.
func (s *IndexService) Build(ctx context.Context, req IndexRequest) (*IndexResult, error) {
	ctx, span := s.tracer.Start(ctx, "index-service.build")
	defer span.End()

	src, err := s.resolve(req.Source)
	if err != nil {
		metrics.IndexBuilds.WithLabelValues(req.Source, "unknown_source").Inc()
		return nil, err
	}
	name := src.Name()
	span.SetAttributes(
		attribute.String("source", name),
		attribute.String("range", req.Range.String()),
	)

	started := time.Now()
	defer func() {
		metrics.IndexBuildDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}()

	if err := daterange.Validate(req.Range, src.MaxLookbackDays(), s.now()); err != nil {
		metrics.IndexBuilds.WithLabelValues(name, "invalid_range").Inc()
		return nil, err
	}
	if err := index.ValidateWeights(s.weights); err != nil {
		metrics.IndexBuilds.WithLabelValues(name, "invalid_input").Inc()
		return nil, err
	}

	series, fetched, err := s.fetchAll(ctx, src, req.Range)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		metrics.IndexBuilds.WithLabelValues(name, "fetch_error").Inc()
		return nil, err
	}
	s.archiveSeries(ctx, name, fetched)

	idx, err := index.BuildIndex(series, s.weights)
	if err != nil {
		metrics.IndexBuilds.WithLabelValues(name, "invalid_input").Inc()
		return nil, err
	}

	result := &IndexResult{
		ID:      uuid.New(),
		Source:  name,
		Range:   req.Range,
		Weights: s.weights.Clone(),
		Series:  series,
		Index:   idx,
		BuiltAt: s.now().UTC(),
	}
	if req.Record {
		s.recordRun(ctx, result)
	}

	metrics.IndexBuilds.WithLabelValues(name, "ok").Inc()
	log.Info().
		Str("source", name).
		Str("range", req.Range.String()).
		Int("points", len(idx)).
		Float64("last", idx[len(idx)-1].Value).
		Msg("index built")
	return result, nil
}

// ListRuns returns recently archived builds, newest first.
func (s *IndexService) ListRuns(ctx context.Context, limit int) ([]domain.IndexRun, error) {
	if s.runs == nil {
		return nil, ErrArchiveNotConfigured
	}
	ctx, span := s.tracer.Start(ctx, "index-service.list-runs")
	defer span.End()
	return s.runs.ListRuns(ctx, limit)
}

func (s *IndexService) resolve(name string) (SeriesSource, error) {
	if name == "" {
		name = s.defaultSource
	}
	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return src, nil
}

// fetchAll loads every active symbol concurrently. fetched holds only the
// series that came from the source rather than the cache.
func (s *IndexService) fetchAll(ctx context.Context, src SeriesSource, r daterange.Range) (all, fetched map[string]domain.AssetSeries, err error) {
	symbols := s.weights.Active()
	all = make(map[string]domain.AssetSeries, len(symbols))
	fetched = make(map[string]domain.AssetSeries, len(symbols))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		g.Go(func() error {
			series, fromSource, err := s.fetchSeries(gctx, src, symbol, r)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			all[symbol] = series
			if fromSource {
				fetched[symbol] = series
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return all, fetched, nil
}

func (s *IndexService) fetchSeries(ctx context.Context, src SeriesSource, symbol string, r daterange.Range) (domain.AssetSeries, bool, error) {
	name := src.Name()
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, name, symbol, r)
		if err != nil {
			log.Warn().Err(err).Str("source", name).Str("symbol", symbol).Msg("series cache read failed")
		}
		if ok {
			return cached, false, nil
		}
	}

	series, err := src.FetchDailySeries(ctx, symbol, r)
	if err != nil {
		if archived, ok := s.archivedSeries(ctx, name, symbol, r); ok {
			log.Warn().Err(err).Str("source", name).Str("symbol", symbol).Int("points", archived.Len()).
				Msg("source failed, serving archived closes")
			return archived, false, nil
		}
		return domain.AssetSeries{}, false, &FetchError{Symbol: symbol, Source: name, Err: err}
	}

	if s.cache != nil && series.Len() > 0 {
		if err := s.cache.Set(ctx, name, r, series); err != nil {
			log.Warn().Err(err).Str("source", name).Str("symbol", symbol).Msg("series cache write failed")
		}
	}
	return series, true, nil
}

// archivedSeries reads the archive when one is wired. Only a series that
// reaches the last day of r is used.
func (s *IndexService) archivedSeries(ctx context.Context, source, symbol string, r daterange.Range) (domain.AssetSeries, bool) {
	if s.archive == nil {
		return domain.AssetSeries{}, false
	}
	series, err := s.archive.GetSeries(ctx, source, symbol, r)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Str("symbol", symbol).Msg("archive read failed")
		return domain.AssetSeries{}, false
	}
	last, ok := series.Last()
	if !ok || last.Time.Before(r.End) {
		return domain.AssetSeries{}, false
	}
	return series, true
}

func (s *IndexService) archiveSeries(ctx context.Context, source string, fetched map[string]domain.AssetSeries) {
	if s.archive == nil {
		return
	}
	for symbol, series := range fetched {
		if err := s.archive.UpsertSeries(ctx, source, series); err != nil {
			log.Warn().Err(err).Str("source", source).Str("symbol", symbol).Msg("archive series failed")
		}
	}
}

func (s *IndexService) recordRun(ctx context.Context, result *IndexResult) {
	if s.runs == nil {
		return
	}
	run := domain.IndexRun{
		ID:         result.ID,
		Source:     result.Source,
		Start:      result.Range.Start,
		End:        result.Range.End,
		Points:     len(result.Index),
		FirstValue: result.Index[0].Value,
		LastValue:  result.Index[len(result.Index)-1].Value,
		Weights:    result.Weights,
		CreatedAt:  result.BuiltAt,
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("record index run failed")
	}
}
