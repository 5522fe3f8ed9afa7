package repository

import (
	"context"
	"time"

	"t5index/internal/daterange"
	"t5index/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PriceRepository archives daily closes per source in daily_prices.
type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

// UpsertSeries stores one row per observation day, overwriting earlier
// fetches of the same (source, symbol, day).
func (r *PriceRepository) UpsertSeries(ctx context.Context, source string, series domain.AssetSeries) error {
	if series.Len() == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "price-repo.upsert-series")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("symbol", series.Symbol),
		attribute.Int("points", series.Len()),
	)

	fetchedAt := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, p := range series.Points {
		batch.Queue(
			`INSERT INTO daily_prices (source, symbol, day, price_usd, fetched_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (source, symbol, day) DO UPDATE SET
			     price_usd = EXCLUDED.price_usd,
			     fetched_at = EXCLUDED.fetched_at`,
			source, series.Symbol, p.Time.UTC(), p.Price, fetchedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range series.Points {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetSeries reads the archived closes of symbol within r, ascending.
func (r *PriceRepository) GetSeries(ctx context.Context, source, symbol string, rng daterange.Range) (domain.AssetSeries, error) {
	ctx, span := r.tracer.Start(ctx, "price-repo.get-series")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT day, price_usd
		 FROM daily_prices
		 WHERE source = $1 AND symbol = $2 AND day >= $3 AND day <= $4
		 ORDER BY day ASC`,
		source, symbol, rng.Start, rng.End,
	)
	if err != nil {
		return domain.AssetSeries{}, err
	}
	defer rows.Close()

	var points []domain.Observation
	for rows.Next() {
		var day time.Time
		var price float64
		if err := rows.Scan(&day, &price); err != nil {
			return domain.AssetSeries{}, err
		}
		points = append(points, domain.Observation{Time: day.UTC(), Price: price})
	}
	if err := rows.Err(); err != nil {
		return domain.AssetSeries{}, err
	}
	return domain.NewAssetSeries(symbol, points)
}
