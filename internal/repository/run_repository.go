package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"t5index/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const defaultRunLimit = 20

type RunRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRunRepository(pool PgxPool, tracer trace.Tracer) *RunRepository {
	return &RunRepository{pool: pool, tracer: tracer}
}

func (r *RunRepository) RecordRun(ctx context.Context, run domain.IndexRun) error {
	ctx, span := r.tracer.Start(ctx, "run-repo.record-run")
	defer span.End()

	weights, err := json.Marshal(run.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO index_runs (id, source, start_day, end_day, points, first_value, last_value, weights, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Source, run.Start, run.End, run.Points, run.FirstValue, run.LastValue, weights, run.CreatedAt,
	)
	return err
}

// ListRuns returns the most recent runs first. limit <= 0 uses a default.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.IndexRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	ctx, span := r.tracer.Start(ctx, "run-repo.list-runs")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, source, start_day, end_day, points, first_value, last_value, weights, created_at
		 FROM index_runs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []domain.IndexRun{}
	for rows.Next() {
		var run domain.IndexRun
		var weights []byte
		var createdAt time.Time
		if err := rows.Scan(&run.ID, &run.Source, &run.Start, &run.End, &run.Points,
			&run.FirstValue, &run.LastValue, &weights, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(weights, &run.Weights); err != nil {
			return nil, fmt.Errorf("decode weights of run %s: %w", run.ID, err)
		}
		run.Start = run.Start.UTC()
		run.End = run.End.UTC()
		run.CreatedAt = createdAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
