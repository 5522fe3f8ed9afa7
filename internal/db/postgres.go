package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Pool stays nil when no database is configured; the archive is optional.
var Pool *pgxpool.Pool

var (
	newPool = pgxpool.New
	pingDB  = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres opens Pool for dsn. Failures are logged and leave Pool nil.
func InitPostgres(ctx context.Context, dsn string) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		log.Info().Msg("DATABASE_URL not set, price archive disabled")
		return
	}

	pool, err := newPool(ctx, dsn)
	if err != nil {
		log.Error().Err(err).Msg("failed to create postgres pool, price archive disabled")
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pingDB(pingCtx, pool); err != nil {
		log.Error().Err(err).Msg("postgres unreachable, price archive disabled")
		pool.Close()
		return
	}

	Pool = pool
	log.Info().Msg("connected to Postgres")
}

// Close releases Pool if it was opened.
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
