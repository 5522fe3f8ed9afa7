package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"t5index/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = func(ctx context.Context, dsn string) (migrationDB, func(), error) {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
)

var errNoMigrations = errors.New("no migration files found")

// migrationDB is the part of pgxpool.Pool the migrator uses.
type migrationDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

type migrator struct {
	db         migrationDB
	migrations []migration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var m *migrator
	var closeDB func()

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the embedded Postgres schema for the price archive",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnvFunc()
			logging.Init(os.Getenv("LOG_LEVEL"))

			dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
			if dsn == "" {
				return errors.New("DATABASE_URL is required")
			}
			migrations, err := loadMigrations(migrationsFS)
			if err != nil {
				return fmt.Errorf("load migrations: %w", err)
			}
			db, closeFn, err := openPool(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			closeDB = closeFn
			m = &migrator{db: db, migrations: migrations}
			return m.ensureTable(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeDB != nil {
				closeDB()
			}
		},
	}
	root.SetOut(out)

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := m.up(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("applied", applied).Msg("migrations up complete")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the latest migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid down steps %q", args[0])
				}
				steps = n
			}
			rolledBack, err := m.down(cmd.Context(), steps)
			if err != nil {
				return err
			}
			log.Info().Int("rolled_back", rolledBack).Msg("migrations down complete")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version of every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := m.appliedVersions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(out, statusReport(m.migrations, applied))
			return nil
		},
	})
	return root
}

// loadMigrations pairs NNNNNN_name.up.sql and NNNNNN_name.down.sql files.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errNoMigrations
	}

	byVersion := make(map[int64]*migration)
	for _, p := range paths {
		version, name, direction, err := parseMigrationName(path.Base(p))
		if err != nil {
			return nil, err
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		m, ok := byVersion[version]
		switch {
		case !ok:
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		case m.Name != name:
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == "down" {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseMigrationName splits "000001_daily_prices.up.sql".
func parseMigrationName(file string) (int64, string, string, error) {
	bad := fmt.Errorf("invalid migration filename: %s", file)

	stem, ok := strings.CutSuffix(file, ".sql")
	if !ok {
		return 0, "", "", bad
	}
	dot := strings.LastIndexByte(stem, '.')
	if dot < 0 {
		return 0, "", "", bad
	}
	stem, direction := stem[:dot], stem[dot+1:]
	if direction != "up" && direction != "down" {
		return 0, "", "", bad
	}
	digits, name, ok := strings.Cut(stem, "_")
	if !ok || name == "" || strings.Trim(name, "abcdefghijklmnopqrstuvwxyz0123456789_") != "" {
		return 0, "", "", bad
	}
	version, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || version <= 0 {
		return 0, "", "", bad
	}
	return version, name, direction, nil
}

func statusReport(migrations []migration, applied map[int64]bool) string {
	var sb strings.Builder
	for _, m := range migrations {
		state := "pending"
		if applied[m.Version] {
			state = "applied"
		}
		fmt.Fprintf(&sb, "%06d %-20s %s\n", m.Version, m.Name, state)
	}
	return sb.String()
}

func (m *migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	return nil
}

func (m *migrator) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := m.db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *migrator) up(ctx context.Context) (int, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if applied[mig.Version] {
			continue
		}
		err := m.inTx(ctx, mig.UpSQL, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
		if err != nil {
			return count, fmt.Errorf("version %d up: %w", mig.Version, err)
		}
		log.Debug().Int64("version", mig.Version).Str("name", mig.Name).Msg("migration applied")
		count++
	}
	return count, nil
}

func (m *migrator) down(ctx context.Context, steps int) (int, error) {
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(m.migrations) - 1; i >= 0 && count < steps; i-- {
		mig := m.migrations[i]
		if !applied[mig.Version] {
			continue
		}
		err := m.inTx(ctx, mig.DownSQL, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version)
		if err != nil {
			return count, fmt.Errorf("version %d down: %w", mig.Version, err)
		}
		log.Debug().Int64("version", mig.Version).Str("name", mig.Name).Msg("migration rolled back")
		count++
	}
	return count, nil
}

// inTx runs a migration body and its bookkeeping statement atomically.
func (m *migrator) inTx(ctx context.Context, body, bookkeeping string, args ...any) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, body); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if _, err := tx.Exec(ctx, bookkeeping, args...); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
