package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/jmoiron/sqlx"

	"pdfshare-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// poolEnv mirrors Options; nil fields were not set in the environment.
type poolEnv struct {
	MaxOpenConns    *int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    *int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime *time.Duration `env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime *time.Duration `env:"CONN_MAX_IDLE_TIME"`
	PingTimeout     *time.Duration `env:"PING_TIMEOUT"`
}

// DefaultLambdaOptions keeps the pool small; every Lambda sandbox holds its own.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// OptionsFromEnv overrides defaults with DB_* env vars if present. A malformed
// value is logged and the defaults are kept.
func OptionsFromEnv(defaults Options) Options {
	var overrides poolEnv
	if err := env.ParseWithOptions(&overrides, env.Options{Prefix: "DB_"}); err != nil {
		telemetry.Warn("db.env.invalid", map[string]any{"error": err})
		return defaults
	}
	opts := defaults
	if overrides.MaxOpenConns != nil {
		opts.MaxOpenConns = *overrides.MaxOpenConns
	}
	if overrides.MaxIdleConns != nil {
		opts.MaxIdleConns = *overrides.MaxIdleConns
	}
	if overrides.ConnMaxLifetime != nil {
		opts.ConnMaxLifetime = *overrides.ConnMaxLifetime
	}
	if overrides.ConnMaxIdleTime != nil {
		opts.ConnMaxIdleTime = *overrides.ConnMaxIdleTime
	}
	if overrides.PingTimeout != nil {
		opts.PingTimeout = *overrides.PingTimeout
	}
	return opts
}

// Connect opens a *sql.DB using the provided DATABASE_URL and verifies connectivity.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

// ConnectX is Connect wrapped in sqlx for the repositories that scan into structs.
func ConnectX(ctx context.Context, databaseURL string, opts Options) (*sqlx.DB, error) {
	sqlDB, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	return Wrap(sqlDB), nil
}

// Wrap adapts an open *sql.DB for sqlx using the pgx bind style.
func Wrap(sqlDB *sql.DB) *sqlx.DB {
	return sqlx.NewDb(sqlDB, "pgx")
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, label string) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}
