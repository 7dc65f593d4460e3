package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver for the local fallback store

	appconfig "github.com/GTDGit/muni_commerce/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConnectResult reports which store was opened. FallbackReason is set when the
// primary PostgreSQL store was unreachable and the SQLite file was used instead.
type ConnectResult struct {
	DB             *sqlx.DB
	Driver         string
	FallbackReason error
}

// FellBack reports whether the local fallback store is in use.
func (r *ConnectResult) FellBack() bool {
	return r.FallbackReason != nil
}

// Connect opens the configured store. With DB_DRIVER=postgres it retries a few
// times and then falls back to the SQLite file at cfg.FallbackPath, recording
// why. The caller decides whether running on the fallback is acceptable.
func Connect(cfg *appconfig.DatabaseConfig) (*ConnectResult, error) {
	if cfg == nil {
		return nil, errors.New("nil database config")
	}

	if cfg.Driver == DriverSQLite {
		db, err := OpenSQLite(cfg.FallbackPath)
		if err != nil {
			return nil, err
		}
		return &ConnectResult{DB: db, Driver: DriverSQLite}, nil
	}

	db, pgErr := ConnectPostgres(cfg)
	if pgErr == nil {
		return &ConnectResult{DB: db, Driver: DriverPostgres}, nil
	}

	log.Warn().Err(pgErr).Str("path", cfg.FallbackPath).Msg("postgres unreachable, falling back to sqlite")
	db, err := OpenSQLite(cfg.FallbackPath)
	if err != nil {
		return nil, fmt.Errorf("postgres: %v; sqlite fallback: %w", pgErr, err)
	}
	return &ConnectResult{DB: db, Driver: DriverSQLite, FallbackReason: pgErr}, nil
}

// ConnectPostgres establishes a PostgreSQL connection using the provided configuration.
// It applies a small retry strategy to handle transient bootstrapping issues
// (e.g., DB container starting up). The returned *sqlx.DB has pool settings
// pre-configured and is pinged before returning.
func ConnectPostgres(cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	// Retry policy: up to 5 attempts, exponential backoff starting at 500ms.
	const (
		maxAttempts = 5
		baseDelay   = 500 * time.Millisecond
	)

	var db *sqlx.DB
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, lastErr = sqlx.Open(DriverPostgres, dsn)
		if lastErr != nil {
			sleepWithBackoff(attempt, baseDelay)
			continue
		}

		setPool(db.DB)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return db, nil
		}

		_ = db.Close()
		sleepWithBackoff(attempt, baseDelay)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

// OpenSQLite opens (creating if needed) the SQLite file at path.
// A single connection is kept so that writes serialise inside the process.
func OpenSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// setPool configures the connection pool for the database.
func setPool(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// sleepWithBackoff sleeps for an exponentially increasing duration.
func sleepWithBackoff(attempt int, base time.Duration) {
	// Simple exponential backoff: base * 2^(attempt-1), capped to 5s.
	d := base << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	time.Sleep(d)
}
