package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-attractions/internal/config"
	"ms-attractions/internal/database/migrations"
	"ms-attractions/internal/logger"
)

const maxConnectAttempts = 5

// Open connects to the configured database, retrying while it comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := connectWithRetry(ctx, "postgres", cfg.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		log.Info("DATABASE", "✅ PostgreSQL connection successful")
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case "sqlite":
		sqldb, err := connectWithRetry(ctx, sqliteshim.ShimName, cfg.SQLiteDSN, log)
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection keeps transactions from failing with SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", "✅ SQLite connection successful")
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func connectWithRetry(ctx context.Context, driver, dsn string, log *logger.Logger) (*sql.DB, error) {
	var sqldb *sql.DB
	var err error

	for i := 0; i < maxConnectAttempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", driver, i+1, maxConnectAttempts))
		sqldb, err = sql.Open(driver, dsn)
		if err == nil {
			if err = sqldb.PingContext(ctx); err == nil {
				return sqldb, nil
			}
			sqldb.Close()
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", driver, err))
		if i < maxConnectAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", driver, maxConnectAttempts, err)
}

// Prepare brings the schema up to date: embedded SQL migrations on postgres, bun DDL on sqlite.
func Prepare(ctx context.Context, db *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	if cfg.Driver == "postgres" {
		runner := migrations.NewRunner(cfg.PostgresDSN, log)
		defer runner.Close()
		return runner.MigrateUp()
	}
	return CreateSchema(ctx, db)
}
