package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"task_manager/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Handle is an open connection to whichever engine DATABASE_URL selected.
// Exactly one of Pool and SQL is set.
type Handle struct {
	Driver Driver
	Pool   *pgxpool.Pool
	SQL    *sql.DB
}

// DriverFor picks the engine from a DSN. postgres:// and postgresql:// go to
// pgx; sqlite://<path>, file: URIs and :memory: go to SQLite.
func DriverFor(dsn string) (Driver, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return DriverSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", dsn)
	}
}

// Open connects and pings the database named by dsn.
func Open(ctx context.Context, dsn string) (*Handle, error) {
	driver, target, err := DriverFor(dsn)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Info("database connected", "driver", driver)
		return &Handle{Driver: driver, Pool: pool}, nil
	default:
		sqlDB, err := OpenSQLite(target)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected", "driver", driver, "path", target)
		return &Handle{Driver: driver, SQL: sqlDB}, nil
	}
}

// OpenSQLite opens a SQLite database with foreign keys enforced.
func OpenSQLite(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; also keeps :memory: databases on a single connection
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

func (h *Handle) Ping(ctx context.Context) error {
	if h.Pool != nil {
		return h.Pool.Ping(ctx)
	}
	return h.SQL.PingContext(ctx)
}

func (h *Handle) Close() {
	if h.Pool != nil {
		h.Pool.Close()
		return
	}
	_ = h.SQL.Close()
}
