package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"blog_backend/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// DB is a connection pool that knows which SQL dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect

	driverName string
	dsn        string
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Connect opens the store selected by cfg.DBDriver.
func Connect(cfg *config.Config) (*DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return OpenPostgres(cfg.PostgresDSN())
	}
}

func OpenPostgres(dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Println("INFO: Successfully connected to PostgreSQL database!")
	return &DB{DB: db, Dialect: Postgres, driverName: "pgx", dsn: dsn}, nil
}

func OpenSQLite(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Printf("INFO: Opened SQLite database at %s", path)
	return &DB{DB: db, Dialect: SQLite, driverName: "sqlite", dsn: dsn}, nil
}

// Rebind rewrites a query written with ? placeholders for this dialect.
func (db *DB) Rebind(query string) string {
	return db.Dialect.Rebind(query)
}

// Q returns tx when it is non-nil, otherwise the pool.
func (db *DB) Q(tx *sql.Tx) Querier {
	if tx != nil {
		return tx
	}
	return db.DB
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	log.Println("INFO: Database connection closed.")
	return db.DB.Close()
}
