package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies the embedded schema for the pool's dialect. It runs on a
// dedicated connection pool because the migrate driver closes its database
// when done.
func (db *DB) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+db.Dialect.Name())
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	conn, err := sql.Open(db.driverName, db.dsn)
	if err != nil {
		src.Close()
		return fmt.Errorf("open migration connection: %w", err)
	}

	var driver migratedb.Driver
	switch db.Dialect {
	case Postgres:
		driver, err = pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})
	default:
		driver, err = sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	}
	if err != nil {
		src.Close()
		conn.Close()
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Dialect.Name(), driver)
	if err != nil {
		src.Close()
		driver.Close()
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		log.Printf("INFO: Database schema at version %d (dirty=%t)", version, dirty)
	}
	return nil
}
