// Package migrate applies the embedded SQLite schema migrations.
// Files follow golang-migrate naming: 0001_name.up.sql / 0001_name.down.sql.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	gomigrate "github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const (
	migrationsDir = "sql"
	tableName     = "schema_migrations"
)

// Run applies every pending up migration. It leaves db open.
func Run(db *sql.DB) error {
	m, src, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			slog.Error("close migration source", "error", closeErr)
		}
	}()

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, gomigrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, gomigrate.ErrNoChange) {
			slog.Debug("schema up to date", "version", before)
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", after)
	}
	slog.Info("migrations applied", "from", before, "to", after)
	return nil
}

// Version reports the current schema version; 0 means no migration has run.
func Version(db *sql.DB) (uint, bool, error) {
	m, src, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = src.Close() }()

	v, dirty, err := m.Version()
	if errors.Is(err, gomigrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// newMigrator builds a migrator over db. The migrator itself is never
// closed: closing it would close db, which belongs to the caller.
func newMigrator(db *sql.DB) (*gomigrate.Migrate, interface{ Close() error }, error) {
	src, err := iofs.New(sqlFS, migrationsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read migrations dir: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: tableName})
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := gomigrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("migration instance: %w", err)
	}
	return m, src, nil
}
