package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// ErrNoSchema is returned by CheckMigrationStatus for a database that was never migrated
var ErrNoSchema = errors.New("database has no schema version (needs migration)")

// MigrationStatus describes the schema version of a database
type MigrationStatus struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// MigrateUp applies all pending migrations for driver.
// The migrate instance is not closed because that would close db.
func MigrateUp(db *sql.DB, driver string) error {
	m, err := newMigrate(db, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Status reports the current and latest schema versions
func Status(db *sql.DB, driver string) (MigrationStatus, error) {
	m, err := newMigrate(db, driver)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	latest, err := latestVersion(driver)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to determine latest version: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{Latest: latest}, nil
		}
		return MigrationStatus{}, fmt.Errorf("failed to get database version: %w", err)
	}

	return MigrationStatus{Version: version, Latest: latest, Dirty: dirty}, nil
}

// CheckMigrationStatus returns nil when the schema is at the latest version
func CheckMigrationStatus(db *sql.DB, driver string) error {
	st, err := Status(db, driver)
	if err != nil {
		return err
	}
	switch {
	case st.Version == 0:
		return ErrNoSchema
	case st.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", st.Version)
	case st.Version < st.Latest:
		return fmt.Errorf("database is at version %d but latest is %d", st.Version, st.Latest)
	case st.Version > st.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d", st.Version, st.Latest)
	}
	return nil
}

func sourceDir(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "migrations/postgres", nil
	case DriverSQLite:
		return "migrations/sqlite", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

func newMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	dir, err := sourceDir(driver)
	if err != nil {
		return nil, err
	}

	sourceDriver, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	var dbDriver migratedb.Driver
	switch driver {
	case DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverSQLite:
		dbDriver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, driver, dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(driver string) (uint, error) {
	dir, err := sourceDir(driver)
	if err != nil {
		return 0, err
	}
	src, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return lastVersion(src)
}

func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			return version, nil
		}
		version = next
	}
}
