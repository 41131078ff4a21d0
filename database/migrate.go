package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFS embed.FS

// runMigrations applies the embedded migrations for the active database type
func runMigrations() error {
	var (
		driver migratedb.Driver
		err    error
	)

	switch dbType {
	case DBTypeMySQL:
		driver, err = migratemysql.WithInstance(DB, &migratemysql.Config{})
	case DBTypePostgres:
		driver, err = migratepgx.WithInstance(DB, &migratepgx.Config{})
	default:
		driver, err = migratesqlite.WithInstance(DB, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", dbType, err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+string(dbType))
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dbType), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// m.Close() would also close DB, which is shared with the rest of the app

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logDBInfo("%s migrations completed (version %d, dirty: %v)", dbType, version, dirty)

	return nil
}
