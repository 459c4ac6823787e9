// Package database opens the pgx connection pool (Connect) and wires
// golang-migrate against the CSMS schema. internal/store builds the
// request-path repositories on top of the pool that Connect returns.
package database

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending up migrations found under migrationsPath
// (a plain filesystem directory, e.g. "migrations") to dataSourceName.
func Migrate(migrationsPath, dataSourceName string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dataSourceName)
	if err != nil {
		return fmt.Errorf("database: open migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("database: apply migrations: %w", err)
	}

	return nil
}

// Rollback reverts the most recently applied migration.
func Rollback(migrationsPath, dataSourceName string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dataSourceName)
	if err != nil {
		return fmt.Errorf("database: open migrator: %w", err)
	}

	if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("database: rollback migration: %w", err)
	}

	return nil
}
