package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"cvcoach-backend/internal/shared/telemetry"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

var gooseMu sync.Mutex

// goose keeps its dialect and filesystem in package globals.
func withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return fn()
}

// RunMigrations brings the schema up to the newest embedded migration.
// A nil database is a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	return withGoose(func() error {
		if err := goose.UpContext(ctx, database, migrationDir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		version, err := goose.GetDBVersionContext(ctx, database)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		telemetry.Info("db.migrated", map[string]any{"version": version})
		return nil
	})
}

// MigrationStatus prints the applied state of every embedded migration.
func MigrationStatus(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return fmt.Errorf("migration status: no database")
	}
	return withGoose(func() error {
		return goose.StatusContext(ctx, database, migrationDir)
	})
}
