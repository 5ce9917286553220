// Package migrations provides a framework for database schema management.
//
// This package implements a migration system that allows for reliable, idempotent
// database schema creation. It tracks executed migrations in a dedicated
// migrations table and ensures all required tables exist before application startup.
//
// The migration system supports:
// - Automatic creation of missing tables
// - Tracking of executed migrations
// - MySQL and PostgreSQL schemas from the same definitions
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/database"
)

// Migration represents a database migration.
// Each migration performs a specific schema change and is tracked
// to ensure it runs exactly once.
type Migration struct {
	// Name is a unique identifier for the migration
	Name string
	// Description is a human-readable explanation of what the migration does
	Description string
	// TableName is the table affected by this migration, used for existence checks
	TableName string
	// RunSQL is the function that executes the migration SQL within a transaction
	RunSQL func(ctx context.Context, tx *sql.Tx) error
}

// Migrator handles database migrations.
type Migrator struct {
	db         *database.Pool
	migrations []Migration
}

// NewMigrator creates a new migrator applying GetMigrations.
//
// Parameters:
//   - db: A database connection pool to use for migrations
//
// Returns:
//   - *Migrator: A configured migrator
func NewMigrator(db *database.Pool) *Migrator {
	return &Migrator{
		db:         db,
		migrations: GetMigrations(),
	}
}

// RunMigrations creates missing tables and records every migration as executed.
// A table that already exists is recorded without running its SQL, and a
// recorded migration whose table has gone missing is run again.
//
// Parameters:
//   - ctx: Context for database operations and cancellation
//
// Returns:
//   - error: Any error encountered during migration, nil if successful
func (m *Migrator) RunMigrations(ctx context.Context) error {
	log.Info().Msg("Running database migrations")
	startTime := time.Now()

	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	executed, err := m.getExecutedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}

	migrationsRun := 0
	migrationsRecorded := 0

	for _, migration := range m.migrations {
		exists, err := m.tableExists(ctx, migration.TableName)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", migration.TableName, err)
		}

		switch {
		case !exists:
			if executed[migration.Name] {
				log.Warn().
					Str("migration", migration.Name).
					Str("table", migration.TableName).
					Msg("Table doesn't exist but should. Running migration to create it.")
			} else {
				log.Info().
					Str("migration", migration.Name).
					Str("table", migration.TableName).
					Msg("Running migration")
			}
			if err := m.runMigration(ctx, migration, !executed[migration.Name]); err != nil {
				return err
			}
			migrationsRun++

		case !executed[migration.Name]:
			log.Info().
				Str("migration", migration.Name).
				Str("table", migration.TableName).
				Msg("Table already exists, recording migration as completed")

			if err := m.recordMigration(ctx, m.db, migration); err != nil {
				return err
			}
			migrationsRecorded++
		}
	}

	log.Info().
		Int("migrations_run", migrationsRun).
		Int("migrations_recorded", migrationsRecorded).
		Int("total_migrations", len(m.migrations)).
		Dur("duration", time.Since(startTime)).
		Msg("Database migrations completed")

	return nil
}

// createMigrationsTable creates the migrations table if it doesn't exist.
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + constants.TableMigrations + ` (
			name VARCHAR(191) PRIMARY KEY,
			description TEXT,
			executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// getExecutedMigrations returns the names of executed migrations.
func (m *Migrator) getExecutedMigrations(ctx context.Context) (map[string]bool, error) {
	query := `SELECT name FROM ` + constants.TableMigrations
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	migrations := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		migrations[name] = true
	}

	return migrations, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// runMigration runs a migration within a transaction, recording it when record is set.
// If the migration fails, the transaction is rolled back.
func (m *Migrator) runMigration(ctx context.Context, migration Migration, record bool) error {
	return m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := migration.RunSQL(ctx, tx); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}

		if !record {
			return nil
		}
		return m.recordMigration(ctx, tx, migration)
	})
}

// recordMigration marks a migration as completed.
func (m *Migrator) recordMigration(ctx context.Context, db execer, migration Migration) error {
	query := m.db.Rebind(`INSERT INTO ` + constants.TableMigrations + ` (name, description) VALUES (?, ?)`)
	if _, err := db.ExecContext(ctx, query, migration.Name, migration.Description); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}
	return nil
}

// tableExists checks if a table exists in the current database schema.
func (m *Migrator) tableExists(ctx context.Context, tableName string) (bool, error) {
	schema := "DATABASE()"
	if m.db.IsPostgres() {
		schema = "current_schema()"
	}

	query := m.db.Rebind(`
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = ` + schema + `
		AND table_name = ?
	`)

	var count int
	if err := m.db.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetMigrations returns all migrations in the order they must be applied.
func GetMigrations() []Migration {
	return []Migration{
		createLocalStorageTable(),
		createResourcesTable(),
		createResourceTagsTable(),
	}
}
