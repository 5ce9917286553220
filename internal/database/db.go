// Package database provides database access and management functions for the ftag API.
// It implements a connection pool, transaction management and placeholder
// rebinding for the supported SQL drivers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // Import MySQL driver
	_ "github.com/lib/pq"              // Import PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/config"
	"github.com/blubywaff/ftag/internal/constants"
)

// Pool represents a database connection pool
type Pool struct {
	*sql.DB

	// Driver is the database/sql driver name the pool was opened with.
	// An empty value is treated as MySQL.
	Driver string
}

var (
	// dbPool is the global database connection pool
	dbPool *Pool
)

// Connect creates a new database connection pool for the configured driver
func Connect(cfg *config.AppConfig) (*Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DBConnectionTimeout)
	defer cancel()

	driver := cfg.Database.Driver
	if driver == "" {
		driver = constants.DefaultDBDriver
	}

	log.Info().
		Str("driver", driver).
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Name).
		Str("user", cfg.Database.User).
		Msg("Connecting to database")

	if driver == constants.DriverMySQL {
		if err := ensureMySQLDatabase(ctx, cfg); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBConnMaxIdleTime)

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to database")

	// Create and store the global database pool
	dbPool = &Pool{DB: db, Driver: driver}
	return dbPool, nil
}

// ensureMySQLDatabase connects without a database name and creates the configured one
func ensureMySQLDatabase(ctx context.Context, cfg *config.AppConfig) error {
	root := cfg.Database
	root.Name = ""

	rootDB, err := sql.Open(constants.DriverMySQL, root.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to root database: %w", err)
	}
	defer rootDB.Close()

	_, err = rootDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database.Name))
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	log.Info().Msgf("Ensured database '%s' exists", cfg.Database.Name)
	return nil
}

// Get returns the global database connection pool
func Get() *Pool {
	if dbPool == nil {
		log.Fatal().Msg("database connection pool not initialized")
	}
	return dbPool
}

// Close closes the database connection pool
func (p *Pool) Close() {
	if p != nil && p.DB != nil {
		log.Info().Msg("Closing database connection pool")
		p.DB.Close()
	}
}

// IsPostgres reports whether the pool talks to PostgreSQL
func (p *Pool) IsPostgres() bool {
	return p != nil && p.Driver == constants.DriverPostgres
}

// Rebind rewrites '?' placeholders into the driver's native form.
// Queries are written with '?' and passed through Rebind before execution.
func (p *Pool) Rebind(query string) string {
	if !p.IsPostgres() {
		return query
	}
	return rebindDollar(query)
}

// rebindDollar replaces each '?' outside quoted literals with $1, $2, ...
func rebindDollar(query string) string {
	var (
		sb      strings.Builder
		n       int
		inQuote rune
	)
	sb.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Transaction executes a function within a transaction
func (p *Pool) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	// Start a transaction
	tx, err := p.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Handle panics to ensure proper rollback
	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(r)
		}
	}()

	// Execute the function within the transaction
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// HealthCheck performs a health check on the database connection
func (p *Pool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBHealthCheckTimeout)
	defer cancel()

	if err := p.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Run a simple query to verify database functionality
	var result int
	if err := p.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("database returned unexpected result: %d", result)
	}

	return nil
}
