package constants

import "time"

// Server timeouts
const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
)

// Database timeouts
const (
	DBConnectionTimeout  = 10 * time.Second
	DBHealthCheckTimeout = 5 * time.Second
	DBConnMaxLifetime    = 1 * time.Hour
	DBConnMaxIdleTime    = 30 * time.Minute
)

// Bolt timeouts
const (
	BoltOpenTimeout = 1 * time.Second
)

// Client tokens
const (
	DefaultClientTokenExpiry = 365 * 24 * time.Hour
)

// Rate limiter housekeeping
const (
	RateLimitCleanupInterval = 10 * time.Minute
	RateLimitIdleExpiry      = 1 * time.Hour
)

// Maintenance
const (
	MigrationTimeout  = 1 * time.Minute
	ReconcileInterval = 6 * time.Hour
	ReconcileTimeout  = 5 * time.Minute

	// StagingExpiry is how old a staged upload must be before Reconcile treats it as abandoned.
	StagingExpiry = 24 * time.Hour
)
