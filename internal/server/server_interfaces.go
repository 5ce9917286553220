package server

import (
	"context"
)

// ServerDBHealthChecker defines the interface for database health checks.
type ServerDBHealthChecker interface {
	// HealthCheck verifies the database connection is working properly
	//
	// Parameters:
	//   - ctx: Context for the health check operation
	//
	// Returns:
	//   - An error if the database is unreachable or unhealthy
	HealthCheck(ctx context.Context) error
}
