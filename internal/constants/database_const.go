// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines constants related to database structures,
// including table names and column names. These constants keep SQL used by the
// repositories and migrations consistent with each other.
package constants

// Table Names define the names of database tables used in the application.
const (
	// TableLocalStorage is the name of the table backing per-client local storage.
	TableLocalStorage = "local_storage"

	// TableResources is the name of the table storing resource metadata.
	TableResources = "resources"

	// TableResourceTags is the name of the table linking resources to their tags.
	TableResourceTags = "resource_tags"

	// TableMigrations is the name of the table recording executed migrations.
	TableMigrations = "migrations"
)

// Common Column Names define frequently used database column names.
const (
	// ColumnClientID is the column name for client identifiers.
	ColumnClientID = "client_id"

	// ColumnStorageKey is the column name for local storage keys.
	ColumnStorageKey = "storage_key"

	// ColumnStorageValue is the column name for local storage values.
	ColumnStorageValue = "storage_value"

	// ColumnResourceID is the column name for resource identifiers.
	ColumnResourceID = "resource_id"

	// ColumnMimetype is the column name for resource MIME types.
	ColumnMimetype = "mimetype"

	// ColumnTag is the column name for tag names.
	ColumnTag = "tag"

	// ColumnCreatedAt is the column name for creation timestamps.
	ColumnCreatedAt = "created_at"

	// ColumnUpdatedAt is the column name for modification timestamps.
	ColumnUpdatedAt = "updated_at"
)

// Database Drivers name the database/sql drivers the application can connect with.
const (
	// DriverMySQL selects the MySQL/MariaDB driver.
	DriverMySQL = "mysql"

	// DriverPostgres selects the PostgreSQL driver.
	DriverPostgres = "postgres"
)

// PostgreSQL connection string parameters
const (
	PostgresSSLDisable = "sslmode=disable connect_timeout=15"
)
