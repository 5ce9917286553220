// Package constants provides shared constant values used throughout the application.
//
// The defaults.go file defines default values and limits used throughout the application.
// These constants provide sensible defaults for configuration settings and establish
// boundaries for resource usage.
package constants

// Default Configuration Values define fallback settings when not specified in configuration.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultDBMaxConnections is the default maximum number of database connections.
	DefaultDBMaxConnections = 20

	// DefaultDBMinConnections is the default minimum number of database connections.
	DefaultDBMinConnections = 5

	// DefaultDBDriver is the database driver used when none is configured.
	DefaultDBDriver = DriverMySQL

	// DefaultLogLevel is the default logging verbosity level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "json"

	// DefaultStorageBackend is the local storage backend used when none is configured.
	DefaultStorageBackend = StorageBackendSQL

	// DefaultBoltPath is the default location of the bolt local storage file.
	DefaultBoltPath = "ftag.db"

	// DefaultFilesDir is the default directory holding uploaded file contents.
	DefaultFilesDir = "files"

	// DefaultClientTokenIssuer is the issuer claim value for client identity tokens.
	DefaultClientTokenIssuer = "ftag"

	// DefaultClientTokenCookie is the cookie carrying the client identity token.
	DefaultClientTokenCookie = "ftag_client"
)

// Environment Types define the recognized application running environments.
const (
	// EnvDevelopment identifies a development environment with debugging features enabled.
	EnvDevelopment = "development"

	// EnvTesting identifies a testing environment for automated tests.
	EnvTesting = "testing"

	// EnvProduction identifies a production environment with optimized settings.
	EnvProduction = "production"
)

// Storage Backends name the implementations that can back client local storage.
const (
	// StorageBackendSQL keeps local storage in the local_storage table.
	StorageBackendSQL = "sql"

	// StorageBackendBolt keeps local storage in a bolt database file.
	StorageBackendBolt = "bolt"

	// StorageBackendMemory keeps local storage in process memory.
	StorageBackendMemory = "memory"
)

// File Size Limits define the maximum allowed sizes for various uploads.
const (
	// MaxRequestBodySize is the maximum size in bytes for JSON request bodies.
	MaxRequestBodySize = 1048576 // 1MB in bytes

	// DefaultMaxUploadSize is the default maximum size of a multipart upload.
	DefaultMaxUploadSize = 1 << 30 // 1GB in bytes

	// MultipartMemory is the part of a multipart upload kept in memory before spilling to disk.
	MultipartMemory = 32 << 20 // 32MB in bytes

	// MimeSniffLength is the number of leading bytes inspected to detect a MIME type.
	MimeSniffLength = 512

	// StagingDirName is the subdirectory of the files directory that holds
	// uploads still being written.
	StagingDirName = ".partial"
)

// Upload Rate Limits define the per-client token bucket used on write endpoints.
const (
	// DefaultWriteRatePerSecond is the sustained number of writes allowed per client.
	DefaultWriteRatePerSecond = 2.0

	// DefaultWriteBurst is the number of writes a client may make at once.
	DefaultWriteBurst = 10
)

// Client Identity Constants define values related to client identity tokens.
const (
	// BearerTokenPrefix is the prefix for Authorization header bearer tokens.
	BearerTokenPrefix = "Bearer "

	// TokenTypeClient marks a token as a client identity token.
	TokenTypeClient = "client"
)

// Rate Limit Categories name the write endpoints that keep separate budgets.
const (
	// RateLimitCategoryClient covers issuing client identities.
	RateLimitCategoryClient = "client"

	// RateLimitCategorySettings covers settings writes.
	RateLimitCategorySettings = "settings"

	// RateLimitCategoryUpload covers uploads and tag changes.
	RateLimitCategoryUpload = "upload"
)
