// Package constants provides shared constant values used throughout the application.
//
// The errorcodes.go file defines constants related to error handling, categorization,
// and messaging. User-facing error messages are informative without revealing
// implementation details.
package constants

// User-Facing Error Messages define standardized messages that can be safely presented to users.
const (
	// MsgClientRequired indicates that the request needs a client identity.
	MsgClientRequired = "Client identity required"

	// MsgInternalServerError provides a generic server error message.
	MsgInternalServerError = "An internal server error occurred"

	// MsgInvalidToken indicates that the provided token is invalid.
	MsgInvalidToken = "Invalid token"

	// MsgRequestBodyTooLarge indicates that the request payload exceeds size limits.
	MsgRequestBodyTooLarge = "Request body too large"

	// MsgEmptyRequestBody indicates that a request body was expected but not provided.
	MsgEmptyRequestBody = "Request body must not be empty"

	// MsgMalformedJSON indicates that the request body contains invalid JSON.
	MsgMalformedJSON = "Request body contains malformed JSON"

	// MsgResourceNotFound indicates that the requested resource does not exist.
	MsgResourceNotFound = "The requested resource could not be found"

	// MsgResourceAlreadyExists indicates a duplicate resource conflict.
	MsgResourceAlreadyExists = "A resource with the same unique identifier already exists"

	// MsgMethodNotAllowed indicates that the HTTP method is not supported for the endpoint.
	MsgMethodNotAllowed = "This method is not allowed for this resource"

	// MsgTooManyRequests indicates that the client exceeded its write rate.
	MsgTooManyRequests = "Too many requests, slow down"

	// MsgInvalidTags indicates that some submitted tags were rejected.
	MsgInvalidTags = "Some tags were invalid"

	// MsgEmptyTagChange indicates a tag change that neither adds nor removes a tag.
	MsgEmptyTagChange = "At least one tag must be added or removed"

	// MsgNoResult indicates that a query matched nothing.
	MsgNoResult = "no result"

	// MsgExceedListBeginning indicates a query position before the first result.
	MsgExceedListBeginning = "exceed list beginning"

	// MsgExceedListEnd indicates a query position after the last result.
	MsgExceedListEnd = "exceed list end"
)

// Database Error Types define constants for recognizing database-specific errors.
const (
	// DBErrorDuplicateKey is the PostgreSQL error message for unique constraint violations.
	DBErrorDuplicateKey = "duplicate key value violates unique constraint"

	// PGErrorDuplicateConstraint is the PostgreSQL error code for unique constraint violations.
	PGErrorDuplicateConstraint = "23505"

	// PGErrorForeignKeyConstraint is the PostgreSQL error code for foreign key violations.
	PGErrorForeignKeyConstraint = "23503"

	// PGErrorNotNullConstraint is the PostgreSQL error code for not-null constraint violations.
	PGErrorNotNullConstraint = "23502"

	// MySQLErrorDuplicateEntry is the MySQL error number for duplicate entries.
	MySQLErrorDuplicateEntry = 1062
)

// Logger Constants define values used for structured logging.
const (
	// LogCategorySettings is the log category for settings events.
	LogCategorySettings = "settings"

	// LogCategoryResource is the log category for resource events.
	LogCategoryResource = "resource"

	// LogEventSettingsSave is the log event for a settings write.
	LogEventSettingsSave = "settings_save"

	// LogEventSettingsCorrupt is the log event for unreadable stored settings.
	LogEventSettingsCorrupt = "settings_corrupt"

	// LogEventResourceUpload is the log event for a new resource.
	LogEventResourceUpload = "resource_upload"

	// LogEventResourceRetag is the log event for a tag change.
	LogEventResourceRetag = "resource_retag"

	// LogRedactedValue is used to replace sensitive values in logs.
	LogRedactedValue = "[REDACTED]"
)
