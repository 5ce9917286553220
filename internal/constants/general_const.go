package constants

// Base paths
const (
	APIBasePath = "/api"
	HealthPath  = "/health"
	VersionPath = "/version"
	FilesPath   = "/files"
)

// Route parameters
const (
	ParamID = "id"
)

// Query and form parameters
const (
	QueryParamIncludeTags = "intags"
	QueryParamExcludeTags = "extags"
	QueryParamNumber      = "number"
	FormFieldUploadFile   = "uploadfile"
	FormFieldTags         = "tags"
)

// Context keys
const (
	RequestIDContextKey = "request_id"
	ClientIDContextKey  = "client_id"
)
