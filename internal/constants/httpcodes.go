// Package constants provides shared constant values used throughout the application.
//
// The httpcodes.go file defines HTTP status codes, response codes and header
// names used when building API responses.
package constants

// HTTP Status Codes used by the API.
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusNoContent           = 204
	StatusNotModified         = 304
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusConflict            = 409
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
)

// Response status flags.
const (
	ResponseSuccess = true
	ResponseFailure = false
)

// Machine-readable error codes returned in the error envelope.
const (
	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeMethodNotAllowed   = "method_not_allowed"
	CodeConflict           = "conflict"
	CodeInternalError      = "internal_error"
	CodeValidationError    = "validation_error"
	CodeTokenExpired       = "token_expired"
	CodeTokenInvalid       = "token_invalid"
	CodeDuplicateResource  = "duplicate_resource"
	CodeTooManyRequests    = "too_many_requests"
	CodeServiceUnavailable = "service_unavailable"
)

// Header names.
const (
	HeaderContentType           = "Content-Type"
	HeaderContentLength         = "Content-Length"
	HeaderCacheControl          = "Cache-Control"
	HeaderAuthorization         = "Authorization"
	HeaderETag                  = "ETag"
	HeaderIfNoneMatch           = "If-None-Match"
	HeaderXRequestID            = "X-Request-ID"
	HeaderXContentTypeOptions   = "X-Content-Type-Options"
	HeaderXFrameOptions         = "X-Frame-Options"
	HeaderReferrerPolicy        = "Referrer-Policy"
	HeaderContentSecurityPolicy = "Content-Security-Policy"
)

// Header values.
const (
	ContentTypeJSON            = "application/json"
	ContentTypeOctetStream     = "application/octet-stream"
	FrameOptionsDeny           = "DENY"
	ContentTypeOptionsNoSniff  = "nosniff"
	ReferrerPolicyStrictOrigin = "strict-origin-when-cross-origin"
	CSPDefaultSrc              = "default-src 'self'"
	CacheControlNoStore        = "no-cache, no-store, must-revalidate"
	CacheControlPrivate        = "private, max-age=300"
)
