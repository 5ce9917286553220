// Package utils provides utility functions and helpers for the application.
// This file implements a standardized API response system that ensures
// consistent response formats across all API endpoints.
//
// Every JSON response carries the same envelope: a success flag, the data
// on success, structured error information on failure, and optional
// metadata describing the position of a query result.
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
)

// Response represents a standardized API response.
// All API endpoints return responses in this format for consistency.
type Response struct {
	Success bool        `json:"success"`         // Whether the request was successful
	Data    interface{} `json:"data,omitempty"`  // The response data (omitted for error responses)
	Error   *ErrorInfo  `json:"error,omitempty"` // Error information (omitted for successful responses)
	Meta    *MetaInfo   `json:"meta,omitempty"`  // Metadata such as the query position
}

// ErrorInfo represents error information in the response.
type ErrorInfo struct {
	Code    string            `json:"code"`              // A machine-readable error code
	Message string            `json:"message"`           // A human-readable error message
	Details map[string]string `json:"details,omitempty"` // Additional details about the error (e.g., validation errors)
}

// MetaInfo describes where a single query hit sits in the full result list.
type MetaInfo struct {
	Number int `json:"number,omitempty"` // The 1-based position of the returned item
	Total  int `json:"total,omitempty"`  // The number of items matching the query
}

// JSON sends a JSON response with the given status code and data.
// This is the primary function for sending successful responses.
//
// Parameters:
//   - w: The HTTP response writer
//   - statusCode: The HTTP status code
//   - data: The data to include in the response
//
// The function automatically sets the success flag based on the status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	}

	SendJSON(w, statusCode, response)
}

// Positioned sends a successful response for a single query hit.
//
// Parameters:
//   - w: The HTTP response writer
//   - data: The returned item
//   - number: The 1-based position of the item in the result list
//   - total: The size of the result list
func Positioned(w http.ResponseWriter, data interface{}, number, total int) {
	response := Response{
		Success: constants.ResponseSuccess,
		Data:    data,
		Meta: &MetaInfo{
			Number: number,
			Total:  total,
		},
	}

	SendJSON(w, constants.StatusOK, response)
}

// Error sends an error response with the given status code and error information.
//
// Parameters:
//   - w: The HTTP response writer
//   - statusCode: The HTTP status code
//   - code: A machine-readable error code
//   - message: A human-readable error message
//   - details: Additional details about the error (e.g., validation errors)
func Error(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	response := Response{
		Success: constants.ResponseFailure,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	SendJSON(w, statusCode, response)
}

// ErrorFromAppError sends an error response based on an AppError.
//
// Parameters:
//   - w: The HTTP response writer
//   - err: The application error
//
// Internal errors are logged with their developer information, which is never
// sent to the client.
func ErrorFromAppError(w http.ResponseWriter, err *AppError) {
	// Extract error code from the underlying error
	errCode := constants.CodeInternalError
	switch {
	case errors.Is(err.Err, ErrNotFound):
		errCode = constants.CodeNotFound
	case errors.Is(err.Err, ErrBadRequest):
		errCode = constants.CodeBadRequest
	case errors.Is(err.Err, ErrUnauthorized):
		errCode = constants.CodeUnauthorized
	case errors.Is(err.Err, ErrValidation):
		errCode = constants.CodeValidationError
	case errors.Is(err.Err, ErrDuplicate):
		errCode = constants.CodeDuplicateResource
	case errors.Is(err.Err, ErrExpiredToken):
		errCode = constants.CodeTokenExpired
	case errors.Is(err.Err, ErrInvalidToken):
		errCode = constants.CodeTokenInvalid
	case errors.Is(err.Err, ErrTooManyRequests):
		errCode = constants.CodeTooManyRequests
	}

	if err.StatusCode >= http.StatusInternalServerError {
		log.Error().Str("dev_info", err.DevInfo).Msg(err.Message)
	}

	// Create error details if field is present
	var details map[string]string
	if err.Field != "" {
		details = map[string]string{
			err.Field: err.Message,
		}
	}
	for key, value := range err.Details {
		if details == nil {
			details = make(map[string]string)
		}
		switch v := value.(type) {
		case string:
			details[key] = v
		case []string:
			details[key] = strings.Join(v, constants.TagSeparator)
		default:
			details[key] = fmt.Sprint(v)
		}
	}

	Error(w, err.StatusCode, errCode, err.Message, details)
}

// SendJSON is a helper function to send JSON data with proper headers.
//
// Parameters:
//   - w: The HTTP response writer
//   - statusCode: The HTTP status code
//   - data: The data to marshal to JSON and send
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	// Marshal first so a failure can still produce a clean 500
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := w.Write([]byte(`{"success":false,"error":{"code":"internal_error","message":"Failed to generate response"}}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
		return
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if _, err := w.Write(jsonData); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// NoContent sends a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(constants.StatusNoContent)
}

// BadRequest sends a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, message string, details map[string]string) {
	Error(w, constants.StatusBadRequest, constants.CodeBadRequest, message, details)
}

// Unauthorized sends a 401 Unauthorized response with the given message.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgClientRequired
	}
	Error(w, constants.StatusUnauthorized, constants.CodeUnauthorized, message, nil)
}

// NotFound sends a 404 Not Found response with the given message.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = constants.MsgResourceNotFound
	}
	Error(w, constants.StatusNotFound, constants.CodeNotFound, message, nil)
}

// MethodNotAllowed sends a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, constants.StatusMethodNotAllowed, constants.CodeMethodNotAllowed, constants.MsgMethodNotAllowed, nil)
}

// TooManyRequests sends a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter) {
	Error(w, constants.StatusTooManyRequests, constants.CodeTooManyRequests, constants.MsgTooManyRequests, nil)
}

// InternalServerError sends a 500 Internal Server Error response.
// The error is logged but not exposed to the client.
func InternalServerError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("Internal server error")
	Error(w, constants.StatusInternalServerError, constants.CodeInternalError, constants.MsgInternalServerError, nil)
}

// ValidationError sends a 400 Bad Request response with validation error details.
func ValidationError(w http.ResponseWriter, errors map[string]string) {
	Error(w, constants.StatusBadRequest, constants.CodeValidationError, "Validation failed", errors)
}
