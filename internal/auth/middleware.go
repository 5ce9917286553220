// Package auth provides client identity for the ftag API.
//
// A request carrying a valid client token runs in a client execution
// context: its settings are loaded from and saved to that client's local
// storage. A request without a token runs in a server context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/utils"
)

// ContextKey is a custom type for context keys to prevent collisions.
type ContextKey string

// Context keys for storing client identity and request metadata.
const (
	// ClientIDContextKey is the context key for storing the client id.
	ClientIDContextKey ContextKey = constants.ClientIDContextKey

	// RequestIDContextKey is the context key for storing the unique request ID.
	RequestIDContextKey ContextKey = constants.RequestIDContextKey
)

// ExtractToken returns the client token from the Authorization header or,
// as a fallback, from the named cookie.
//
// Parameters:
//   - r: The HTTP request
//   - cookieName: The cookie carrying the token
//
// Returns:
//   - The token string
//   - A boolean indicating whether a token was present
func ExtractToken(r *http.Request, cookieName string) (string, bool) {
	if header := r.Header.Get(constants.HeaderAuthorization); header != "" {
		if !strings.HasPrefix(header, constants.BearerTokenPrefix) {
			return "", true
		}
		return strings.TrimPrefix(header, constants.BearerTokenPrefix), true
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ClientIdentity is a middleware that resolves the calling client.
// A request without a token continues without a client id. A request with a
// malformed, forged or expired token is rejected with 401.
//
// Parameters:
//   - validator: Validates client tokens
//
// Returns:
//   - A middleware function that stores the client id in the request context
func ClientIdentity(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(constants.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
				r.Header.Set(constants.HeaderXRequestID, requestID)
			}
			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)

			token, present := ExtractToken(r, validator.GetConfig().Cookie)
			if !present {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				log.Info().
					Err(err).
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Client token rejected")

				var appErr *utils.AppError
				if errors.As(err, &appErr) {
					utils.ErrorFromAppError(w, appErr)
				} else {
					utils.Error(w, constants.StatusUnauthorized, constants.CodeTokenInvalid, constants.MsgInvalidToken, nil)
				}
				return
			}

			ctx = WithClientID(ctx, claims.Subject)
			log.Debug().
				Str("client_id", claims.Subject).
				Str("request_id", requestID).
				Msg("Client identified")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireClient is a middleware that rejects requests without a client id.
func RequireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetClientID(r); !ok {
			utils.Unauthorized(w, constants.MsgClientRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithClientID returns a copy of ctx carrying the client id.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDContextKey, clientID)
}

// ClientIDFromContext returns the client id stored in ctx, or "" for a server context.
func ClientIDFromContext(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDContextKey).(string)
	return clientID
}

// GetClientID extracts the client id from the request context.
//
// Parameters:
//   - r: The HTTP request containing the context
//
// Returns:
//   - The client id if present
//   - A boolean indicating if the client id was found
func GetClientID(r *http.Request) (string, bool) {
	clientID, ok := r.Context().Value(ClientIDContextKey).(string)
	return clientID, ok && clientID != ""
}

// GetRequestID extracts the request ID from the request context.
func GetRequestID(r *http.Request) (string, bool) {
	requestID, ok := r.Context().Value(RequestIDContextKey).(string)
	return requestID, ok
}
