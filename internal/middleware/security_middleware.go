// Package middleware provides HTTP middleware components.
package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/utils"
)

// RateLimiter decides whether a caller may perform another request.
type RateLimiter interface {
	Allow(clientID, category string) bool
}

// RateLimit is middleware that limits the rate of write requests.
// Callers are keyed by their client id, or by IP address in a server context.
// Reads are never limited.
//
// Parameters:
//   - limiter: The limiter tracking each caller's budget
//   - category: The endpoint category to apply limits for (e.g., "upload", "settings")
//
// Returns:
//   - A middleware function that can be used with an HTTP handler
func RateLimit(limiter RateLimiter, category string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWriteMethod(r.Method) || isExemptedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := callerKey(r)
			if !limiter.Allow(key, category) {
				log.Warn().
					Str("caller", key).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("category", category).
					Msg("Rate limit exceeded")

				w.Header().Set("Retry-After", "1")
				utils.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds security-related HTTP headers to responses
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(constants.HeaderXContentTypeOptions, constants.ContentTypeOptionsNoSniff)
			w.Header().Set(constants.HeaderXFrameOptions, constants.FrameOptionsDeny)
			w.Header().Set(constants.HeaderReferrerPolicy, constants.ReferrerPolicyStrictOrigin)
			w.Header().Set(constants.HeaderContentSecurityPolicy, constants.CSPDefaultSrc)

			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller for rate limiting.
func callerKey(r *http.Request) string {
	if clientID, ok := auth.GetClientID(r); ok {
		return "client:" + clientID
	}
	return "ip:" + getClientIP(r)
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// getClientIP extracts the client IP address from the request,
// taking into account common proxy headers.
func getClientIP(r *http.Request) string {
	xForwardedFor := r.Header.Get("X-Forwarded-For")
	if xForwardedFor != "" {
		// Use the leftmost IP in the list (client IP)
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	xRealIP := r.Header.Get("X-Real-IP")
	if xRealIP != "" {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If there's no port in the address, use it as is
		return r.RemoteAddr
	}
	return ip
}

// isExemptedPath returns true if the path should be exempted from
// rate limiting (health checks and the like).
func isExemptedPath(path string) bool {
	exemptPrefixes := []string{
		constants.HealthPath,
		constants.VersionPath,
		"/favicon.ico",
	}

	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
