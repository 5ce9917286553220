package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/config"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/middleware"
	"github.com/blubywaff/ftag/internal/utils"
)

// SetupRoutes configures the routes for the application.
//
// The configured routes include:
//   - Health check, version and route listing (no client identity)
//   - Client identity management under /api/client
//   - Display settings under /api/settings
//   - Resource upload, query and retagging under /api/resources
//   - Raw file contents under /files
//
// Every other route passes through auth.ClientIdentity; requests without a
// token run in a server context and never touch local storage.
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	r.Use(corsMiddleware(s.Config.CORS))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if s.Config.Logging.RequestLog {
		r.Use(middleware.RequestLogging())
	}
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, constants.MsgResourceNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.MethodNotAllowed(w)
	})

	r.Group(func(r chi.Router) {
		r.Get(constants.HealthPath, s.healthCheck(s.Db))
		r.Get(constants.VersionPath, func(w http.ResponseWriter, r *http.Request) {
			utils.JSON(w, http.StatusOK, map[string]string{
				"version":     s.Config.App.Version,
				"environment": s.Config.App.Environment,
			})
		})
		r.Get(constants.APIBasePath+"/routes", s.GetAPIRoutes)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.ClientIdentity(s.tokens))

		r.Route(constants.APIBasePath, func(r chi.Router) {
			r.Route("/client", func(r chi.Router) {
				r.Use(middleware.RateLimit(s.limiter, constants.RateLimitCategoryClient))

				r.Get("/", s.Handlers.ClientHandler.GetClient)
				r.Post("/", s.Handlers.ClientHandler.IssueClient)
				r.With(auth.RequireClient).Delete("/", s.Handlers.ClientHandler.ForgetClient)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Use(middleware.RateLimit(s.limiter, constants.RateLimitCategorySettings))

				r.Get("/", s.Handlers.SettingsHandler.GetSettings)
				r.Put("/", s.Handlers.SettingsHandler.UpdateSettings)
				r.Delete("/", s.Handlers.SettingsHandler.ResetSettings)
				r.Get("/options", s.Handlers.SettingsHandler.GetOptions)
			})

			r.Route("/resources", func(r chi.Router) {
				r.Use(middleware.RateLimit(s.limiter, constants.RateLimitCategoryUpload))

				r.Post("/", s.Handlers.ResourceHandler.UploadResource)
				r.Get("/query", s.Handlers.ResourceHandler.QueryResources)
				r.Get("/{"+constants.ParamID+"}", s.Handlers.ResourceHandler.GetResource)
				r.Post("/{"+constants.ParamID+"}/tags", s.Handlers.ResourceHandler.ChangeTags)
			})
		})

		r.Get(constants.FilesPath+"/{"+constants.ParamID+"}", s.Handlers.ResourceHandler.ServeFile)
	})

	s.router = r
}

// GetRouter returns the router for testing purposes.
func (s *Server) GetRouter() chi.Router {
	return s.router
}

// healthCheck reports whether the database answers.
func (s *Server) healthCheck(db ServerDBHealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			utils.Error(w, http.StatusServiceUnavailable, "service_unavailable", "Service is not healthy", nil)
			return
		}

		utils.JSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": s.Config.App.Version,
		})
	}
}

// corsMiddleware adds CORS headers for allowed origins and answers preflight requests.
// A "*" entry allows any origin; the origin is echoed back so that credentials
// mode keeps working.
func corsMiddleware(cfg config.CORSSettings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !originAllowed(cfg.AllowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, If-None-Match, Range, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "300")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// GetAPIRoutes lists the API endpoints with a short description of each.
func (s *Server) GetAPIRoutes(w http.ResponseWriter, r *http.Request) {
	routes := map[string]interface{}{
		"system": map[string]string{
			"GET /health":     "Database backed liveness check",
			"GET /version":    "Application version and environment",
			"GET /api/routes": "This listing",
		},
		"client": map[string]string{
			"GET /api/client":    "Report the calling client identity, if any",
			"POST /api/client":   "Issue or renew a client identity token (cookie and body)",
			"DELETE /api/client": "Drop the client's local storage and clear the identity cookie",
		},
		"settings": map[string]string{
			"GET /api/settings":         "Load the calling client's display settings",
			"PUT /api/settings":         "Partially update and save {defaultExcludes, defaultTagView}",
			"DELETE /api/settings":      "Reset settings to defaults and save",
			"GET /api/settings/options": "Allowed defaultTagView values",
		},
		"resources": map[string]string{
			"POST /api/resources":           "Multipart upload with fields uploadfile and tags",
			"GET /api/resources/query":      "Query by intags, extags and 1-based number",
			"GET /api/resources/{id}":       "Resource descriptor",
			"POST /api/resources/{id}/tags": "Change tags with {addTags, delTags}",
			"GET /files/{id}":               "Raw file contents with ETag",
		},
	}

	utils.JSON(w, http.StatusOK, routes)
}
