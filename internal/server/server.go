// Package server provides the HTTP server for the ftag application.
// It handles routing, middleware configuration, and server lifecycle management.
//
// Initialization follows a fixed order with explicit dependency injection:
// local storage → auth → services → handlers → routes. Start blocks until a
// shutdown signal arrives and then drains in-flight requests.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/config"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/database"
	"github.com/blubywaff/ftag/internal/handlers"
	"github.com/blubywaff/ftag/internal/kvstore"
	"github.com/blubywaff/ftag/internal/repository"
	"github.com/blubywaff/ftag/internal/service"
	"github.com/blubywaff/ftag/internal/settings"
	"github.com/blubywaff/ftag/internal/utils/ratelimit"
	"github.com/blubywaff/ftag/migrations"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	// ClientHandler issues and forgets client identities
	ClientHandler *handlers.ClientHandler

	// SettingsHandler manages display preference endpoints
	SettingsHandler *handlers.SettingsHandler

	// ResourceHandler manages upload, query, tag and file endpoints
	ResourceHandler *handlers.ResourceHandler
}

// Server represents the API server for the ftag application.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Db provides database access
	Db *database.Pool

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	router     chi.Router
	httpServer *http.Server

	tokens          *auth.ClientTokenService
	limiter         *ratelimit.Store
	storage         service.StorageProvider
	bolt            *kvstore.Bolt
	settingsService *service.SettingsService
	resources       *service.ResourceService

	// stopMaintenance cancels the background maintenance loop
	stopMaintenance context.CancelFunc
}

// NewServer connects to the configured database, applies pending migrations
// and builds a server on top of the connection.
//
// Parameters:
//   - cfg: Application configuration
//
// Returns:
//   - A fully initialized Server instance ready to start
//   - An error if any component fails to initialize
func NewServer(cfg *config.AppConfig) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.MigrationTimeout)
	defer cancel()
	if err := migrations.NewMigrator(db).RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s, err := New(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New builds a server around an already connected database.
func New(cfg *config.AppConfig, db *database.Pool) (*Server, error) {
	s := &Server{
		Config: cfg,
		Db:     db,
	}

	if err := s.setupStorage(); err != nil {
		return nil, fmt.Errorf("failed to set up local storage: %w", err)
	}

	s.setupAuth()
	s.setupServices()
	s.setupHandlers()
	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// setupStorage selects the backend holding each client's local storage.
func (s *Server) setupStorage() error {
	switch s.Config.Storage.Backend {
	case constants.StorageBackendSQL, "":
		s.storage = sqlStorage{repo: repository.NewLocalStorageRepository(s.Db)}
	case constants.StorageBackendBolt:
		b, err := kvstore.OpenBolt(s.Config.Storage.BoltPath)
		if err != nil {
			return err
		}
		s.bolt = b
		s.storage = boltStorage{b}
	case constants.StorageBackendMemory:
		s.storage = memoryStorage{kvstore.NewMemory()}
	default:
		return fmt.Errorf("unknown storage backend %q", s.Config.Storage.Backend)
	}

	log.Info().Str("backend", s.Config.Storage.Backend).Msg("Local storage backend ready")
	return nil
}

// setupAuth creates the client token service and the write rate limiter.
func (s *Server) setupAuth() {
	s.tokens = auth.NewClientTokenService(&s.Config.ClientToken)
	s.limiter = ratelimit.NewStore(ratelimit.Rate{
		WritesPerSecond: s.Config.RateLimit.WritesPerSecond,
		Burst:           s.Config.RateLimit.Burst,
	}, constants.RateLimitIdleExpiry)
}

func (s *Server) setupServices() {
	s.settingsService = service.NewSettingsService(s.storage, settings.WithDefaults(s.Config.Settings.Defaults()))
	s.resources = service.NewResourceService(
		repository.NewResourceRepository(s.Db),
		s.settingsService,
		s.Config.Files.Dir,
		s.Config.Files.MaxUploadSize,
	)
}

func (s *Server) setupHandlers() {
	s.Handlers = &Handlers{
		ClientHandler:   handlers.NewClientHandler(s.tokens, s.settingsService),
		SettingsHandler: handlers.NewSettingsHandler(s.settingsService),
		ResourceHandler: handlers.NewResourceHandler(s.resources, s.Config.Files.MaxUploadSize),
	}
}

// Reconcile removes stored files without a resource record and records whose file is gone.
func (s *Server) Reconcile(ctx context.Context) (*service.ReconcileReport, error) {
	return s.resources.Reconcile(ctx)
}

// Start starts the HTTP server and blocks until it fails or a shutdown signal arrives.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", s.Config.Server.ServerAddress()).
			Msg("Starting server")

		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	s.SetupMaintenanceTasks()

	select {
	case err := <-serverErrors:
		s.stopBackground()
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().
			Str("signal", sig.String()).
			Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests and releases the server's resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info().Msg("Server stopped gracefully")
	s.stopBackground()

	if s.bolt != nil {
		if err := s.bolt.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close bolt local storage")
		}
	}

	s.Db.Close()
	log.Info().Msg("Database connection closed")

	return nil
}

func (s *Server) stopBackground() {
	if s.stopMaintenance != nil {
		s.stopMaintenance()
		s.stopMaintenance = nil
	}
}

// SetupMaintenanceTasks starts the background loops: rate limiter eviction
// and a periodic reconcile of the files directory against the database.
func (s *Server) SetupMaintenanceTasks() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopMaintenance = cancel

	go s.limiter.Run(ctx, constants.RateLimitCleanupInterval)

	go func() {
		ticker := time.NewTicker(constants.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, runCancel := context.WithTimeout(ctx, constants.ReconcileTimeout)
				report, err := s.Reconcile(runCtx)
				runCancel()
				if err != nil {
					log.Error().Err(err).Msg("Failed to reconcile stored files")
					continue
				}
				if len(report.RemovedFiles) > 0 || len(report.RemovedRecords) > 0 {
					log.Info().
						Int("files", len(report.RemovedFiles)).
						Int("records", len(report.RemovedRecords)).
						Msg("Reconciled stored files")
				}
			}
		}
	}()
}
