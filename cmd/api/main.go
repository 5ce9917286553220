// Package main is the entry point for the ftag API server, which stores
// tagged files and serves each client's display settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/config"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/server"
	"github.com/blubywaff/ftag/internal/utils"
)

// Version information is set during build time through linker flags.
var (
	// version represents the release version of the application.
	version = "dev"

	// commit is the git commit hash from which the application was built.
	commit = "none"

	// buildDate is the timestamp when the application was built.
	buildDate = "unknown"
)

// init loads environment variables from a .env file if present.
func init() {
	// Configuration may come from the real environment instead
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found or couldn't be loaded")
	}
}

func main() {
	var (
		configPath  string
		showVersion bool
		reconcile   bool
	)

	flag.StringVar(&configPath, "config", "./configs/config.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&reconcile, "reconcile", false, "Remove stray files and orphaned resource records, then exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("ftag API Server\nVersion: %s\nCommit: %s\nBuild Date: %s\n", version, commit, buildDate)
		os.Exit(0)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.App.Version = version
	}

	utils.InitLogger(cfg)

	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting ftag API Server")

	utils.InitValidator()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	if reconcile {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ReconcileTimeout)
		report, err := srv.Reconcile(ctx)
		cancel()
		srv.Db.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Reconcile failed")
		}
		log.Info().
			Strs("files", report.RemovedFiles).
			Strs("records", report.RemovedRecords).
			Msg("Reconcile finished")
		return
	}

	// Blocks until termination
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
