// Package main is the entry point for the investigation store provisioning
// tool. It connects to PostgreSQL, applies the schema, and verifies the
// store is reachable.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"investigation-store/internal/config"
	"investigation-store/internal/pkg/db"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Initialize database connection pool
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Apply schema
	if err := pool.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	// Verify the store is usable
	if err := pool.HealthCheck(ctx); err != nil {
		log.Fatal().Err(err).Msg("Store health check failed")
	}

	log.Info().Msg("Investigation store is ready")
}
