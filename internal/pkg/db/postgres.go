// Package db provides PostgreSQL database connection management.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"investigation-store/internal/config"
)

// Pool wraps pgxpool.Pool with additional functionality.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
		poolConfig.MinConns = int32(cfg.PoolSize / 4) // 25% of max as minimum
		if poolConfig.MinConns < 1 {
			poolConfig.MinConns = 1
		}
	}

	// Connection timeouts
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
	}

	// Connection lifetime settings
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		poolConfig.MaxConnLifetime = time.Hour
	}

	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}

	// Health check settings
	poolConfig.HealthCheckPeriod = 30 * time.Second

	log.Info().
		Str("database", poolConfig.ConnConfig.Database).
		Int32("pool_size", poolConfig.MaxConns).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("PostgreSQL connection pool closed")
	}
}

// HealthCheck performs a health check on the database connection.
func (p *Pool) HealthCheck(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// EnsureSchema applies the investigation store schema.
// Statements are idempotent so the schema can be applied on every startup.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	log.Info().Msg("Applying investigation store schema...")

	// Naming profiles. Column defaults mirror model.DefaultNamingProfile.
	_, err := p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS uinames (
			id SERIAL PRIMARY KEY,
			singular_bullet TEXT NOT NULL DEFAULT 'Truth Bullet',
			plural_bullet TEXT NOT NULL DEFAULT 'Truth Bullets',
			singular_truth_bullet_finder TEXT NOT NULL DEFAULT 'Truth Bullet Finder',
			plural_truth_bullet_finder TEXT NOT NULL DEFAULT 'Truth Bullet Finders',
			best_bullet_finder TEXT NOT NULL DEFAULT 'Best {{bullet_finder}}'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create uinames table: %w", err)
	}
	log.Info().Msg("Schema: uinames table ready")

	// Guild configuration. names_id is unique so a naming profile belongs to
	// at most one guild; the cascading delete of an owned profile is handled
	// by the repository layer, the FK only clears dangling references when a
	// profile row is removed directly.
	_, err = p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS uinewconfig (
			guild_id BIGINT PRIMARY KEY,
			bullet_chan_id BIGINT,
			best_bullet_finder_role BIGINT,
			player_role BIGINT,
			bullets_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			investigation_type INT NOT NULL DEFAULT 1,
			names_id INT UNIQUE REFERENCES uinames(id) ON DELETE SET NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create uinewconfig table: %w", err)
	}
	log.Info().Msg("Schema: uinewconfig table ready")

	// Truth bullets. The composite index backs the dominant lookup:
	// resolving a trigger's state within one channel/guild.
	_, err = p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS uinewtruthbullets (
			id SERIAL PRIMARY KEY,
			trigger VARCHAR(100) NOT NULL,
			aliases VARCHAR(40)[] NOT NULL DEFAULT '{}',
			description TEXT NOT NULL,
			channel_id BIGINT NOT NULL,
			guild_id BIGINT NOT NULL,
			found BOOLEAN NOT NULL,
			finder BIGINT,
			hidden BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_truth_bullets_lookup
			ON uinewtruthbullets(trigger, channel_id, guild_id, found);
	`)
	if err != nil {
		return fmt.Errorf("failed to create uinewtruthbullets table: %w", err)
	}
	log.Info().Msg("Schema: uinewtruthbullets table ready")

	log.Info().Msg("Schema applied successfully")
	return nil
}
