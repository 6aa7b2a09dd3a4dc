package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfeidau/tracker/internal/auth"
	"github.com/wolfeidau/tracker/internal/logger"
	"github.com/wolfeidau/tracker/internal/seed"
	"github.com/wolfeidau/tracker/internal/server"
	"github.com/wolfeidau/tracker/internal/store"
	memorystore "github.com/wolfeidau/tracker/internal/store/memory"
	postgresstore "github.com/wolfeidau/tracker/internal/store/postgres"
	"github.com/wolfeidau/tracker/internal/telemetry"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"localhost:8080" env:"TRACKER_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TRACKER_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TRACKER_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:5173" env:"TRACKER_CORS_ORIGINS"`

	// Authentication configuration
	JWTSecret string `help:"secret key for HMAC signing of API tokens" env:"TRACKER_JWT_SECRET" required:""`

	// Development and operational modes
	SeedFile string `help:"YAML fixture file applied at startup (development only)" default:"" env:"TRACKER_SEED_FILE"`
	Tracing  bool   `help:"enable tracing" default:"false" env:"TRACKER_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"TRACKER_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"TRACKER_POSTGRES_AUTO_MIGRATE"`
}

// validate is called from Run when the postgres store is selected, so the
// memory default needs no connection string.
func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if len(c.JWTSecret) < 32 {
		return errors.New("JWT secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "tracker-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create stores based on store type
	var (
		users  store.UserStore
		teams  store.TeamStore
		issues store.IssueStore
	)

	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.validate(); err != nil {
			return fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		// Shared connection pool for all stores
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
			AutoMigrate:     c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		users = postgresstore.NewUserStore(pool)
		teams = postgresstore.NewTeamStore(pool)
		issues = postgresstore.NewIssueStore(pool)

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		memIssues := memorystore.NewIssueStore()
		issues = memIssues
		teams = memorystore.NewTeamStore(memIssues)
		users = memorystore.NewUserStore()
		log.Info().Msg("Using in-memory stores")
	}

	if c.SeedFile != "" {
		fixture, err := seed.Load(c.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}
		if err := seed.Apply(ctx, fixture, seed.Stores{Users: users, Teams: teams, Issues: issues}); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
		log.Info().
			Str("file", c.SeedFile).
			Int("users", len(fixture.Users)).
			Int("teams", len(fixture.Teams)).
			Int("issues", len(fixture.Issues)).
			Msg("Seed fixture applied")
	}

	signer := auth.NewSigner([]byte(c.JWTSecret))
	srv := server.New(users, teams, issues, signer)
	handler := srv.Handler(log, c.CORSOrigins)

	httpServer := configureHTTPServer(c.Listen, handler)

	if c.Cert != "" && c.Key != "" {
		log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
		return httpServer.ListenAndServeTLS(c.Cert, c.Key)
	}

	log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
	return httpServer.ListenAndServe()
}
