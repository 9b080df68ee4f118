// Command gameid-api is the game identity API server.
//
// Usage:
//
//	gameid-api
//	API_PORT=8080 gameid-api

// @title MLB Game Identity API
// @version 1.0.0
// @description Canonical game identity resolution and unification for MLB betting data: external id mapping, duplicate consolidation, quality scoring, quarantine review, and legacy compatibility reads.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name samlafell
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/samlafell/mlb-gameid/internal/api"
	"github.com/samlafell/mlb-gameid/internal/cache"
	"github.com/samlafell/mlb-gameid/internal/compat"
	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/db"
	"github.com/samlafell/mlb-gameid/internal/reconcile"
	"github.com/samlafell/mlb-gameid/internal/reliability"

	_ "github.com/samlafell/mlb-gameid/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Reliability weights (env overrides are a startup error, not a warning)
	reg, err := reliability.FromEnv()
	if err != nil {
		logger.Error("Failed to load reliability weights", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Apply schema and compatibility views (both idempotent)
	if err := pool.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure schema", "error", err)
		os.Exit(1)
	}
	if err := compat.EnsureViews(ctx, pool.Pool, logger); err != nil {
		logger.Error("Failed to ensure compatibility views", "error", err)
		os.Exit(1)
	}

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Start reconciliation tickers (duplicate sweep, decay rescore, orphan audit)
	rc := reconcile.New(pool.Pool, reg, cfg, logger)
	go reconcile.Start(ctx, rc, pool.Pool, reconcile.TickersFromConfig(cfg), logger)

	// Create router
	router := api.NewRouter(pool.Pool, appCache, cfg, reg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting MLB Game Identity API",
			"addr", addr,
			"environment", cfg.Environment,
			"registry_version", reg.Version(),
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
