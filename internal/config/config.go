// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/gameid and cmd/gameid-api.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	GamesTable      = "canonical_games"
	MappingsTable   = "external_id_mappings"
	MergeLogTable   = "merge_log"
	QuarantineTable = "resolution_quarantine"
)

// Config struct — populated from environment variables
type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Identity resolution
	VerifiedThreshold   float64       // quality score at which a game flips to VERIFIED
	ConflictPenalty     float64       // score deduction per recorded attribute conflict
	DecayAfter          time.Duration // unverified age after which the score starts decaying
	DecayFloor          float64       // recency factor never drops below this
	DisambiguateWindow  time.Duration // game_datetime tolerance for quarantine auto-resolution
	ScoreTolerance      float64       // numeric fields differing by less than this are not conflicts
	ReconcileBatchLimit int           // max candidate pairs per reconciliation pass
	ReconcileLookback   time.Duration // how far back the reconcile sweep scans

	// Maintenance tickers
	ReconcileInterval time.Duration
	RescoreInterval   time.Duration
	ValidateInterval  time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("GAMEID_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or GAMEID_DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		VerifiedThreshold:   envFloat("VERIFIED_THRESHOLD", 0.9),
		ConflictPenalty:     envFloat("CONFLICT_PENALTY", 0.15),
		DecayAfter:          time.Duration(envInt("DECAY_AFTER_HOURS", 48)) * time.Hour,
		DecayFloor:          envFloat("DECAY_FLOOR", 0.6),
		DisambiguateWindow:  time.Duration(envInt("DISAMBIGUATE_WINDOW_MINUTES", 90)) * time.Minute,
		ScoreTolerance:      envFloat("SCORE_TOLERANCE", 0.5),
		ReconcileBatchLimit: envInt("RECONCILE_BATCH_LIMIT", 200),
		ReconcileLookback:   time.Duration(envInt("RECONCILE_LOOKBACK_DAYS", 14)) * 24 * time.Hour,

		ReconcileInterval: time.Duration(envInt("RECONCILE_INTERVAL_MINUTES", 15)) * time.Minute,
		RescoreInterval:   time.Duration(envInt("RESCORE_INTERVAL_MINUTES", 60)) * time.Minute,
		ValidateInterval:  time.Duration(envInt("VALIDATE_INTERVAL_MINUTES", 30)) * time.Minute,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
