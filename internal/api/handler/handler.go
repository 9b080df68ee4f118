// Package handler provides HTTP handlers for all API endpoints.
// Handlers query Postgres directly via pgxpool — no service layer. Reads go
// through the in-memory cache with ETag revalidation; resolution writes
// bypass it.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/api/respond"
	"github.com/samlafell/mlb-gameid/internal/cache"
	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/identity"
	"github.com/samlafell/mlb-gameid/internal/merge"
	"github.com/samlafell/mlb-gameid/internal/quality"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/rewrite"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool     *pgxpool.Pool
	cache    *cache.Cache
	cfg      *config.Config
	reg      *reliability.Registry
	params   quality.Params
	resolver *identity.Resolver
	engine   *merge.Engine
	rewriter *rewrite.Rewriter
	logger   *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, c *cache.Cache, cfg *config.Config, reg *reliability.Registry, logger *slog.Logger) *Handler {
	params := quality.ParamsFromConfig(cfg)
	store := identity.NewPostgresStore(pool, reg, params, logger)
	return &Handler{
		pool:     pool,
		cache:    c,
		cfg:      cfg,
		reg:      reg,
		params:   params,
		resolver: identity.New(store, reg, source.StandardNormalizer{}, logger),
		engine:   merge.NewEngine(pool, reg, params, cfg.DisambiguateWindow, logger),
		rewriter: rewrite.New(pool, logger),
		logger:   logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "MLB Game Identity API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"sources": source.All,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
