// Package api wires the HTTP surface: router, middleware, handlers.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/samlafell/mlb-gameid/internal/api/handler"
	"github.com/samlafell/mlb-gameid/internal/cache"
	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/reliability"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *pgxpool.Pool, appCache *cache.Cache, cfg *config.Config, reg *reliability.Registry, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, appCache, cfg, reg, logger)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Resolution
		r.Post("/resolve", h.PostResolve)
		r.Get("/resolve/{source}/{externalID}", h.GetResolve)

		// Canonical games
		r.Get("/games/{id}", h.GetGame)
		r.Get("/games/{id}/mappings", h.GetGameMappings)
		r.Get("/games/{id}/history", h.GetGameHistory)

		// Quarantine review
		r.Get("/quarantine", h.GetQuarantine)
		r.Post("/quarantine/resolve", h.PostQuarantineResolve)

		// Legacy compatibility reads
		r.Get("/compat/games", h.GetCompatByDate)
		r.Get("/compat/games/{id}", h.GetCompatGame)

		// Admin
		r.Post("/admin/merge", h.PostMerge)
	})

	return r
}
