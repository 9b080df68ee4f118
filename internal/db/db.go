// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap, and health checking.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// EnsureSchema applies the embedded schema. Every statement is idempotent, so
// this is safe to run at every startup of the CLI's initdb command.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the hot-path statements the resolver
// and API use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Resolver: exact external-id lookup
		"mapping_lookup": `
			SELECT m.canonical_id, m.confidence, g.status, g.superseded_by
			FROM external_id_mappings m
			JOIN canonical_games g ON g.canonical_id = m.canonical_id
			WHERE m.source_name = $1 AND m.external_id = $2`,

		// Resolver: composite attribute match over live games
		"games_by_attributes": `
			SELECT canonical_id, home_team, away_team, game_date, game_datetime,
			       season, home_score, away_score, winning_team, status,
			       quality_score, resolution_confidence, conflict_count,
			       superseded_by, created_at, last_verified_at
			FROM canonical_games
			WHERE home_team = $1 AND away_team = $2 AND game_date = $3
			  AND status NOT IN ('MERGED','RETIRED')`,

		// API + merge engine: single game fetch
		"game_by_id": `
			SELECT canonical_id, home_team, away_team, game_date, game_datetime,
			       season, home_score, away_score, winning_team, status,
			       quality_score, resolution_confidence, conflict_count,
			       superseded_by, created_at, last_verified_at
			FROM canonical_games
			WHERE canonical_id = $1`,

		// Quality scorer inputs
		"mapping_sources_for_game": `
			SELECT source_name, confidence, last_verified_at
			FROM external_id_mappings
			WHERE canonical_id = $1`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
