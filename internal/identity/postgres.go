package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/quality"
	"github.com/samlafell/mlb-gameid/internal/quarantine"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// PostgresStore binds the resolver's Store interface onto the mapping, game,
// and quarantine stores. Outside a lock it queries through the pool; inside
// WithCompositeLock it re-binds itself to the transaction.
type PostgresStore struct {
	pool   *pgxpool.Pool
	q      game.Querier
	reg    *reliability.Registry
	params quality.Params
	logger *slog.Logger
}

// NewPostgresStore builds the production store binding.
func NewPostgresStore(pool *pgxpool.Pool, reg *reliability.Registry, params quality.Params, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool, reg: reg, params: params, logger: logger}
}

func (s *PostgresStore) LookupMapping(ctx context.Context, src source.Source, externalID string) (*mapping.Entry, error) {
	return mapping.Lookup(ctx, s.q, src, externalID)
}

func (s *PostgresStore) InsertMapping(ctx context.Context, e *mapping.Entry) error {
	return mapping.Insert(ctx, s.q, e)
}

func (s *PostgresStore) TouchMapping(ctx context.Context, src source.Source, externalID string, confidence float64) error {
	return mapping.Touch(ctx, s.q, src, externalID, confidence)
}

func (s *PostgresStore) GameByID(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	return game.ByID(ctx, s.q, id)
}

func (s *PostgresStore) FindGames(ctx context.Context, key source.CompositeKey) ([]*game.Game, error) {
	return game.FindByAttributes(ctx, s.q, key.Home, key.Away, key.Date)
}

func (s *PostgresStore) InsertGame(ctx context.Context, g *game.Game) error {
	return game.Insert(ctx, s.q, g)
}

func (s *PostgresStore) SetOutcome(ctx context.Context, id uuid.UUID, home, away *int, winner *string) error {
	_, err := s.q.Exec(ctx, `
		UPDATE canonical_games
		SET home_score = $2, away_score = $3, winning_team = $4, updated_at = NOW()
		WHERE canonical_id = $1 AND status NOT IN ('MERGED','RETIRED')`,
		id, home, away, winner,
	)
	if err != nil {
		return fmt.Errorf("set outcome for %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) RecordConflict(ctx context.Context, id uuid.UUID) error {
	return game.RecordConflict(ctx, s.q, id)
}

func (s *PostgresStore) Quarantine(ctx context.Context, rec *source.Record, key source.CompositeKey, candidates []uuid.UUID) error {
	return quarantine.Add(ctx, s.q, rec, key, candidates)
}

func (s *PostgresStore) UpdateQuality(ctx context.Context, id uuid.UUID) error {
	return quality.Update(ctx, s.q, s.reg, s.params, id, s.logger)
}

// WithCompositeLock serializes create-or-match decisions for one normalized
// composite key. pg_advisory_xact_lock releases with the transaction, so the
// lock is held exactly for the decision's duration.
func (s *PostgresStore) WithCompositeLock(ctx context.Context, key source.CompositeKey, fn func(ctx context.Context, st Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin composite-lock tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key.String()); err != nil {
		return fmt.Errorf("acquire composite lock %q: %w", key, err)
	}

	bound := &PostgresStore{pool: s.pool, q: tx, reg: s.reg, params: s.params, logger: s.logger}
	if err := fn(ctx, bound); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit composite-lock tx: %w", err)
	}
	return nil
}
