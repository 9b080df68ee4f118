package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx, so store
// functions run identically inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound reports a canonical id with no row.
var ErrNotFound = errors.New("canonical game not found")

// Insert persists a new canonical game.
func Insert(ctx context.Context, q Querier, g *Game) error {
	_, err := q.Exec(ctx, `
		INSERT INTO canonical_games (
			canonical_id, home_team, away_team, game_date, game_datetime,
			season, home_score, away_score, winning_team, status,
			quality_score, resolution_confidence, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		g.ID, g.HomeTeam, g.AwayTeam, g.GameDate, g.GameDatetime,
		g.Season, g.HomeScore, g.AwayScore, g.WinningTeam, g.Status,
		g.QualityScore, g.ResolutionConfidence, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert canonical game %s: %w", g.ID, err)
	}
	return nil
}

// ByID fetches one canonical game.
func ByID(ctx context.Context, q Querier, id uuid.UUID) (*Game, error) {
	g, err := scanGame(q.QueryRow(ctx, "game_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch game %s: %w", id, err)
	}
	return g, nil
}

// ForUpdate fetches one canonical game holding its row lock for the rest of
// the transaction. The merge engine locks both sides in canonical_id order so
// two merges touching the same entity serialize instead of both winning.
func ForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*Game, error) {
	g, err := scanGame(q.QueryRow(ctx, `
		SELECT canonical_id, home_team, away_team, game_date, game_datetime,
		       season, home_score, away_score, winning_team, status,
		       quality_score, resolution_confidence, conflict_count,
		       superseded_by, created_at, last_verified_at
		FROM canonical_games
		WHERE canonical_id = $1
		FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock game %s: %w", id, err)
	}
	return g, nil
}

// FindByAttributes returns all live games matching the normalized composite
// key. More than one result means the caller is looking at a doubleheader or
// bad data and must not guess.
func FindByAttributes(ctx context.Context, q Querier, home, away string, date time.Time) ([]*Game, error) {
	rows, err := q.Query(ctx, "games_by_attributes", home, away, date)
	if err != nil {
		return nil, fmt.Errorf("find games by attributes: %w", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// SetScore writes the quality score, confidence, and status computed by the
// scorer. Terminal states are never written through this path.
func SetScore(ctx context.Context, q Querier, id uuid.UUID, quality, confidence float64, status Status, verifiedAt *time.Time) error {
	if !status.Live() {
		return fmt.Errorf("set score on %s: status %s only reachable through the merge engine", id, status)
	}
	tag, err := q.Exec(ctx, `
		UPDATE canonical_games
		SET quality_score = $2, resolution_confidence = $3, status = $4,
		    last_verified_at = COALESCE($5, last_verified_at), updated_at = NOW()
		WHERE canonical_id = $1 AND status NOT IN ('MERGED','RETIRED')`,
		id, quality, confidence, status, verifiedAt,
	)
	if err != nil {
		return fmt.Errorf("set score for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordConflict bumps the conflict counter and demotes VERIFIED to PARTIAL.
func RecordConflict(ctx context.Context, q Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE canonical_games
		SET conflict_count = conflict_count + 1,
		    status = CASE WHEN status = 'VERIFIED' THEN 'PARTIAL' ELSE status END,
		    updated_at = NOW()
		WHERE canonical_id = $1 AND status NOT IN ('MERGED','RETIRED')`,
		id,
	)
	if err != nil {
		return fmt.Errorf("record conflict for %s: %w", id, err)
	}
	return nil
}

// Retire marks a game MERGED with its survivor reference. Only the merge
// engine calls this, inside the consolidation transaction.
func Retire(ctx context.Context, q Querier, id, survivor uuid.UUID) error {
	tag, err := q.Exec(ctx, `
		UPDATE canonical_games
		SET status = 'MERGED', superseded_by = $2, updated_at = NOW()
		WHERE canonical_id = $1 AND status NOT IN ('MERGED','RETIRED')`,
		id, survivor,
	)
	if err != nil {
		return fmt.Errorf("retire game %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStale returns live game ids whose last verification is older than the
// cutoff. The decay rescore ticker feeds these back through the scorer.
func ListStale(ctx context.Context, q Querier, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `
		SELECT canonical_id FROM canonical_games
		WHERE status NOT IN ('MERGED','RETIRED')
		  AND COALESCE(last_verified_at, created_at) < $1
		ORDER BY COALESCE(last_verified_at, created_at)
		LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale games: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGame(row pgx.Row) (*Game, error) {
	var g Game
	err := row.Scan(
		&g.ID, &g.HomeTeam, &g.AwayTeam, &g.GameDate, &g.GameDatetime,
		&g.Season, &g.HomeScore, &g.AwayScore, &g.WinningTeam, &g.Status,
		&g.QualityScore, &g.ResolutionConfidence, &g.ConflictCount,
		&g.SupersededBy, &g.CreatedAt, &g.LastVerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
