// Package compat maintains read-only views exposing the pre-unification
// table shapes. Downstream consumers that grew up on the wide
// one-column-per-source mapping row keep working against these views while
// the normalized tables stay the single source of truth. Nothing here
// writes.
package compat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// WideViewName is the legacy one-row-per-game mapping view.
const WideViewName = "game_id_mappings_compat"

// EnsureViews creates or replaces the compatibility views. Idempotent;
// called at startup after the schema is applied.
func EnsureViews(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if _, err := pool.Exec(ctx, wideViewDDL()); err != nil {
		return fmt.Errorf("create view %s: %w", WideViewName, err)
	}
	for _, src := range source.All {
		if _, err := pool.Exec(ctx, sourceViewDDL(src)); err != nil {
			return fmt.Errorf("create view for %s: %w", src, err)
		}
	}
	logger.Info("Compatibility views ensured", "wide", WideViewName, "per_source", len(source.All))
	return nil
}

// wideViewDDL builds the legacy wide row: one external-id column per source,
// primary_source being the highest-confidence live mapping. Merged and
// retired games are excluded; their mappings already point at survivors.
func wideViewDDL() string {
	var cols strings.Builder
	for _, src := range source.All {
		fmt.Fprintf(&cols,
			"    MAX(m.external_id) FILTER (WHERE m.source_name = '%s') AS %s_game_id,\n",
			src, src)
	}
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS
SELECT
    g.canonical_id,
%s    (
        SELECT p.source_name FROM external_id_mappings p
        WHERE p.canonical_id = g.canonical_id
        ORDER BY p.confidence DESC, p.source_name
        LIMIT 1
    ) AS primary_source,
    g.home_team, g.away_team, g.game_date, g.game_datetime,
    g.status, g.quality_score, g.resolution_confidence,
    g.last_verified_at, g.created_at, g.updated_at
FROM canonical_games g
LEFT JOIN external_id_mappings m ON m.canonical_id = g.canonical_id
WHERE g.status NOT IN ('MERGED','RETIRED')
GROUP BY g.canonical_id`, WideViewName, cols.String())
}

// sourceViewDDL builds the per-source projection legacy ingest jobs read:
// that source's external id next to the canonical identity.
func sourceViewDDL(src source.Source) string {
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s_games_compat AS
SELECT
    m.external_id AS %s_game_id,
    g.canonical_id, g.home_team, g.away_team, g.game_date, g.game_datetime,
    g.home_score, g.away_score, g.winning_team, g.status, g.last_verified_at
FROM external_id_mappings m
JOIN canonical_games g ON g.canonical_id = m.canonical_id
WHERE m.source_name = '%s'
  AND g.status NOT IN ('MERGED','RETIRED')`, src, src, src)
}

// WideRow is the legacy mapping row shape.
type WideRow struct {
	CanonicalID          uuid.UUID                 `json:"canonical_id"`
	ExternalIDs          map[source.Source]*string `json:"external_ids"`
	PrimarySource        *string                   `json:"primary_source"`
	HomeTeam             string                    `json:"home_team"`
	AwayTeam             string                    `json:"away_team"`
	GameDate             time.Time                 `json:"game_date"`
	GameDatetime         *time.Time                `json:"game_datetime,omitempty"`
	Status               string                    `json:"status"`
	QualityScore         float64                   `json:"quality_score"`
	ResolutionConfidence float64                   `json:"resolution_confidence"`
	LastVerifiedAt       *time.Time                `json:"last_verified_at,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// WideByID reads one legacy row from the wide view.
func WideByID(ctx context.Context, q game.Querier, id uuid.UUID) (*WideRow, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(
		"SELECT * FROM %s WHERE canonical_id = $1", WideViewName), id)
	if err != nil {
		return nil, fmt.Errorf("read compat row %s: %w", id, err)
	}
	defer rows.Close()
	out, err := scanWide(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, game.ErrNotFound
	}
	return out[0], nil
}

// WideByDate lists legacy rows for one game date.
func WideByDate(ctx context.Context, q game.Querier, date time.Time) ([]*WideRow, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(
		"SELECT * FROM %s WHERE game_date = $1 ORDER BY game_datetime NULLS LAST, canonical_id",
		WideViewName), date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("read compat rows for %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return scanWide(rows)
}

// scanWide scans the view's column order: canonical_id, one id per source in
// source.All order, primary_source, then the game columns.
func scanWide(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*WideRow, error) {
	var out []*WideRow
	for rows.Next() {
		w := &WideRow{ExternalIDs: make(map[source.Source]*string, len(source.All))}
		dest := []any{&w.CanonicalID}
		ids := make([]*string, len(source.All))
		for i := range source.All {
			dest = append(dest, &ids[i])
		}
		dest = append(dest, &w.PrimarySource,
			&w.HomeTeam, &w.AwayTeam, &w.GameDate, &w.GameDatetime,
			&w.Status, &w.QualityScore, &w.ResolutionConfidence,
			&w.LastVerifiedAt, &w.CreatedAt, &w.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan compat row: %w", err)
		}
		for i, src := range source.All {
			w.ExternalIDs[src] = ids[i]
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
