package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/quality"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Engine performs transactional consolidation of canonical game pairs.
type Engine struct {
	pool              *pgxpool.Pool
	reg               *reliability.Registry
	params            quality.Params
	datetimeTolerance time.Duration
	logger            *slog.Logger
}

// NewEngine builds a merge engine.
func NewEngine(pool *pgxpool.Pool, reg *reliability.Registry, params quality.Params, datetimeTolerance time.Duration, logger *slog.Logger) *Engine {
	return &Engine{pool: pool, reg: reg, params: params, datetimeTolerance: datetimeTolerance, logger: logger}
}

// Result reports one consolidation.
type Result struct {
	SurvivingID       uuid.UUID   `json:"surviving_id"`
	LosingID          uuid.UUID   `json:"losing_id"`
	RepointedMappings int64       `json:"repointed_mappings"`
	Diffs             []FieldDiff `json:"attribute_diffs"`
	Conflicts         int         `json:"conflicts"`
	AlreadyMerged     bool        `json:"already_merged"`
}

// Merge consolidates two canonical games. The whole operation — attribute
// fold, mapping re-point, loser retirement, audit log — commits atomically or
// not at all. Re-running on an already-merged pair is a no-op.
//
// Dependent fact tables are NOT rewritten here; the caller runs the reference
// rewriter afterwards and must not consider the merge complete until every
// registered table is clean.
func (e *Engine) Merge(ctx context.Context, aID, bID uuid.UUID, reason, decidedBy string) (*Result, error) {
	if aID == bID {
		return nil, fmt.Errorf("merge %s with itself", aID)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both rows in id order so concurrent merges over the same pair
	// serialize instead of deadlocking or double-winning.
	firstID, secondID := aID, bID
	if secondID.String() < firstID.String() {
		firstID, secondID = secondID, firstID
	}
	first, err := game.ForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := game.ForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, err
	}

	if done := alreadyMerged(first, second); done != nil {
		return done, nil
	}
	if !first.Status.Live() || !second.Status.Live() {
		return nil, fmt.Errorf("merge %s/%s: both games must be live (%s, %s)",
			first.ID, second.ID, first.Status, second.Status)
	}

	firstWeight, err := e.aggregateWeight(ctx, tx, first.ID)
	if err != nil {
		return nil, err
	}
	secondWeight, err := e.aggregateWeight(ctx, tx, second.ID)
	if err != nil {
		return nil, err
	}

	survivor, loser := ChooseSurvivor(first, second, firstWeight, secondWeight)
	survivorWeight, loserWeight := firstWeight, secondWeight
	if survivor != first {
		survivorWeight, loserWeight = secondWeight, firstWeight
	}

	diffs, conflicts := MergeFields(survivor, loser, survivorWeight, loserWeight, e.datetimeTolerance)

	_, err = tx.Exec(ctx, `
		UPDATE canonical_games
		SET home_score = $2, away_score = $3, winning_team = $4,
		    game_datetime = $5, conflict_count = conflict_count + $6,
		    status = CASE WHEN $6 > 0 AND status = 'VERIFIED' THEN 'PARTIAL' ELSE status END,
		    updated_at = NOW()
		WHERE canonical_id = $1`,
		survivor.ID, survivor.HomeScore, survivor.AwayScore, survivor.WinningTeam,
		survivor.GameDatetime, conflicts,
	)
	if err != nil {
		return nil, fmt.Errorf("apply merged attributes to %s: %w", survivor.ID, err)
	}

	repointed, err := mapping.Repoint(ctx, tx, loser.ID, survivor.ID)
	if err != nil {
		return nil, err
	}
	if err := game.Retire(ctx, tx, loser.ID, survivor.ID); err != nil {
		return nil, err
	}

	diffJSON, err := json.Marshal(diffs)
	if err != nil {
		return nil, fmt.Errorf("marshal attribute diffs: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO merge_log (losing_id, surviving_id, reason, attribute_diffs, registry_version, decided_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (losing_id) DO NOTHING`,
		loser.ID, survivor.ID, reason, diffJSON, e.reg.Version(), decidedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("write merge log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// A previous merge already retired this loser; the row locks make
		// this unreachable in practice, but never double-log.
		return &Result{SurvivingID: survivor.ID, LosingID: loser.ID, AlreadyMerged: true}, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit merge tx: %w", err)
	}

	// Rescore outside the merge transaction; scoring failure does not undo
	// a committed consolidation.
	if err := quality.Update(ctx, e.pool, e.reg, e.params, survivor.ID, e.logger); err != nil {
		e.logger.Warn("Post-merge rescore failed", "canonical_id", survivor.ID, "error", err)
	}

	e.logger.Info("Canonical games merged",
		"surviving_id", survivor.ID, "losing_id", loser.ID,
		"repointed_mappings", repointed, "conflicts", conflicts,
		"reason", reason, "decided_by", decidedBy)

	return &Result{
		SurvivingID:       survivor.ID,
		LosingID:          loser.ID,
		RepointedMappings: repointed,
		Diffs:             diffs,
		Conflicts:         conflicts,
	}, nil
}

// alreadyMerged recognizes a pair that a previous run consolidated, in
// either direction.
func alreadyMerged(a, b *game.Game) *Result {
	if a.Status == game.StatusMerged && a.SupersededBy != nil && *a.SupersededBy == b.ID {
		return &Result{SurvivingID: b.ID, LosingID: a.ID, AlreadyMerged: true}
	}
	if b.Status == game.StatusMerged && b.SupersededBy != nil && *b.SupersededBy == a.ID {
		return &Result{SurvivingID: a.ID, LosingID: b.ID, AlreadyMerged: true}
	}
	return nil
}

// aggregateWeight sums the reliability of the distinct sources corroborating
// a game — the survivor-selection tie-break.
func (e *Engine) aggregateWeight(ctx context.Context, q game.Querier, id uuid.UUID) (float64, error) {
	inputs, err := mapping.ScoringInputs(ctx, q, id)
	if err != nil {
		return 0, err
	}
	sources := make([]source.Source, len(inputs))
	for i, in := range inputs {
		sources[i] = in.Source
	}
	return e.reg.Sum(sources), nil
}

// LogEntry is one merge audit row.
type LogEntry struct {
	ID              int64           `json:"id"`
	LosingID        uuid.UUID       `json:"losing_id"`
	SurvivingID     uuid.UUID       `json:"surviving_id"`
	Reason          string          `json:"reason"`
	AttributeDiffs  json.RawMessage `json:"attribute_diffs"`
	RegistryVersion string          `json:"registry_version"`
	DecidedBy       string          `json:"decided_by"`
	DecidedAt       time.Time       `json:"decided_at"`
}

// History returns merge audit rows touching a canonical id, newest first.
func History(ctx context.Context, q game.Querier, id uuid.UUID) ([]*LogEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, losing_id, surviving_id, reason, attribute_diffs,
		       registry_version, decided_by, decided_at
		FROM merge_log
		WHERE losing_id = $1 OR surviving_id = $1
		ORDER BY decided_at DESC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("merge history for %s: %w", id, err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var le LogEntry
		if err := rows.Scan(&le.ID, &le.LosingID, &le.SurvivingID, &le.Reason,
			&le.AttributeDiffs, &le.RegistryVersion, &le.DecidedBy, &le.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan merge log: %w", err)
		}
		entries = append(entries, &le)
	}
	return entries, rows.Err()
}
