package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/merge"
	"github.com/samlafell/mlb-gameid/internal/quality"
	"github.com/samlafell/mlb-gameid/internal/quarantine"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/rewrite"
)

// Reconciler finds and consolidates composite duplicates.
type Reconciler struct {
	pool     *pgxpool.Pool
	engine   *merge.Engine
	rewriter *rewrite.Rewriter
	reg      *reliability.Registry
	params   quality.Params
	window   time.Duration
	lookback time.Duration
	limit    int
	logger   *slog.Logger
}

// New wires a reconciler from the shared configuration.
func New(pool *pgxpool.Pool, reg *reliability.Registry, cfg *config.Config, logger *slog.Logger) *Reconciler {
	params := quality.ParamsFromConfig(cfg)
	return &Reconciler{
		pool:     pool,
		engine:   merge.NewEngine(pool, reg, params, cfg.DisambiguateWindow, logger),
		rewriter: rewrite.New(pool, logger),
		reg:      reg,
		params:   params,
		window:   cfg.DisambiguateWindow,
		lookback: cfg.ReconcileLookback,
		limit:    cfg.ReconcileBatchLimit,
		logger:   logger,
	}
}

type duplicatePair struct {
	a, b uuid.UUID
}

// Run executes one reconciliation pass: merge duplicate pairs, rewrite their
// dependent references, then attempt quarantine disambiguation. Individual
// pair failures are recorded and do not stop the pass.
func (rc *Reconciler) Run(ctx context.Context) *Result {
	res := &Result{}

	pairs, err := rc.findDuplicatePairs(ctx)
	if err != nil {
		res.AddErrorf("find duplicate pairs: %v", err)
		return res
	}
	res.PairsFound = len(pairs)

	for _, p := range pairs {
		mr, err := rc.engine.Merge(ctx, p.a, p.b, "reconciliation: duplicate composite key", "reconciler")
		if err != nil {
			res.AddErrorf("merge %s/%s: %v", p.a, p.b, err)
			continue
		}
		if mr.AlreadyMerged {
			continue
		}
		res.PairsMerged++
		res.MappingsRepointed += mr.RepointedMappings

		report, err := rc.rewriter.Run(ctx, mr.LosingID, mr.SurvivingID)
		if err != nil {
			// The merge is committed; the rewrite resumes on the next pass
			// and the orphan validator flags the gap until it does.
			res.AddErrorf("rewrite after merge %s -> %s: %v", mr.LosingID, mr.SurvivingID, err)
		}
		if report != nil {
			for _, t := range report.Tables {
				res.RowsRewritten += t.Repointed
			}
		}
	}

	resolved, err := quarantine.Disambiguate(ctx, rc.pool, rc.reg, rc.params, rc.window, rc.logger)
	if err != nil {
		res.AddErrorf("quarantine disambiguation: %v", err)
	}
	res.QuarantineResolved = resolved

	rc.logger.Info("Reconciliation pass complete", "summary", res.Summary())
	return res
}

// findDuplicatePairs returns live game pairs sharing a composite key within
// the lookback window. Pairs whose datetimes are both known and further apart
// than the disambiguation window are legitimate doubleheaders, not
// duplicates, and are excluded.
func (rc *Reconciler) findDuplicatePairs(ctx context.Context) ([]duplicatePair, error) {
	rows, err := rc.pool.Query(ctx, fmt.Sprintf(`
		SELECT a.canonical_id, b.canonical_id
		FROM %[1]s a
		JOIN %[1]s b
		  ON a.home_team = b.home_team
		 AND a.away_team = b.away_team
		 AND a.game_date = b.game_date
		 AND a.canonical_id < b.canonical_id
		WHERE a.status NOT IN ('MERGED','RETIRED')
		  AND b.status NOT IN ('MERGED','RETIRED')
		  AND a.game_date >= $1
		  AND NOT (
		        a.game_datetime IS NOT NULL
		    AND b.game_datetime IS NOT NULL
		    AND ABS(EXTRACT(EPOCH FROM a.game_datetime - b.game_datetime)) > $2
		  )
		ORDER BY a.game_date, a.canonical_id
		LIMIT $3`, config.GamesTable),
		time.Now().UTC().Add(-rc.lookback), rc.window.Seconds(), rc.limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query duplicate pairs: %w", err)
	}
	defer rows.Close()

	var pairs []duplicatePair
	for rows.Next() {
		var p duplicatePair
		if err := rows.Scan(&p.a, &p.b); err != nil {
			return nil, fmt.Errorf("scan duplicate pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Rescore refreshes quality scores for games whose last verification is older
// than the decay horizon, so recency decay shows up without new evidence
// arriving. Returns the number of games rescored.
func (rc *Reconciler) Rescore(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-rc.params.DecayAfter)
	ids, err := game.ListStale(ctx, rc.pool, cutoff, limit)
	if err != nil {
		return 0, err
	}
	rescored := 0
	for _, id := range ids {
		if err := quality.Update(ctx, rc.pool, rc.reg, rc.params, id, rc.logger); err != nil {
			rc.logger.Warn("Decay rescore failed", "canonical_id", id, "error", err)
			continue
		}
		rescored++
	}
	if rescored > 0 {
		rc.logger.Info("Decay rescore complete", "rescored", rescored, "cutoff", cutoff)
	}
	return rescored, nil
}
