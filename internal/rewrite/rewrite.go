// Package rewrite re-points dependent fact-table references from a retired
// canonical id to its survivor. Every dependent table is registered here with
// its uniqueness constraint and a deduplication policy for the row collisions
// a re-point can produce. Each table runs in its own transaction so a failure
// leaves earlier tables finished and the run resumable.
package rewrite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Policy decides which row survives when a re-point collides two rows that
// now share the same uniqueness key.
type Policy string

const (
	// KeepMostRecent keeps the row the order expression ranks first and
	// deletes the rest.
	KeepMostRecent Policy = "keep_most_recent"
	// KeepMostComplete keeps the row with the most populated value columns.
	KeepMostComplete Policy = "keep_most_complete"
	// Manual refuses to deduplicate: the table's transaction rolls back and
	// the collision is reported for a human decision.
	Manual Policy = "manual"
)

// Table registers one dependent fact table. Identifiers are compile-time
// constants from this registry, never caller input.
type Table struct {
	Name       string
	FKColumn   string
	Constraint string
	// UniqueColumns are the constraint columns beyond the FK column.
	UniqueColumns []string
	Policy        Policy
	// OrderExpr ranks rows within a colliding group, best first. Unused for
	// Manual.
	OrderExpr string
}

// Registry lists every table carrying canonical game references, in rewrite
// order. New fact tables must be added here or the orphan validator will
// never see them.
func Registry() []Table {
	return []Table{
		{
			Name:          "line_movements",
			FKColumn:      "game_id",
			Constraint:    "uq_line_movements",
			UniqueColumns: []string{"sportsbook", "market", "recorded_at"},
			Policy:        KeepMostRecent,
			OrderExpr:     "recorded_at DESC, id DESC",
		},
		{
			Name:          "sharp_actions",
			FKColumn:      "game_id",
			Constraint:    "uq_sharp_actions",
			UniqueColumns: []string{"market", "detected_at"},
			Policy:        KeepMostRecent,
			OrderExpr:     "detected_at DESC, id DESC",
		},
		{
			Name:          "betting_splits",
			FKColumn:      "game_id",
			Constraint:    "uq_betting_splits",
			UniqueColumns: []string{"market", "sampled_at"},
			Policy:        KeepMostComplete,
			OrderExpr:     "(bets_pct IS NOT NULL)::int + (handle_pct IS NOT NULL)::int DESC, sampled_at DESC, id DESC",
		},
		{
			// Feature payloads are expensive to recompute and versions are
			// meaningful; collisions here need a human decision.
			Name:          "game_features",
			FKColumn:      "game_id",
			Constraint:    "uq_game_features",
			UniqueColumns: []string{"feature_set", "feature_version"},
			Policy:        Manual,
		},
	}
}

// TableReport is the outcome for one table.
type TableReport struct {
	Table     string `json:"table"`
	Repointed int64  `json:"repointed"`
	Deduped   int64  `json:"deduped"`
	Error     string `json:"error,omitempty"`
}

// Report aggregates a full rewrite run.
type Report struct {
	OldID  uuid.UUID     `json:"old_id"`
	NewID  uuid.UUID     `json:"new_id"`
	Tables []TableReport `json:"tables"`
}

// Failed reports whether any table was left unrewritten.
func (r *Report) Failed() bool {
	for _, t := range r.Tables {
		if t.Error != "" {
			return true
		}
	}
	return false
}

// Summary renders a one-line per-table account for logs and CLI output.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rewrite %s -> %s:", r.OldID, r.NewID)
	for _, t := range r.Tables {
		if t.Error != "" {
			fmt.Fprintf(&b, "\n  %s: FAILED: %s", t.Table, t.Error)
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %d repointed, %d deduplicated", t.Table, t.Repointed, t.Deduped)
	}
	return b.String()
}

// Rewriter re-points fact-table references after a merge.
type Rewriter struct {
	pool   *pgxpool.Pool
	tables []Table
	logger *slog.Logger
}

// New builds a rewriter over the standard table registry.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Rewriter {
	return &Rewriter{pool: pool, tables: Registry(), logger: logger}
}

// Run re-points every registered table from oldID to newID. Tables are
// processed independently: one table failing does not stop the rest, and
// re-running after a partial failure only touches the rows still carrying
// oldID. The returned Report always covers every table; the error is non-nil
// when any table failed.
func (rw *Rewriter) Run(ctx context.Context, oldID, newID uuid.UUID) (*Report, error) {
	if oldID == newID {
		return nil, fmt.Errorf("rewrite %s to itself", oldID)
	}
	report := &Report{OldID: oldID, NewID: newID}
	for _, t := range rw.tables {
		tr := TableReport{Table: t.Name}
		repointed, deduped, err := rw.rewriteTable(ctx, t, oldID, newID)
		tr.Repointed, tr.Deduped = repointed, deduped
		if err != nil {
			tr.Error = err.Error()
			rw.logger.Error("Table rewrite failed", "table", t.Name, "old_id", oldID, "new_id", newID, "error", err)
		} else if repointed > 0 || deduped > 0 {
			rw.logger.Info("Table references rewritten",
				"table", t.Name, "old_id", oldID, "new_id", newID,
				"repointed", repointed, "deduplicated", deduped)
		}
		report.Tables = append(report.Tables, tr)
	}
	if report.Failed() {
		return report, fmt.Errorf("rewrite %s -> %s left tables unrewritten", oldID, newID)
	}
	return report, nil
}

// rewriteTable handles one table in one transaction: suspend the uniqueness
// constraint, re-point, resolve collisions per policy, restore the
// constraint. Any error rolls the whole table back, constraint included.
func (rw *Rewriter) rewriteTable(ctx context.Context, t Table, oldID, newID uuid.UUID) (repointed, deduped int64, err error) {
	tx, err := rw.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin rewrite tx for %s: %w", t.Name, err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent rewrites of the same table.
	if _, err := tx.Exec(ctx, fmt.Sprintf("LOCK TABLE %s IN SHARE ROW EXCLUSIVE MODE", t.Name)); err != nil {
		return 0, 0, fmt.Errorf("lock %s: %w", t.Name, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", t.Name, t.Constraint)); err != nil {
		return 0, 0, fmt.Errorf("suspend constraint %s: %w", t.Constraint, err)
	}

	tag, err := tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2", t.Name, t.FKColumn, t.FKColumn),
		newID, oldID,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("repoint %s: %w", t.Name, err)
	}
	repointed = tag.RowsAffected()

	deduped, err = resolveCollisions(ctx, tx, t, newID)
	if err != nil {
		return 0, 0, err
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
		t.Name, t.Constraint, strings.Join(append([]string{t.FKColumn}, t.UniqueColumns...), ", "))); err != nil {
		return 0, 0, fmt.Errorf("restore constraint %s: %w", t.Constraint, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit rewrite tx for %s: %w", t.Name, err)
	}
	return repointed, deduped, nil
}

// resolveCollisions applies the table's policy to rows that now share a
// uniqueness key under the surviving id.
func resolveCollisions(ctx context.Context, tx pgx.Tx, t Table, newID uuid.UUID) (int64, error) {
	if t.Policy == Manual {
		var n int64
		if err := tx.QueryRow(ctx, CollisionCountSQL(t), newID).Scan(&n); err != nil {
			return 0, fmt.Errorf("count collisions in %s: %w", t.Name, err)
		}
		if n > 0 {
			return 0, fmt.Errorf("%d colliding rows in %s require manual resolution", n, t.Name)
		}
		return 0, nil
	}
	tag, err := tx.Exec(ctx, DedupSQL(t), newID)
	if err != nil {
		return 0, fmt.Errorf("deduplicate %s: %w", t.Name, err)
	}
	return tag.RowsAffected(), nil
}

// DedupSQL builds the delete statement keeping the best-ranked row per
// colliding uniqueness group. Exported for the policy tests; all identifiers
// come from the static registry.
func DedupSQL(t Table) string {
	dims := strings.Join(t.UniqueColumns, ", ")
	return fmt.Sprintf(`DELETE FROM %s WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s) AS rn
			FROM %s WHERE %s = $1
		) ranked WHERE rn > 1
	)`, t.Name, dims, t.OrderExpr, t.Name, t.FKColumn)
}

// CollisionCountSQL counts rows beyond the first in each colliding group.
func CollisionCountSQL(t Table) string {
	dims := strings.Join(t.UniqueColumns, ", ")
	return fmt.Sprintf(`SELECT COALESCE(SUM(cnt - 1), 0) FROM (
		SELECT COUNT(*) AS cnt FROM %s WHERE %s = $1 GROUP BY %s HAVING COUNT(*) > 1
	) groups`, t.Name, t.FKColumn, dims)
}
