package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/rewrite"
)

// OrphanCount is one table's bad-reference tally.
type OrphanCount struct {
	Table    string `json:"table"`
	Retired  int64  `json:"retired"`  // rows pointing at MERGED/RETIRED games
	Dangling int64  `json:"dangling"` // rows pointing at no game at all
}

// OrphanReport covers every registered fact table.
type OrphanReport struct {
	Counts []OrphanCount `json:"counts"`
}

// Clean reports whether no table carries a bad reference.
func (r *OrphanReport) Clean() bool {
	for _, c := range r.Counts {
		if c.Retired > 0 || c.Dangling > 0 {
			return false
		}
	}
	return true
}

// Summary renders per-table counts for logs and CLI output.
func (r *OrphanReport) Summary() string {
	var b strings.Builder
	for i, c := range r.Counts {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%d/%d", c.Table, c.Retired, c.Dangling)
	}
	return b.String()
}

// OrphanError signals that fact rows reference terminal or missing canonical
// ids. Orphans mean a merge ran without its rewrite finishing; the condition
// is never silently dropped.
type OrphanError struct {
	Report *OrphanReport
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("orphan references detected (retired/dangling): %s", e.Report.Summary())
}

// Validate audits every registered fact table for references to MERGED or
// RETIRED games and for ids no canonical game carries. A dirty report is
// returned WITH an *OrphanError so callers cannot mistake it for a pass.
func Validate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*OrphanReport, error) {
	report := &OrphanReport{}
	for _, t := range rewrite.Registry() {
		c := OrphanCount{Table: t.Name}
		err := pool.QueryRow(ctx, fmt.Sprintf(`
			SELECT
			    COUNT(*) FILTER (WHERE g.status IN ('MERGED','RETIRED')),
			    COUNT(*) FILTER (WHERE g.canonical_id IS NULL)
			FROM %s f
			LEFT JOIN %s g ON g.canonical_id = f.%s`,
			t.Name, config.GamesTable, t.FKColumn),
		).Scan(&c.Retired, &c.Dangling)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", t.Name, err)
		}
		report.Counts = append(report.Counts, c)
	}
	if !report.Clean() {
		logger.Error("Orphan references detected", "summary", report.Summary())
		return report, &OrphanError{Report: report}
	}
	return report, nil
}
