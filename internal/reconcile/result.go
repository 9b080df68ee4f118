// Package reconcile sweeps for canonical games that were created
// independently for the same real-world game and consolidates them, and runs
// the periodic upkeep around resolution: quarantine disambiguation, quality
// decay rescoring, and orphan-reference validation.
package reconcile

import "fmt"

// Result tracks counts and errors from one reconciliation pass.
type Result struct {
	PairsFound         int
	PairsMerged        int
	MappingsRepointed  int64
	RowsRewritten      int64
	QuarantineResolved int
	Errors             []string
}

// Add merges another Result into this one.
func (r *Result) Add(other Result) {
	r.PairsFound += other.PairsFound
	r.PairsMerged += other.PairsMerged
	r.MappingsRepointed += other.MappingsRepointed
	r.RowsRewritten += other.RowsRewritten
	r.QuarantineResolved += other.QuarantineResolved
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the pass.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"pairs_found=%d pairs_merged=%d mappings_repointed=%d rows_rewritten=%d quarantine_resolved=%d errors=%d",
		r.PairsFound, r.PairsMerged, r.MappingsRepointed,
		r.RowsRewritten, r.QuarantineResolved, len(r.Errors),
	)
}
