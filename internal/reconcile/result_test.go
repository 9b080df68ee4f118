package reconcile

import (
	"errors"
	"strings"
	"testing"
)

func TestResultAddAndSummary(t *testing.T) {
	r := &Result{PairsFound: 2, PairsMerged: 1, MappingsRepointed: 3}
	r.Add(Result{PairsFound: 1, PairsMerged: 1, RowsRewritten: 40, QuarantineResolved: 2})
	r.AddErrorf("merge %s: %v", "abc", errors.New("boom"))

	if r.PairsFound != 3 || r.PairsMerged != 2 || r.RowsRewritten != 40 {
		t.Fatalf("counts not merged: %+v", r)
	}
	s := r.Summary()
	for _, frag := range []string{"pairs_found=3", "pairs_merged=2", "rows_rewritten=40", "quarantine_resolved=2", "errors=1"} {
		if !strings.Contains(s, frag) {
			t.Errorf("summary missing %q: %s", frag, s)
		}
	}
}

func TestOrphanReportCleanAndError(t *testing.T) {
	clean := &OrphanReport{Counts: []OrphanCount{{Table: "line_movements"}}}
	if !clean.Clean() {
		t.Fatalf("zero counts must be clean")
	}

	dirty := &OrphanReport{Counts: []OrphanCount{
		{Table: "line_movements", Retired: 4},
		{Table: "game_features", Dangling: 1},
	}}
	if dirty.Clean() {
		t.Fatalf("nonzero counts must not be clean")
	}

	err := &OrphanError{Report: dirty}
	var oe *OrphanError
	if !errors.As(error(err), &oe) {
		t.Fatalf("OrphanError must be matchable with errors.As")
	}
	if !strings.Contains(err.Error(), "line_movements=4/0") {
		t.Errorf("error message missing table counts: %s", err.Error())
	}
}
