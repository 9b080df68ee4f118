package rewrite

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRegistryCoversEveryFactTable(t *testing.T) {
	want := map[string]Policy{
		"line_movements": KeepMostRecent,
		"sharp_actions":  KeepMostRecent,
		"betting_splits": KeepMostComplete,
		"game_features":  Manual,
	}
	reg := Registry()
	if len(reg) != len(want) {
		t.Fatalf("registry has %d tables, want %d", len(reg), len(want))
	}
	for _, tab := range reg {
		policy, ok := want[tab.Name]
		if !ok {
			t.Fatalf("unexpected table %q in registry", tab.Name)
		}
		if tab.Policy != policy {
			t.Errorf("%s policy = %s, want %s", tab.Name, tab.Policy, policy)
		}
		if tab.FKColumn != "game_id" {
			t.Errorf("%s fk column = %q", tab.Name, tab.FKColumn)
		}
		if tab.Constraint == "" || len(tab.UniqueColumns) == 0 {
			t.Errorf("%s missing constraint metadata", tab.Name)
		}
		if tab.Policy != Manual && tab.OrderExpr == "" {
			t.Errorf("%s has an automatic policy but no order expression", tab.Name)
		}
	}
}

func TestDedupSQLRanksWithinUniquenessGroup(t *testing.T) {
	var lm Table
	for _, tab := range Registry() {
		if tab.Name == "line_movements" {
			lm = tab
		}
	}
	sql := DedupSQL(lm)
	for _, frag := range []string{
		"DELETE FROM line_movements",
		"PARTITION BY sportsbook, market, recorded_at",
		"ORDER BY recorded_at DESC, id DESC",
		"rn > 1",
		"game_id = $1",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("dedup SQL missing %q:\n%s", frag, sql)
		}
	}
}

func TestCollisionCountSQLGroupsOnDims(t *testing.T) {
	var gf Table
	for _, tab := range Registry() {
		if tab.Name == "game_features" {
			gf = tab
		}
	}
	sql := CollisionCountSQL(gf)
	for _, frag := range []string{
		"FROM game_features",
		"GROUP BY feature_set, feature_version",
		"HAVING COUNT(*) > 1",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("collision SQL missing %q:\n%s", frag, sql)
		}
	}
}

func TestReportSummaryAndFailure(t *testing.T) {
	r := &Report{
		OldID: uuid.New(),
		NewID: uuid.New(),
		Tables: []TableReport{
			{Table: "line_movements", Repointed: 12, Deduped: 2},
			{Table: "game_features", Error: "3 colliding rows in game_features require manual resolution"},
		},
	}
	if !r.Failed() {
		t.Fatalf("report with a table error must be failed")
	}
	s := r.Summary()
	if !strings.Contains(s, "12 repointed, 2 deduplicated") {
		t.Errorf("summary missing table counts:\n%s", s)
	}
	if !strings.Contains(s, "game_features: FAILED") {
		t.Errorf("summary missing failure line:\n%s", s)
	}

	clean := &Report{Tables: []TableReport{{Table: "sharp_actions"}}}
	if clean.Failed() {
		t.Fatalf("clean report must not be failed")
	}
}
