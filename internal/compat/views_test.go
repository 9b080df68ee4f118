package compat

import (
	"strings"
	"testing"

	"github.com/samlafell/mlb-gameid/internal/source"
)

func TestWideViewDDLCarriesEverySourceColumn(t *testing.T) {
	ddl := wideViewDDL()
	for _, src := range source.All {
		col := string(src) + "_game_id"
		if !strings.Contains(ddl, col) {
			t.Errorf("wide view missing column %s", col)
		}
	}
	for _, frag := range []string{
		"CREATE OR REPLACE VIEW " + WideViewName,
		"ORDER BY p.confidence DESC",
		"AS primary_source",
		"g.last_verified_at",
		"WHERE g.status NOT IN ('MERGED','RETIRED')",
	} {
		if !strings.Contains(ddl, frag) {
			t.Errorf("wide view DDL missing %q:\n%s", frag, ddl)
		}
	}
}

func TestViewsCarryLastVerifiedAt(t *testing.T) {
	if !strings.Contains(wideViewDDL(), "g.last_verified_at,") {
		t.Errorf("wide view does not project last_verified_at:\n%s", wideViewDDL())
	}
	for _, src := range source.All {
		if !strings.Contains(sourceViewDDL(src), "g.last_verified_at") {
			t.Errorf("%s view does not project last_verified_at", src)
		}
	}
}

func TestSourceViewDDLProjectsOneSource(t *testing.T) {
	ddl := sourceViewDDL(source.VSIN)
	for _, frag := range []string{
		"CREATE OR REPLACE VIEW vsin_games_compat",
		"m.external_id AS vsin_game_id",
		"m.source_name = 'vsin'",
		"g.status NOT IN ('MERGED','RETIRED')",
	} {
		if !strings.Contains(ddl, frag) {
			t.Errorf("source view DDL missing %q:\n%s", frag, ddl)
		}
	}
	if strings.Contains(ddl, "INSERT") || strings.Contains(ddl, "UPDATE ") {
		t.Errorf("compat view must be read-only:\n%s", ddl)
	}
}
