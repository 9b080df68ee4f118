package reliability

import (
	"testing"

	"github.com/samlafell/mlb-gameid/internal/source"
)

func TestDefaultAnchorsOfficialStats(t *testing.T) {
	reg := Default()
	if reg.Weight(source.MLBStatsAPI) != 1.0 {
		t.Fatalf("expected mlb_stats_api at 1.0, got %v", reg.Weight(source.MLBStatsAPI))
	}
	for _, s := range source.All {
		if w := reg.Weight(s); w <= 0 || w > 1 {
			t.Errorf("weight for %s out of range: %v", s, w)
		}
	}
	if reg.Weight("espn") != 0 {
		t.Fatal("unknown source must weigh zero")
	}
}

func TestMeanCountsDistinctSourcesOnce(t *testing.T) {
	reg := Default()
	single := reg.Mean([]source.Source{source.VSIN})
	doubled := reg.Mean([]source.Source{source.VSIN, source.VSIN})
	if single != doubled {
		t.Fatalf("duplicate source changed mean: %v vs %v", single, doubled)
	}
	if reg.Mean(nil) != 0 {
		t.Fatal("empty mean must be zero")
	}
}

func TestFromEnvOverride(t *testing.T) {
	t.Setenv("RELIABILITY_WEIGHTS", "vsin=0.5")
	reg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if reg.Weight(source.VSIN) != 0.5 {
		t.Fatalf("override not applied: %v", reg.Weight(source.VSIN))
	}
	if reg.Weight(source.MLBStatsAPI) != 1.0 {
		t.Fatal("default weight lost on override")
	}
}

func TestFromEnvRejectsUnknownSource(t *testing.T) {
	t.Setenv("RELIABILITY_WEIGHTS", "espn=0.4")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected unknown source in weights to fail")
	}
}

func TestRankedOrder(t *testing.T) {
	reg := Default()
	ranked := reg.Ranked()
	if ranked[0] != source.MLBStatsAPI {
		t.Fatalf("expected official stats first, got %s", ranked[0])
	}
	for i := 1; i < len(ranked); i++ {
		if reg.Weight(ranked[i-1]) < reg.Weight(ranked[i]) {
			t.Fatalf("ranked out of order at %d", i)
		}
	}
}
