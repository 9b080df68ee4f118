package quality

import (
	"testing"
	"time"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/source"
)

func testParams() Params {
	return Params{
		VerifiedThreshold: 0.9,
		ConflictPenalty:   0.15,
		DecayAfter:        48 * time.Hour,
		DecayFloor:        0.6,
		EvidenceScale:     0.6,
	}
}

func evidenceFor(now time.Time, sources ...source.Source) []Evidence {
	out := make([]Evidence, len(sources))
	for i, s := range sources {
		out[i] = Evidence{Source: s, LastVerifiedAt: now}
	}
	return out
}

func TestComputeMonotonicInCorroboration(t *testing.T) {
	reg := reliability.Default()
	p := testParams()
	now := time.Now().UTC()

	prev := 0.0
	chain := []source.Source{source.MLBStatsAPI, source.ActionNetwork, source.SBR, source.VSIN, source.SBD}
	for i := 1; i <= len(chain); i++ {
		score, _ := Compute(reg, p, evidenceFor(now, chain[:i]...), 0, now)
		if score < prev {
			t.Fatalf("adding source %s lowered score: %v -> %v", chain[i-1], prev, score)
		}
		prev = score
	}
}

func TestComputeDuplicateSourceAddsNothing(t *testing.T) {
	reg := reliability.Default()
	p := testParams()
	now := time.Now().UTC()

	one, _ := Compute(reg, p, evidenceFor(now, source.VSIN), 0, now)
	two, _ := Compute(reg, p, evidenceFor(now, source.VSIN, source.VSIN), 0, now)
	if one != two {
		t.Fatalf("duplicate source changed score: %v vs %v", one, two)
	}
}

func TestComputeConflictLowersScoreAndForcesPartial(t *testing.T) {
	reg := reliability.Default()
	p := testParams()
	now := time.Now().UTC()
	ev := evidenceFor(now, source.MLBStatsAPI, source.ActionNetwork, source.SBR)

	clean, cleanStatus := Compute(reg, p, ev, 0, now)
	if cleanStatus != game.StatusVerified {
		t.Fatalf("three strong sources should verify, got %s (score %v)", cleanStatus, clean)
	}
	conflicted, status := Compute(reg, p, ev, 1, now)
	if conflicted >= clean {
		t.Fatalf("conflict did not lower score: %v -> %v", clean, conflicted)
	}
	if status != game.StatusPartial {
		t.Fatalf("conflict must force PARTIAL, got %s", status)
	}
}

func TestComputeSingleSourceNeverVerifies(t *testing.T) {
	reg := reliability.Default()
	p := testParams()
	now := time.Now().UTC()

	score, status := Compute(reg, p, evidenceFor(now, source.MLBStatsAPI), 0, now)
	if status == game.StatusVerified {
		t.Fatalf("single source verified at score %v", score)
	}
}

func TestComputeDecay(t *testing.T) {
	reg := reliability.Default()
	p := testParams()
	now := time.Now().UTC()
	ev := evidenceFor(now.Add(-5*24*time.Hour), source.MLBStatsAPI, source.ActionNetwork)

	stale, _ := Compute(reg, p, ev, 0, now)
	fresh, _ := Compute(reg, p, evidenceFor(now, source.MLBStatsAPI, source.ActionNetwork), 0, now)
	if stale >= fresh {
		t.Fatalf("stale evidence should score below fresh: %v vs %v", stale, fresh)
	}
	floor := fresh * p.DecayFloor
	if stale < floor-1e-9 {
		t.Fatalf("decay fell through the floor: %v < %v", stale, floor)
	}
}

func TestComputeClampsToUnitInterval(t *testing.T) {
	reg := reliability.Default()
	p := testParams()
	now := time.Now().UTC()

	score, _ := Compute(reg, p, evidenceFor(now, source.VSIN), 10, now)
	if score != 0 {
		t.Fatalf("heavily conflicted score should clamp to 0, got %v", score)
	}
	all := evidenceFor(now, source.All...)
	score, _ = Compute(reg, p, all, 0, now)
	if score > 1 {
		t.Fatalf("score above 1: %v", score)
	}
}
