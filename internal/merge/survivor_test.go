package merge

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/game"
)

func testGame(quality float64, createdAt time.Time) *game.Game {
	return &game.Game{
		ID:           uuid.New(),
		HomeTeam:     "NEW YORK YANKEES",
		AwayTeam:     "BOSTON RED SOX",
		GameDate:     time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		Season:       2025,
		Status:       game.StatusPending,
		QualityScore: quality,
		CreatedAt:    createdAt,
	}
}

func intPtr(v int) *int              { return &v }
func strPtr(v string) *string        { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestChooseSurvivorPrefersQuality(t *testing.T) {
	now := time.Now().UTC()
	strong := testGame(0.9, now)
	weak := testGame(0.4, now.Add(-time.Hour))

	survivor, loser := ChooseSurvivor(weak, strong, 2.0, 0.5)
	if survivor != strong || loser != weak {
		t.Fatalf("expected higher quality score to win regardless of weight or age")
	}
}

func TestChooseSurvivorFallsBackToWeightThenAge(t *testing.T) {
	now := time.Now().UTC()
	older := testGame(0.5, now.Add(-2*time.Hour))
	newer := testGame(0.5, now)

	survivor, _ := ChooseSurvivor(older, newer, 0.8, 1.9)
	if survivor != newer {
		t.Fatalf("expected aggregate weight to break the quality tie")
	}

	survivor, _ = ChooseSurvivor(older, newer, 1.0, 1.0)
	if survivor != older {
		t.Fatalf("expected earlier creation to break the weight tie")
	}
}

func TestChooseSurvivorIsDeterministicOnFullTie(t *testing.T) {
	now := time.Now().UTC()
	a := testGame(0.5, now)
	b := testGame(0.5, now)

	s1, _ := ChooseSurvivor(a, b, 1.0, 1.0)
	s2, _ := ChooseSurvivor(b, a, 1.0, 1.0)
	if s1 != s2 {
		t.Fatalf("survivor choice must not depend on argument order")
	}
}

func TestMergeFieldsFillsMissingFromLoser(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.7, now)
	loser := testGame(0.3, now)
	loser.HomeScore = intPtr(5)
	loser.AwayScore = intPtr(3)
	loser.WinningTeam = strPtr("NEW YORK YANKEES")
	loser.GameDatetime = timePtr(time.Date(2025, 7, 4, 19, 5, 0, 0, time.UTC))

	diffs, conflicts := MergeFields(survivor, loser, 1.0, 0.8, 5*time.Minute)
	if conflicts != 0 {
		t.Fatalf("filling empty fields is not a conflict, got %d", conflicts)
	}
	if survivor.HomeScore == nil || *survivor.HomeScore != 5 {
		t.Fatalf("home score not taken from loser: %v", survivor.HomeScore)
	}
	if survivor.WinningTeam == nil || *survivor.WinningTeam != "NEW YORK YANKEES" {
		t.Fatalf("winning team not taken from loser")
	}
	if survivor.GameDatetime == nil {
		t.Fatalf("datetime not taken from loser")
	}
	if len(diffs) != 4 {
		t.Fatalf("expected 4 took_loser diffs, got %d", len(diffs))
	}
	for _, d := range diffs {
		if d.Resolution != TookLoser {
			t.Fatalf("field %s resolved %s, want %s", d.Field, d.Resolution, TookLoser)
		}
	}
}

func TestMergeFieldsHigherWeightWinsDisagreement(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.7, now)
	survivor.HomeScore = intPtr(4)
	loser := testGame(0.3, now)
	loser.HomeScore = intPtr(5)

	// Loser's sources outweigh the survivor's: its value replaces.
	diffs, conflicts := MergeFields(survivor, loser, 0.8, 1.0, 5*time.Minute)
	if conflicts != 0 {
		t.Fatalf("weight-resolved disagreement is not a conflict")
	}
	if *survivor.HomeScore != 5 {
		t.Fatalf("expected higher-weight value 5, got %d", *survivor.HomeScore)
	}
	if len(diffs) != 1 || diffs[0].Resolution != TookLoser {
		t.Fatalf("unexpected diffs: %+v", diffs)
	}
}

func TestMergeFieldsTiedDisagreementConflicts(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.7, now)
	survivor.HomeScore = intPtr(4)
	survivor.WinningTeam = strPtr("NEW YORK YANKEES")
	loser := testGame(0.3, now)
	loser.HomeScore = intPtr(5)
	loser.WinningTeam = strPtr("BOSTON RED SOX")

	diffs, conflicts := MergeFields(survivor, loser, 1.0, 1.0, 5*time.Minute)
	if conflicts != 2 {
		t.Fatalf("expected 2 conflicted fields, got %d", conflicts)
	}
	if *survivor.HomeScore != 4 || *survivor.WinningTeam != "NEW YORK YANKEES" {
		t.Fatalf("conflicted fields must keep the survivor values")
	}
	for _, d := range diffs {
		if d.Resolution != Conflicted {
			t.Fatalf("field %s resolved %s, want %s", d.Field, d.Resolution, Conflicted)
		}
	}
}

func TestMergeFieldsDatetimeWithinToleranceCorroborates(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.7, now)
	survivor.GameDatetime = timePtr(time.Date(2025, 7, 4, 19, 5, 0, 0, time.UTC))
	loser := testGame(0.3, now)
	loser.GameDatetime = timePtr(time.Date(2025, 7, 4, 19, 8, 0, 0, time.UTC))

	diffs, conflicts := MergeFields(survivor, loser, 1.0, 1.0, 5*time.Minute)
	if len(diffs) != 0 || conflicts != 0 {
		t.Fatalf("near-identical datetimes should corroborate, got diffs=%v conflicts=%d", diffs, conflicts)
	}
	if !survivor.GameDatetime.Equal(time.Date(2025, 7, 4, 19, 5, 0, 0, time.UTC)) {
		t.Fatalf("survivor datetime must be untouched within tolerance")
	}
}

func TestMergeFieldsDatetimeBeyondToleranceConflicts(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.7, now)
	survivor.GameDatetime = timePtr(time.Date(2025, 7, 4, 13, 5, 0, 0, time.UTC))
	loser := testGame(0.3, now)
	loser.GameDatetime = timePtr(time.Date(2025, 7, 4, 19, 5, 0, 0, time.UTC))

	_, conflicts := MergeFields(survivor, loser, 1.0, 1.0, 5*time.Minute)
	if conflicts != 1 {
		t.Fatalf("six-hour gap on tied weights must conflict, got %d", conflicts)
	}
}

func TestMergeFieldsAgreementIsSilent(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.7, now)
	survivor.HomeScore = intPtr(5)
	survivor.AwayScore = intPtr(3)
	loser := testGame(0.3, now)
	loser.HomeScore = intPtr(5)
	loser.AwayScore = intPtr(3)

	diffs, conflicts := MergeFields(survivor, loser, 1.0, 1.0, 5*time.Minute)
	if len(diffs) != 0 || conflicts != 0 {
		t.Fatalf("agreeing values must produce no diffs, got %v", diffs)
	}
}
