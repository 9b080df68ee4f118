package merge

import (
	"testing"
	"time"

	"github.com/samlafell/mlb-gameid/internal/game"
)

func TestAlreadyMergedRecognizesEitherDirection(t *testing.T) {
	now := time.Now().UTC()
	survivor := testGame(0.9, now)
	loser := testGame(0.5, now)
	loser.Status = game.StatusMerged
	loser.SupersededBy = &survivor.ID

	res := alreadyMerged(loser, survivor)
	if res == nil || !res.AlreadyMerged {
		t.Fatal("consolidated pair not recognized")
	}
	if res.SurvivingID != survivor.ID || res.LosingID != loser.ID {
		t.Fatalf("wrong pair orientation: %+v", res)
	}

	// Same pair, arguments swapped.
	res = alreadyMerged(survivor, loser)
	if res == nil || !res.AlreadyMerged {
		t.Fatal("consolidated pair not recognized with swapped arguments")
	}
	if res.SurvivingID != survivor.ID || res.LosingID != loser.ID {
		t.Fatalf("swapped arguments flipped the pair: %+v", res)
	}
}

func TestAlreadyMergedIgnoresUnrelatedPairs(t *testing.T) {
	now := time.Now().UTC()
	a := testGame(0.9, now)
	b := testGame(0.5, now)

	if res := alreadyMerged(a, b); res != nil {
		t.Fatalf("two live games reported as merged: %+v", res)
	}

	// A loser consolidated into some third game is not merged into b.
	third := testGame(0.7, now)
	a.Status = game.StatusMerged
	a.SupersededBy = &third.ID
	if res := alreadyMerged(a, b); res != nil {
		t.Fatalf("merge into a third game misattributed: %+v", res)
	}

	// Merged status with no successor recorded never matches.
	a.SupersededBy = nil
	if res := alreadyMerged(a, b); res != nil {
		t.Fatalf("merged game without successor reported as pair: %+v", res)
	}
}
