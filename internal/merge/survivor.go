// Package merge consolidates two canonical games discovered to be the same
// real-world game. Survivor selection and field merging are pure functions;
// the transactional consolidation lives in engine.go.
package merge

import (
	"time"

	"github.com/samlafell/mlb-gameid/internal/game"
)

// Resolution describes how one field difference was settled.
type Resolution string

const (
	KeptSurvivor Resolution = "kept_survivor"
	TookLoser    Resolution = "took_loser"
	Conflicted   Resolution = "conflicted"
)

// FieldDiff is one attribute-level record in the merge audit trail. Both
// values are kept verbatim so a conflicted merge can be revisited by hand.
type FieldDiff struct {
	Field      string     `json:"field"`
	Survivor   any        `json:"survivor"`
	Loser      any        `json:"loser"`
	Resolution Resolution `json:"resolution"`
}

// ChooseSurvivor orders a pair: higher quality score wins, then higher
// aggregate reliability of contributing sources, then earliest creation. The
// final id tie-break only exists to keep the choice deterministic.
func ChooseSurvivor(a, b *game.Game, aWeight, bWeight float64) (survivor, loser *game.Game) {
	switch {
	case a.QualityScore != b.QualityScore:
		if a.QualityScore > b.QualityScore {
			return a, b
		}
		return b, a
	case aWeight != bWeight:
		if aWeight > bWeight {
			return a, b
		}
		return b, a
	case !a.CreatedAt.Equal(b.CreatedAt):
		if a.CreatedAt.Before(b.CreatedAt) {
			return a, b
		}
		return b, a
	}
	if a.ID.String() < b.ID.String() {
		return a, b
	}
	return b, a
}

// MergeFields folds the loser's attributes into the survivor in place.
// Rule per field: a missing survivor value takes the loser's; differing
// values go to the higher-reliability side; a reliability tie with values
// beyond tolerance marks the field conflicted and keeps the survivor's value
// rather than picking arbitrarily. Returns the audit diffs and the number of
// conflicted fields.
func MergeFields(survivor, loser *game.Game, survivorWeight, loserWeight float64, datetimeTolerance time.Duration) ([]FieldDiff, int) {
	var diffs []FieldDiff
	conflicts := 0

	preferLoser := loserWeight > survivorWeight
	tied := loserWeight == survivorWeight

	mergeInt := func(field string, s **int, l *int) {
		switch {
		case l == nil:
			return
		case *s == nil:
			v := *l
			*s = &v
			diffs = append(diffs, FieldDiff{field, nil, *l, TookLoser})
		case **s == *l:
			return
		case preferLoser:
			diffs = append(diffs, FieldDiff{field, **s, *l, TookLoser})
			v := *l
			*s = &v
		case tied:
			diffs = append(diffs, FieldDiff{field, **s, *l, Conflicted})
			conflicts++
		default:
			diffs = append(diffs, FieldDiff{field, **s, *l, KeptSurvivor})
		}
	}

	mergeInt("home_score", &survivor.HomeScore, loser.HomeScore)
	mergeInt("away_score", &survivor.AwayScore, loser.AwayScore)

	switch {
	case loser.WinningTeam == nil:
	case survivor.WinningTeam == nil:
		diffs = append(diffs, FieldDiff{"winning_team", nil, *loser.WinningTeam, TookLoser})
		survivor.WinningTeam = loser.WinningTeam
	case *survivor.WinningTeam == *loser.WinningTeam:
	case preferLoser:
		diffs = append(diffs, FieldDiff{"winning_team", *survivor.WinningTeam, *loser.WinningTeam, TookLoser})
		survivor.WinningTeam = loser.WinningTeam
	case tied:
		diffs = append(diffs, FieldDiff{"winning_team", *survivor.WinningTeam, *loser.WinningTeam, Conflicted})
		conflicts++
	default:
		diffs = append(diffs, FieldDiff{"winning_team", *survivor.WinningTeam, *loser.WinningTeam, KeptSurvivor})
	}

	switch {
	case loser.GameDatetime == nil:
	case survivor.GameDatetime == nil:
		diffs = append(diffs, FieldDiff{"game_datetime", nil, *loser.GameDatetime, TookLoser})
		survivor.GameDatetime = loser.GameDatetime
	default:
		delta := survivor.GameDatetime.Sub(*loser.GameDatetime)
		if delta < 0 {
			delta = -delta
		}
		switch {
		case delta <= datetimeTolerance:
			// Within tolerance the values corroborate; no diff recorded.
		case preferLoser:
			diffs = append(diffs, FieldDiff{"game_datetime", *survivor.GameDatetime, *loser.GameDatetime, TookLoser})
			survivor.GameDatetime = loser.GameDatetime
		case tied:
			diffs = append(diffs, FieldDiff{"game_datetime", *survivor.GameDatetime, *loser.GameDatetime, Conflicted})
			conflicts++
		default:
			diffs = append(diffs, FieldDiff{"game_datetime", *survivor.GameDatetime, *loser.GameDatetime, KeptSurvivor})
		}
	}

	return diffs, conflicts
}
