package quarantine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samlafell/mlb-gameid/internal/game"
)

// fakeQuerier serves game-by-id reads from a map so the datetime rule can be
// exercised without a database.
type fakeQuerier struct {
	games map[uuid.UUID]*game.Game
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	g, ok := f.games[args[0].(uuid.UUID)]
	if !ok {
		return errRow{pgx.ErrNoRows}
	}
	return gameRow{g}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// gameRow fills scan destinations in canonical_games column order.
type gameRow struct{ g *game.Game }

func (r gameRow) Scan(dest ...any) error {
	g := r.g
	*(dest[0].(*uuid.UUID)) = g.ID
	*(dest[1].(*string)) = g.HomeTeam
	*(dest[2].(*string)) = g.AwayTeam
	*(dest[3].(*time.Time)) = g.GameDate
	*(dest[4].(**time.Time)) = g.GameDatetime
	*(dest[5].(*int)) = g.Season
	*(dest[6].(**int)) = g.HomeScore
	*(dest[7].(**int)) = g.AwayScore
	*(dest[8].(**string)) = g.WinningTeam
	*(dest[9].(*game.Status)) = g.Status
	*(dest[10].(*float64)) = g.QualityScore
	*(dest[11].(*float64)) = g.ResolutionConfidence
	*(dest[12].(*int)) = g.ConflictCount
	*(dest[13].(**uuid.UUID)) = g.SupersededBy
	*(dest[14].(*time.Time)) = g.CreatedAt
	*(dest[15].(**time.Time)) = g.LastVerifiedAt
	return nil
}

func quarantinedRow(datetime time.Time, candidates ...uuid.UUID) *Row {
	return &Row{
		ID:           1,
		HomeTeam:     "NYY",
		AwayTeam:     "BOS",
		GameDate:     datetime.Truncate(24 * time.Hour),
		GameDatetime: &datetime,
		CandidateIDs: candidates,
		Status:       "pending",
	}
}

func candidateGame(datetime *time.Time) *game.Game {
	g := game.New("NYY", "BOS", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), datetime, 0.9)
	return g
}

func TestMatchByDatetimeSingleCandidateInWindow(t *testing.T) {
	recorded := time.Date(2025, 8, 1, 13, 5, 0, 0, time.UTC)
	early := time.Date(2025, 8, 1, 13, 0, 0, 0, time.UTC)
	late := time.Date(2025, 8, 1, 19, 0, 0, 0, time.UTC)
	g1 := candidateGame(&early)
	g2 := candidateGame(&late)
	q := &fakeQuerier{games: map[uuid.UUID]*game.Game{g1.ID: g1, g2.ID: g2}}

	r := quarantinedRow(recorded, g1.ID, g2.ID)
	match, ok, err := matchByDatetime(context.Background(), q, r, 30*time.Minute)
	if err != nil {
		t.Fatalf("matchByDatetime: %v", err)
	}
	if !ok || match != g1.ID {
		t.Fatalf("expected the early game to win, got ok=%v match=%s", ok, match)
	}
}

func TestMatchByDatetimeZeroOrTwoCandidatesStayPending(t *testing.T) {
	recorded := time.Date(2025, 8, 1, 16, 0, 0, 0, time.UTC)
	early := time.Date(2025, 8, 1, 13, 0, 0, 0, time.UTC)
	late := time.Date(2025, 8, 1, 19, 0, 0, 0, time.UTC)
	g1 := candidateGame(&early)
	g2 := candidateGame(&late)
	q := &fakeQuerier{games: map[uuid.UUID]*game.Game{g1.ID: g1, g2.ID: g2}}
	r := quarantinedRow(recorded, g1.ID, g2.ID)

	// Neither game within half an hour of the record.
	if _, ok, err := matchByDatetime(context.Background(), q, r, 30*time.Minute); err != nil || ok {
		t.Fatalf("no candidate in window must stay pending, got ok=%v err=%v", ok, err)
	}
	// Both games within four hours: still ambiguous.
	if _, ok, err := matchByDatetime(context.Background(), q, r, 4*time.Hour); err != nil || ok {
		t.Fatalf("two candidates in window must stay pending, got ok=%v err=%v", ok, err)
	}
}

func TestMatchByDatetimeSkipsUnusableCandidates(t *testing.T) {
	recorded := time.Date(2025, 8, 1, 13, 5, 0, 0, time.UTC)
	early := time.Date(2025, 8, 1, 13, 0, 0, 0, time.UTC)

	live := candidateGame(&early)
	merged := candidateGame(&early)
	merged.Status = game.StatusMerged
	noTime := candidateGame(nil)
	missing := uuid.New()
	q := &fakeQuerier{games: map[uuid.UUID]*game.Game{
		live.ID: live, merged.ID: merged, noTime.ID: noTime,
	}}

	r := quarantinedRow(recorded, live.ID, merged.ID, noTime.ID, missing)
	match, ok, err := matchByDatetime(context.Background(), q, r, 30*time.Minute)
	if err != nil {
		t.Fatalf("matchByDatetime: %v", err)
	}
	if !ok || match != live.ID {
		t.Fatalf("only the live timed candidate should count, got ok=%v match=%s", ok, match)
	}
}
