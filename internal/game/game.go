// Package game defines the canonical game entity — the single authoritative
// record for one real-world game — and its Postgres store. Downstream fact
// tables key on Game.ID and nothing else.
package game

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canonical game lifecycle state.
type Status string

const (
	StatusPending  Status = "PENDING"  // created from a single source, unverified
	StatusPartial  Status = "PARTIAL"  // corroborated but carrying a conflict
	StatusVerified Status = "VERIFIED" // quality score crossed the threshold
	StatusMerged   Status = "MERGED"   // consolidated into another game
	StatusRetired  Status = "RETIRED"  // superseded, kept for audit only
)

// Live reports whether the status still accepts resolution and mutation.
// MERGED and RETIRED games are terminal; ids are never reused.
func (s Status) Live() bool {
	return s != StatusMerged && s != StatusRetired
}

// Game is the canonical entity. Team names are stored in normalized form.
type Game struct {
	ID           uuid.UUID  `json:"canonical_id"`
	HomeTeam     string     `json:"home_team"`
	AwayTeam     string     `json:"away_team"`
	GameDate     time.Time  `json:"game_date"`
	GameDatetime *time.Time `json:"game_datetime,omitempty"`
	Season       int        `json:"season"`

	HomeScore   *int    `json:"home_score,omitempty"`
	AwayScore   *int    `json:"away_score,omitempty"`
	WinningTeam *string `json:"winning_team,omitempty"`

	Status               Status     `json:"status"`
	QualityScore         float64    `json:"quality_score"`
	ResolutionConfidence float64    `json:"resolution_confidence"`
	ConflictCount        int        `json:"conflict_count"`
	SupersededBy         *uuid.UUID `json:"superseded_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	LastVerifiedAt       *time.Time `json:"last_verified_at,omitempty"`
}

// SeasonOf derives the MLB season from a game date. Seasons never span a
// calendar year boundary.
func SeasonOf(date time.Time) int {
	return date.UTC().Year()
}

// New mints a canonical game in PENDING state. The id is generated once and
// is immutable for the life of the entity.
func New(home, away string, date time.Time, datetime *time.Time, confidence float64) *Game {
	return &Game{
		ID:                   uuid.New(),
		HomeTeam:             home,
		AwayTeam:             away,
		GameDate:             date,
		GameDatetime:         datetime,
		Season:               SeasonOf(date),
		Status:               StatusPending,
		QualityScore:         confidence,
		ResolutionConfidence: confidence,
		CreatedAt:            time.Now().UTC(),
	}
}
