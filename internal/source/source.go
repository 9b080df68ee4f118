// Package source defines the closed set of ingestion sources and the
// normalized record shape all ingestion adapters produce. Adapters output
// these, the resolver consumes them — the resolver and Postgres schema never
// change when an adapter does.
package source

import (
	"fmt"
	"time"
)

// Source identifies one external data provider. The set is closed: records
// carrying any other name are rejected at the ingestion boundary, never
// defaulted to an "unknown" bucket.
type Source string

const (
	ActionNetwork Source = "action_network" // live odds API
	MLBStatsAPI   Source = "mlb_stats_api"  // official statistics API
	VSIN          Source = "vsin"           // sharp-action feed
	SBD           Source = "sbd"            // splits feed
	SBR           Source = "sbr"            // line history feed
)

// All lists every recognized source in registry order.
var All = []Source{ActionNetwork, MLBStatsAPI, VSIN, SBD, SBR}

// Parse validates a raw source name against the closed set.
func Parse(name string) (Source, error) {
	s := Source(name)
	switch s {
	case ActionNetwork, MLBStatsAPI, VSIN, SBD, SBR:
		return s, nil
	}
	return "", fmt.Errorf("unknown source %q: %w", name, ErrUnknownSource)
}

// Valid reports whether s is a member of the closed set.
func (s Source) Valid() bool {
	_, err := Parse(string(s))
	return err == nil
}

// Record is the ephemeral normalized input from one ingestion adapter. It is
// never persisted independently — resolution converts it into canonical game
// state and an external id mapping.
type Record struct {
	Source       Source     `json:"source_name"`
	ExternalID   string     `json:"external_id"`
	HomeTeam     string     `json:"home_team"`
	AwayTeam     string     `json:"away_team"`
	GameDate     time.Time  `json:"game_date"`
	GameDatetime *time.Time `json:"game_datetime,omitempty"`

	// SecondaryIDs carries identifiers from other sources embedded in the
	// payload (e.g. Action Network responses include the MLB Stats API game
	// pk). Keyed by the source the identifier belongs to.
	SecondaryIDs map[Source]string `json:"secondary_ids,omitempty"`

	// Outcome fields, nil until the game is final.
	HomeScore   *int    `json:"home_score,omitempty"`
	AwayScore   *int    `json:"away_score,omitempty"`
	WinningTeam *string `json:"winning_team,omitempty"`
}

// Validate rejects records that cannot enter the resolver.
func (r *Record) Validate() error {
	if !r.Source.Valid() {
		return fmt.Errorf("record source %q: %w", r.Source, ErrUnknownSource)
	}
	if r.ExternalID == "" {
		return fmt.Errorf("record from %s has empty external_id", r.Source)
	}
	if r.HomeTeam == "" || r.AwayTeam == "" {
		return fmt.Errorf("record %s/%s missing team names", r.Source, r.ExternalID)
	}
	if r.GameDate.IsZero() {
		return fmt.Errorf("record %s/%s missing game_date", r.Source, r.ExternalID)
	}
	for sec := range r.SecondaryIDs {
		if !sec.Valid() {
			return fmt.Errorf("secondary id source %q: %w", sec, ErrUnknownSource)
		}
	}
	return nil
}

// ErrUnknownSource marks a source name outside the closed set.
var ErrUnknownSource = fmt.Errorf("source not in closed set")
