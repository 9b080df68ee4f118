package source

import (
	"testing"
	"time"
)

func TestParseRejectsUnknownSource(t *testing.T) {
	if _, err := Parse("draftkings"); err == nil {
		t.Fatal("expected unknown source to be rejected")
	}
	s, err := Parse("mlb_stats_api")
	if err != nil {
		t.Fatalf("parse mlb_stats_api: %v", err)
	}
	if s != MLBStatsAPI {
		t.Fatalf("expected %q, got %q", MLBStatsAPI, s)
	}
}

func TestRecordValidate(t *testing.T) {
	date := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid", Record{Source: ActionNetwork, ExternalID: "123", HomeTeam: "NYY", AwayTeam: "BOS", GameDate: date}, false},
		{"unknown source", Record{Source: "espn", ExternalID: "123", HomeTeam: "NYY", AwayTeam: "BOS", GameDate: date}, true},
		{"empty external id", Record{Source: VSIN, HomeTeam: "NYY", AwayTeam: "BOS", GameDate: date}, true},
		{"missing team", Record{Source: SBD, ExternalID: "9", HomeTeam: "NYY", GameDate: date}, true},
		{"missing date", Record{Source: SBR, ExternalID: "9", HomeTeam: "NYY", AwayTeam: "BOS"}, true},
		{"bad secondary source", Record{Source: ActionNetwork, ExternalID: "1", HomeTeam: "NYY", AwayTeam: "BOS", GameDate: date,
			SecondaryIDs: map[Source]string{"espn": "x"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStandardNormalizerAliases(t *testing.T) {
	var n StandardNormalizer
	cases := map[string]string{
		"New York Yankees":    "NYY",
		"NYY":                 "NYY",
		"yankees":             "NYY",
		"Red Sox":             "BOS",
		"St. Louis Cardinals": "STL",
		"Montréal Expos":      "MONTREAL EXPOS", // no alias, folded passthrough
	}
	for raw, want := range cases {
		if got := n.Team(raw); got != want {
			t.Errorf("Team(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestKeyForTruncatesDate(t *testing.T) {
	var n StandardNormalizer
	rec := &Record{
		Source: ActionNetwork, ExternalID: "1",
		HomeTeam: "New York Yankees", AwayTeam: "Boston Red Sox",
		GameDate: time.Date(2025, 8, 1, 19, 5, 0, 0, time.UTC),
	}
	key := KeyFor(n, rec)
	if key.Home != "NYY" || key.Away != "BOS" {
		t.Fatalf("unexpected key teams: %+v", key)
	}
	if key.String() != "NYY@BOS@2025-08-01" {
		t.Fatalf("unexpected key string %q", key.String())
	}
}
