// Package quality computes the resolution-confidence and data-quality score
// for canonical games. Scoring is an explicit post-write call — never a
// storage trigger — so every score change is visible at a call site and
// testable in isolation.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Params are the scoring knobs, injected from config.
type Params struct {
	VerifiedThreshold float64
	ConflictPenalty   float64
	DecayAfter        time.Duration
	DecayFloor        float64
	EvidenceScale     float64 // contribution cap of a single source
}

// ParamsFromConfig maps the loaded configuration onto scoring parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		VerifiedThreshold: cfg.VerifiedThreshold,
		ConflictPenalty:   cfg.ConflictPenalty,
		DecayAfter:        cfg.DecayAfter,
		DecayFloor:        cfg.DecayFloor,
		EvidenceScale:     0.6,
	}
}

// Evidence is one corroborating source for a game.
type Evidence struct {
	Source         source.Source
	LastVerifiedAt time.Time
}

// Compute derives the quality score and the status it implies.
//
// Corroboration combines independent sources as stacked evidence:
// base = 1 − Π(1 − weight·scale). Adding a previously-unseen source can only
// raise or hold the score; each recorded conflict subtracts a fixed penalty.
// Stale games decay toward the floor once past the decay window.
func Compute(reg *reliability.Registry, p Params, evidence []Evidence, conflicts int, now time.Time) (float64, game.Status) {
	seen := make(map[source.Source]bool, len(evidence))
	remaining := 1.0
	latest := time.Time{}
	for _, ev := range evidence {
		if ev.LastVerifiedAt.After(latest) {
			latest = ev.LastVerifiedAt
		}
		if seen[ev.Source] {
			continue
		}
		seen[ev.Source] = true
		remaining *= 1 - reg.Weight(ev.Source)*p.EvidenceScale
	}
	base := 1 - remaining

	score := base*recency(p, latest, now) - float64(conflicts)*p.ConflictPenalty
	score = clamp01(score)

	status := game.StatusPending
	switch {
	case conflicts > 0:
		status = game.StatusPartial
	case score >= p.VerifiedThreshold:
		status = game.StatusVerified
	}
	return score, status
}

// recency returns 1.0 inside the decay window, then falls linearly to the
// floor over a second window of the same length.
func recency(p Params, lastVerified, now time.Time) float64 {
	if lastVerified.IsZero() || p.DecayAfter <= 0 {
		return 1.0
	}
	age := now.Sub(lastVerified)
	if age <= p.DecayAfter {
		return 1.0
	}
	over := float64(age-p.DecayAfter) / float64(p.DecayAfter)
	factor := 1.0 - (1.0-p.DecayFloor)*over
	if factor < p.DecayFloor {
		return p.DecayFloor
	}
	return factor
}

// Update recomputes and persists the score for one game. Idempotent: calling
// it twice on unchanged inputs writes the same values. Terminal games are
// skipped — their scores are frozen at merge time.
func Update(ctx context.Context, q game.Querier, reg *reliability.Registry, p Params, id uuid.UUID, logger *slog.Logger) error {
	g, err := game.ByID(ctx, q, id)
	if err != nil {
		return fmt.Errorf("score update: %w", err)
	}
	if !g.Status.Live() {
		return nil
	}

	inputs, err := mapping.ScoringInputs(ctx, q, id)
	if err != nil {
		return fmt.Errorf("score update: %w", err)
	}

	evidence := make([]Evidence, 0, len(inputs))
	confidence := g.ResolutionConfidence
	latest := time.Time{}
	for _, in := range inputs {
		evidence = append(evidence, Evidence{Source: in.Source, LastVerifiedAt: in.LastVerifiedAt})
		if in.Confidence > confidence {
			confidence = in.Confidence
		}
		if in.LastVerifiedAt.After(latest) {
			latest = in.LastVerifiedAt
		}
	}

	score, status := Compute(reg, p, evidence, g.ConflictCount, time.Now().UTC())

	// A verified game that picked up a conflict was already demoted by
	// RecordConflict; Compute agrees because conflicts > 0 forces PARTIAL.
	var verifiedAt *time.Time
	if !latest.IsZero() {
		verifiedAt = &latest
	}
	if err := game.SetScore(ctx, q, id, score, clamp01(confidence), status, verifiedAt); err != nil {
		return fmt.Errorf("score update: %w", err)
	}

	if logger != nil && status != g.Status {
		logger.Info("Game status changed",
			"canonical_id", id, "from", g.Status, "to", status,
			"score", score, "sources", len(evidence), "registry", reg.Version())
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
