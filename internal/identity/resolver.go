// Package identity implements the resolver that decides, for every incoming
// source record, whether it refers to a known canonical game, a genuinely new
// one, or an ambiguous case that must quarantine. The strategy chain is
// ordered and first-success-wins; it never guesses between candidates.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Kind classifies a resolution outcome.
type Kind string

const (
	KindMatched   Kind = "matched"
	KindCreated   Kind = "created"
	KindAmbiguous Kind = "ambiguous"
)

// Outcome is the result of resolving one source record.
type Outcome struct {
	Kind        Kind        `json:"kind"`
	CanonicalID uuid.UUID   `json:"canonical_id,omitempty"`
	Candidates  []uuid.UUID `json:"candidates,omitempty"`
	Strategy    string      `json:"strategy,omitempty"` // which chain step decided
}

// Store is the persistence surface the resolver needs. The Postgres binding
// lives in postgres.go; tests substitute an in-memory fake.
type Store interface {
	LookupMapping(ctx context.Context, src source.Source, externalID string) (*mapping.Entry, error)
	InsertMapping(ctx context.Context, e *mapping.Entry) error
	TouchMapping(ctx context.Context, src source.Source, externalID string, confidence float64) error

	GameByID(ctx context.Context, id uuid.UUID) (*game.Game, error)
	FindGames(ctx context.Context, key source.CompositeKey) ([]*game.Game, error)
	InsertGame(ctx context.Context, g *game.Game) error
	SetOutcome(ctx context.Context, id uuid.UUID, home, away *int, winner *string) error
	RecordConflict(ctx context.Context, id uuid.UUID) error

	Quarantine(ctx context.Context, rec *source.Record, key source.CompositeKey, candidates []uuid.UUID) error
	UpdateQuality(ctx context.Context, id uuid.UUID) error

	// WithCompositeLock runs fn under a short-lived advisory lock keyed on
	// the normalized composite tuple, guarding the create-or-match decision
	// against two workers creating the same game.
	WithCompositeLock(ctx context.Context, key source.CompositeKey, fn func(ctx context.Context, s Store) error) error
}

// ErrSupersessionLoop guards against a corrupted superseded_by chain.
var ErrSupersessionLoop = errors.New("supersession chain too deep")

// Resolver executes the strategy chain.
type Resolver struct {
	store  Store
	reg    *reliability.Registry
	norm   source.Normalizer
	logger *slog.Logger
}

// New builds a resolver. The registry and normalizer are injected so two
// resolvers can run different weightings or matchers side by side.
func New(store Store, reg *reliability.Registry, norm source.Normalizer, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, reg: reg, norm: norm, logger: logger}
}

// Resolve classifies one record. Identical records always land on the same
// canonical id; records the chain cannot place return an ambiguous outcome
// and are quarantined.
func (r *Resolver) Resolve(ctx context.Context, rec *source.Record) (Outcome, error) {
	if err := rec.Validate(); err != nil {
		return Outcome{}, err
	}

	// 1. Exact external-id lookup.
	if out, ok, err := r.resolveExact(ctx, rec); err != nil || ok {
		return out, err
	}

	// 2. Cross-source secondary identifier lookup.
	if out, ok, err := r.resolveSecondary(ctx, rec); err != nil || ok {
		return out, err
	}

	// 3+4. Composite attribute match, else create — one decision under the
	// composite advisory lock.
	return r.resolveComposite(ctx, rec)
}

// ResolveByExternalID answers the read-side question "which canonical game is
// this source id?", following supersession to the survivor.
func (r *Resolver) ResolveByExternalID(ctx context.Context, src source.Source, externalID string) (uuid.UUID, error) {
	if !src.Valid() {
		return uuid.Nil, fmt.Errorf("resolve by external id: %w", source.ErrUnknownSource)
	}
	e, err := r.store.LookupMapping(ctx, src, externalID)
	if err != nil {
		return uuid.Nil, err
	}
	return r.follow(ctx, e)
}

// resolveExact is chain step 1.
func (r *Resolver) resolveExact(ctx context.Context, rec *source.Record) (Outcome, bool, error) {
	e, err := r.store.LookupMapping(ctx, rec.Source, rec.ExternalID)
	if errors.Is(err, mapping.ErrNotFound) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}

	id, err := r.follow(ctx, e)
	if err != nil {
		return Outcome{}, false, err
	}
	if err := r.corroborate(ctx, rec, id, e.Confidence); err != nil {
		return Outcome{}, false, err
	}
	return Outcome{Kind: KindMatched, CanonicalID: id, Strategy: "exact"}, true, nil
}

// resolveSecondary is chain step 2: an embedded identifier already known from
// a different source places the record without attribute matching.
func (r *Resolver) resolveSecondary(ctx context.Context, rec *source.Record) (Outcome, bool, error) {
	for sec, extID := range rec.SecondaryIDs {
		if sec == rec.Source {
			continue
		}
		e, err := r.store.LookupMapping(ctx, sec, extID)
		if errors.Is(err, mapping.ErrNotFound) {
			continue
		}
		if err != nil {
			return Outcome{}, false, err
		}

		id, err := r.follow(ctx, e)
		if err != nil {
			return Outcome{}, false, err
		}
		if err := r.register(ctx, rec, id); err != nil {
			return Outcome{}, false, err
		}
		if err := r.corroborate(ctx, rec, id, r.reg.Weight(rec.Source)); err != nil {
			return Outcome{}, false, err
		}
		return Outcome{Kind: KindMatched, CanonicalID: id, Strategy: "cross-source"}, true, nil
	}
	return Outcome{}, false, nil
}

// resolveComposite is chain steps 3 and 4 under the advisory lock.
func (r *Resolver) resolveComposite(ctx context.Context, rec *source.Record) (Outcome, error) {
	key := source.KeyFor(r.norm, rec)

	var out Outcome
	err := r.store.WithCompositeLock(ctx, key, func(ctx context.Context, s Store) error {
		candidates, err := s.FindGames(ctx, key)
		if err != nil {
			return err
		}

		switch len(candidates) {
		case 0:
			g := game.New(key.Home, key.Away, key.Date, rec.GameDatetime, r.reg.Weight(rec.Source))
			g.HomeScore, g.AwayScore, g.WinningTeam = rec.HomeScore, rec.AwayScore, rec.WinningTeam
			if err := s.InsertGame(ctx, g); err != nil {
				return err
			}
			err := s.InsertMapping(ctx, &mapping.Entry{
				Source: rec.Source, ExternalID: rec.ExternalID,
				CanonicalID: g.ID, Confidence: g.ResolutionConfidence,
			})
			var conflict *mapping.ConflictError
			if errors.As(err, &conflict) {
				// Another worker bound this external id while we held only
				// the composite lock (different normalized key, same id).
				// Their row wins; ours never commits.
				out = Outcome{Kind: KindMatched, CanonicalID: conflict.ExistingID, Strategy: "race-recovery"}
				return err
			}
			if err != nil {
				return err
			}
			out = Outcome{Kind: KindCreated, CanonicalID: g.ID, Strategy: "created"}
			return nil

		case 1:
			g := candidates[0]
			confidence := r.reg.Weight(rec.Source)
			if g.ResolutionConfidence > 0 && g.ResolutionConfidence < confidence {
				confidence = g.ResolutionConfidence
			}
			err := s.InsertMapping(ctx, &mapping.Entry{
				Source: rec.Source, ExternalID: rec.ExternalID,
				CanonicalID: g.ID, Confidence: confidence,
			})
			var conflict *mapping.ConflictError
			if errors.As(err, &conflict) {
				return err
			}
			if err != nil {
				return err
			}
			out = Outcome{Kind: KindMatched, CanonicalID: g.ID, Strategy: "composite"}
			return nil

		default:
			ids := make([]uuid.UUID, len(candidates))
			for i, g := range candidates {
				ids[i] = g.ID
			}
			if err := s.Quarantine(ctx, rec, key, ids); err != nil {
				return err
			}
			out = Outcome{Kind: KindAmbiguous, Candidates: ids, Strategy: "composite"}
			return nil
		}
	})

	var conflict *mapping.ConflictError
	if errors.As(err, &conflict) {
		// Retry-on-conflict: the committed row is authoritative.
		r.logger.Info("Resolver recovered from mapping race",
			"source", rec.Source, "external_id", rec.ExternalID, "canonical_id", conflict.ExistingID)
		if err := r.corroborate(ctx, rec, conflict.ExistingID, r.reg.Weight(rec.Source)); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindMatched, CanonicalID: conflict.ExistingID, Strategy: "race-recovery"}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	switch out.Kind {
	case KindMatched:
		if err := r.corroborate(ctx, rec, out.CanonicalID, r.reg.Weight(rec.Source)); err != nil {
			return Outcome{}, err
		}
	case KindCreated:
		if err := r.store.UpdateQuality(ctx, out.CanonicalID); err != nil {
			return Outcome{}, err
		}
		r.logger.Info("Canonical game created",
			"canonical_id", out.CanonicalID, "source", rec.Source,
			"home", key.Home, "away", key.Away, "date", key.Date.Format("2006-01-02"))
	case KindAmbiguous:
		r.logger.Warn("Ambiguous record quarantined",
			"source", rec.Source, "external_id", rec.ExternalID,
			"candidates", len(out.Candidates), "key", key.String())
	}
	return out, nil
}

// register binds the record's own external id to a game found through a
// different strategy, with confidence capped by the game's own confidence.
func (r *Resolver) register(ctx context.Context, rec *source.Record, id uuid.UUID) error {
	g, err := r.store.GameByID(ctx, id)
	if err != nil {
		return err
	}
	confidence := r.reg.Weight(rec.Source)
	if g.ResolutionConfidence > 0 && g.ResolutionConfidence < confidence {
		confidence = g.ResolutionConfidence
	}
	err = r.store.InsertMapping(ctx, &mapping.Entry{
		Source: rec.Source, ExternalID: rec.ExternalID,
		CanonicalID: id, Confidence: confidence,
	})
	var conflict *mapping.ConflictError
	if errors.As(err, &conflict) && conflict.ExistingID == id {
		return nil
	}
	return err
}

// corroborate absorbs a record that matched an existing game: refresh the
// mapping, reconcile outcome attributes, and rescore.
func (r *Resolver) corroborate(ctx context.Context, rec *source.Record, id uuid.UUID, confidence float64) error {
	if err := r.store.TouchMapping(ctx, rec.Source, rec.ExternalID, confidence); err != nil {
		return err
	}
	if err := r.absorbOutcome(ctx, rec, id); err != nil {
		return err
	}
	return r.store.UpdateQuality(ctx, id)
}

// absorbOutcome fills missing outcome fields from the record and flags
// disagreements as conflicts. It never overwrites a differing stored value —
// the scorer demotes the game instead.
func (r *Resolver) absorbOutcome(ctx context.Context, rec *source.Record, id uuid.UUID) error {
	if rec.HomeScore == nil && rec.AwayScore == nil && rec.WinningTeam == nil {
		return nil
	}
	g, err := r.store.GameByID(ctx, id)
	if err != nil {
		return err
	}
	if !g.Status.Live() {
		return nil
	}

	if intsDiffer(g.HomeScore, rec.HomeScore) || intsDiffer(g.AwayScore, rec.AwayScore) {
		r.logger.Warn("Conflicting outcome from source",
			"canonical_id", id, "source", rec.Source,
			"stored_home", deref(g.HomeScore), "record_home", deref(rec.HomeScore),
			"stored_away", deref(g.AwayScore), "record_away", deref(rec.AwayScore))
		return r.store.RecordConflict(ctx, id)
	}

	// Fill each missing field independently; a half-known outcome still
	// absorbs the half it lacks.
	home, away, winner := g.HomeScore, g.AwayScore, g.WinningTeam
	filled := false
	if home == nil && rec.HomeScore != nil {
		home, filled = rec.HomeScore, true
	}
	if away == nil && rec.AwayScore != nil {
		away, filled = rec.AwayScore, true
	}
	if winner == nil && rec.WinningTeam != nil {
		winner, filled = rec.WinningTeam, true
	}
	if !filled {
		return nil
	}
	return r.store.SetOutcome(ctx, id, home, away, winner)
}

// follow chases superseded_by references until it reaches a live game.
func (r *Resolver) follow(ctx context.Context, e *mapping.Entry) (uuid.UUID, error) {
	if e.TargetStatus.Live() {
		return e.CanonicalID, nil
	}
	id := e.CanonicalID
	for hops := 0; hops < 10; hops++ {
		g, err := r.store.GameByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if g.Status.Live() {
			return g.ID, nil
		}
		if g.SupersededBy == nil {
			return uuid.Nil, fmt.Errorf("game %s is %s with no successor", g.ID, g.Status)
		}
		id = *g.SupersededBy
	}
	return uuid.Nil, ErrSupersessionLoop
}

func intsDiffer(a, b *int) bool {
	return a != nil && b != nil && *a != *b
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}
