// Package quarantine holds source records the resolver could not safely
// classify — composite matches with more than one live candidate. Quarantined
// records never auto-merge; they leave through the datetime disambiguation
// rule or an explicit manual resolution.
package quarantine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/quality"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Row is one quarantined record with its candidate set.
type Row struct {
	ID           int64         `json:"id"`
	Source       source.Source `json:"source_name"`
	ExternalID   string        `json:"external_id"`
	HomeTeam     string        `json:"home_team"`
	AwayTeam     string        `json:"away_team"`
	GameDate     time.Time     `json:"game_date"`
	GameDatetime *time.Time    `json:"game_datetime,omitempty"`
	CandidateIDs []uuid.UUID   `json:"candidate_ids"`
	Status       string        `json:"status"`
	ResolvedTo   *uuid.UUID    `json:"resolved_to,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Add stores an ambiguous record. A record already pending for the same
// (source, external id) is left untouched.
func Add(ctx context.Context, q game.Querier, rec *source.Record, key source.CompositeKey, candidates []uuid.UUID) error {
	_, err := q.Exec(ctx, `
		INSERT INTO resolution_quarantine (
			source_name, external_id, home_team, away_team,
			game_date, game_datetime, candidate_ids
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (source_name, external_id) WHERE status = 'pending'
		DO NOTHING`,
		rec.Source, rec.ExternalID, key.Home, key.Away,
		key.Date, rec.GameDatetime, candidates,
	)
	if err != nil {
		return fmt.Errorf("quarantine %s/%s: %w", rec.Source, rec.ExternalID, err)
	}
	return nil
}

// ListPending returns the open quarantine queue, oldest first.
func ListPending(ctx context.Context, q game.Querier, limit int) ([]*Row, error) {
	rows, err := q.Query(ctx, `
		SELECT id, source_name, external_id, home_team, away_team,
		       game_date, game_datetime, candidate_ids, status, resolved_to, created_at
		FROM resolution_quarantine
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list quarantine: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Source, &r.ExternalID, &r.HomeTeam, &r.AwayTeam,
			&r.GameDate, &r.GameDatetime, &r.CandidateIDs, &r.Status, &r.ResolvedTo, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quarantine row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Resolve binds a quarantined record to the chosen canonical game and closes
// the row. Fails if the target is not live or not among the candidates.
func Resolve(ctx context.Context, q game.Querier, reg *reliability.Registry, p quality.Params, id int64, canonicalID uuid.UUID, logger *slog.Logger) error {
	var r Row
	err := q.QueryRow(ctx, `
		SELECT id, source_name, external_id, candidate_ids, status
		FROM resolution_quarantine WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Source, &r.ExternalID, &r.CandidateIDs, &r.Status)
	if err != nil {
		return fmt.Errorf("load quarantine row %d: %w", id, err)
	}
	if r.Status != "pending" {
		return fmt.Errorf("quarantine row %d already %s", id, r.Status)
	}
	if !candidateOf(&r, canonicalID) {
		return fmt.Errorf("quarantine row %d: %s is not a candidate", id, canonicalID)
	}

	g, err := game.ByID(ctx, q, canonicalID)
	if err != nil {
		return fmt.Errorf("resolve quarantine row %d: %w", id, err)
	}
	if !g.Status.Live() {
		return fmt.Errorf("resolve quarantine row %d: game %s is %s", id, canonicalID, g.Status)
	}

	confidence := reg.Weight(r.Source)
	if g.ResolutionConfidence > 0 && g.ResolutionConfidence < confidence {
		confidence = g.ResolutionConfidence
	}
	insertErr := mapping.Insert(ctx, q, &mapping.Entry{
		Source: r.Source, ExternalID: r.ExternalID,
		CanonicalID: canonicalID, Confidence: confidence,
	})
	var conflict *mapping.ConflictError
	if errors.As(insertErr, &conflict) {
		return fmt.Errorf("resolve quarantine row %d: %w", id, insertErr)
	}
	if insertErr != nil {
		return insertErr
	}

	_, err = q.Exec(ctx, `
		UPDATE resolution_quarantine
		SET status = 'resolved', resolved_to = $2, resolved_at = NOW()
		WHERE id = $1`,
		id, canonicalID,
	)
	if err != nil {
		return fmt.Errorf("close quarantine row %d: %w", id, err)
	}

	if err := quality.Update(ctx, q, reg, p, canonicalID, logger); err != nil {
		return err
	}
	logger.Info("Quarantine resolved", "id", id, "canonical_id", canonicalID, "source", r.Source)
	return nil
}

// Disambiguate applies the datetime rule to the pending queue: a record
// carrying a game_datetime resolves automatically when exactly one candidate's
// stored datetime falls inside the tolerance window. Everything else stays
// pending. Returns the number of rows resolved.
func Disambiguate(ctx context.Context, q game.Querier, reg *reliability.Registry, p quality.Params, window time.Duration, logger *slog.Logger) (int, error) {
	pending, err := ListPending(ctx, q, 500)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, r := range pending {
		if r.GameDatetime == nil {
			continue
		}
		match, ok, err := matchByDatetime(ctx, q, r, window)
		if err != nil {
			return resolved, err
		}
		if !ok {
			continue
		}
		if err := Resolve(ctx, q, reg, p, r.ID, match, logger); err != nil {
			logger.Warn("Datetime disambiguation failed", "id", r.ID, "error", err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// matchByDatetime finds the single candidate within the window, if any.
func matchByDatetime(ctx context.Context, q game.Querier, r *Row, window time.Duration) (uuid.UUID, bool, error) {
	var match uuid.UUID
	matches := 0
	for _, id := range r.CandidateIDs {
		g, err := game.ByID(ctx, q, id)
		if errors.Is(err, game.ErrNotFound) {
			continue
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		if !g.Status.Live() || g.GameDatetime == nil {
			continue
		}
		diff := g.GameDatetime.Sub(*r.GameDatetime)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			match = g.ID
			matches++
		}
	}
	return match, matches == 1, nil
}

func candidateOf(r *Row, id uuid.UUID) bool {
	for _, c := range r.CandidateIDs {
		if c == id {
			return true
		}
	}
	return false
}
