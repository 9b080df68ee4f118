// Package mapping is the durable association between source-specific external
// ids and canonical games. The store enforces that one (source, external id)
// pair points at exactly one live canonical game; violating that is surfaced
// as a ConflictError for the merge engine, never silently overwritten.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Entry is one persisted mapping row joined with its target's live state.
type Entry struct {
	Source         source.Source `json:"source_name"`
	ExternalID     string        `json:"external_id"`
	CanonicalID    uuid.UUID     `json:"canonical_id"`
	Confidence     float64       `json:"confidence"`
	LastVerifiedAt time.Time     `json:"last_verified_at"`

	// Target state at lookup time.
	TargetStatus game.Status `json:"-"`
	SupersededBy *uuid.UUID  `json:"-"`
}

// ConflictError reports an attempt to bind a (source, external id) pair that
// is already bound to a different canonical game. The resolver treats it as a
// concurrent-match signal; the reconciler treats it as a merge candidate.
type ConflictError struct {
	Source      source.Source
	ExternalID  string
	ExistingID  uuid.UUID
	AttemptedID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("mapping conflict: %s/%s already bound to %s (attempted %s)",
		e.Source, e.ExternalID, e.ExistingID, e.AttemptedID)
}

// ErrNotFound reports a lookup miss.
var ErrNotFound = errors.New("mapping not found")

// Insert binds an external id to a canonical game. The insert is optimistic:
// ON CONFLICT DO NOTHING keeps a losing race from aborting the enclosing
// transaction, and the follow-up read distinguishes "identical row already
// there" (fine) from "bound to a different game" (ConflictError). Concurrent
// resolvers retry-on-conflict without any distributed lock.
func Insert(ctx context.Context, q game.Querier, e *Entry) error {
	tag, err := q.Exec(ctx, `
		INSERT INTO external_id_mappings (source_name, external_id, canonical_id, confidence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_name, external_id) DO NOTHING`,
		e.Source, e.ExternalID, e.CanonicalID, e.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert mapping %s/%s: %w", e.Source, e.ExternalID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	existing, err := Lookup(ctx, q, e.Source, e.ExternalID)
	if err != nil {
		return fmt.Errorf("re-read after mapping conflict: %w", err)
	}
	if existing.CanonicalID == e.CanonicalID {
		// Lost a race to an identical insert; nothing to do.
		return nil
	}
	return &ConflictError{
		Source:      e.Source,
		ExternalID:  e.ExternalID,
		ExistingID:  existing.CanonicalID,
		AttemptedID: e.CanonicalID,
	}
}

// Lookup fetches the mapping for a (source, external id) pair along with the
// target game's status, so callers can chase superseded ids.
func Lookup(ctx context.Context, q game.Querier, src source.Source, externalID string) (*Entry, error) {
	e := &Entry{Source: src, ExternalID: externalID}
	err := q.QueryRow(ctx, "mapping_lookup", src, externalID).
		Scan(&e.CanonicalID, &e.Confidence, &e.TargetStatus, &e.SupersededBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup mapping %s/%s: %w", src, externalID, err)
	}
	return e, nil
}

// ForGame lists all mappings pointing at a canonical game.
func ForGame(ctx context.Context, q game.Querier, id uuid.UUID) ([]*Entry, error) {
	rows, err := q.Query(ctx, `
		SELECT source_name, external_id, canonical_id, confidence, last_verified_at
		FROM external_id_mappings
		WHERE canonical_id = $1
		ORDER BY source_name`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list mappings for %s: %w", id, err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Source, &e.ExternalID, &e.CanonicalID, &e.Confidence, &e.LastVerifiedAt); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SourceWeightInput is one scoring input row for the quality scorer.
type SourceWeightInput struct {
	Source         source.Source
	Confidence     float64
	LastVerifiedAt time.Time
}

// ScoringInputs returns the per-source corroboration rows for a game.
func ScoringInputs(ctx context.Context, q game.Querier, id uuid.UUID) ([]SourceWeightInput, error) {
	rows, err := q.Query(ctx, "mapping_sources_for_game", id)
	if err != nil {
		return nil, fmt.Errorf("scoring inputs for %s: %w", id, err)
	}
	defer rows.Close()

	var inputs []SourceWeightInput
	for rows.Next() {
		var in SourceWeightInput
		if err := rows.Scan(&in.Source, &in.Confidence, &in.LastVerifiedAt); err != nil {
			return nil, fmt.Errorf("scan scoring input: %w", err)
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}

// Touch refreshes confidence and verification time after a corroborating
// record re-resolves onto an existing mapping.
func Touch(ctx context.Context, q game.Querier, src source.Source, externalID string, confidence float64) error {
	_, err := q.Exec(ctx, `
		UPDATE external_id_mappings
		SET confidence = GREATEST(confidence, $3), last_verified_at = NOW()
		WHERE source_name = $1 AND external_id = $2`,
		src, externalID, confidence,
	)
	if err != nil {
		return fmt.Errorf("touch mapping %s/%s: %w", src, externalID, err)
	}
	return nil
}

// Repoint moves every mapping off a losing game onto the survivor. Rows are
// re-pointed, never deleted, so external ids keep resolving after a merge.
// Runs inside the merge transaction.
func Repoint(ctx context.Context, q game.Querier, loser, survivor uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE external_id_mappings
		SET canonical_id = $2, last_verified_at = NOW()
		WHERE canonical_id = $1`,
		loser, survivor,
	)
	if err != nil {
		return 0, fmt.Errorf("repoint mappings %s -> %s: %w", loser, survivor, err)
	}
	return tag.RowsAffected(), nil
}
