// Package reliability holds the per-source trust weights the resolver and
// quality scorer consume. The registry is an explicit, versioned value passed
// into those components rather than ambient process-wide state, so two
// resolver instances can run with different weightings side by side.
package reliability

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samlafell/mlb-gameid/internal/source"
)

// Registry is an immutable per-source weight table.
type Registry struct {
	version string
	weights map[source.Source]float64
}

// Default returns the production weight table. The official stats API is the
// anchor at 1.0; betting feeds rank below it by observed historical accuracy.
func Default() *Registry {
	return &Registry{
		version: "2025.1",
		weights: map[source.Source]float64{
			source.MLBStatsAPI:   1.0,
			source.ActionNetwork: 0.9,
			source.SBR:           0.85,
			source.VSIN:          0.8,
			source.SBD:           0.75,
		},
	}
}

// FromEnv builds a registry from RELIABILITY_WEIGHTS
// ("mlb_stats_api=1.0,vsin=0.8,...") layered over the defaults. Unknown
// source names in the variable are a configuration error, not a new source.
func FromEnv() (*Registry, error) {
	reg := Default()
	raw := os.Getenv("RELIABILITY_WEIGHTS")
	if raw == "" {
		return reg, nil
	}
	weights := make(map[source.Source]float64, len(reg.weights))
	for s, w := range reg.weights {
		weights[s] = w
	}
	for _, pair := range strings.Split(raw, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("malformed RELIABILITY_WEIGHTS entry %q", pair)
		}
		src, err := source.Parse(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("RELIABILITY_WEIGHTS: %w", err)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || w < 0 || w > 1 {
			return nil, fmt.Errorf("RELIABILITY_WEIGHTS: weight for %s must be in [0,1], got %q", src, val)
		}
		weights[src] = w
	}
	return &Registry{version: reg.version + "+env", weights: weights}, nil
}

// Version identifies the weight table in logs and merge audit rows.
func (r *Registry) Version() string { return r.version }

// Weight returns the trust weight for a source, zero for anything outside
// the closed set.
func (r *Registry) Weight(s source.Source) float64 {
	return r.weights[s]
}

// Mean returns the average weight of the given sources, zero for an empty
// slice. Duplicate sources are counted once.
func (r *Registry) Mean(sources []source.Source) float64 {
	seen := make(map[source.Source]bool, len(sources))
	sum := 0.0
	for _, s := range sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		sum += r.weights[s]
	}
	if len(seen) == 0 {
		return 0
	}
	return sum / float64(len(seen))
}

// Sum returns the aggregate weight of the given sources, duplicates counted
// once. Used by merge survivor selection as a tie-break.
func (r *Registry) Sum(sources []source.Source) float64 {
	seen := make(map[source.Source]bool, len(sources))
	sum := 0.0
	for _, s := range sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		sum += r.weights[s]
	}
	return sum
}

// Ranked returns all sources ordered by descending weight, name as tie-break.
func (r *Registry) Ranked() []source.Source {
	out := make([]source.Source, 0, len(r.weights))
	for s := range r.weights {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if r.weights[out[i]] != r.weights[out[j]] {
			return r.weights[out[i]] > r.weights[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
