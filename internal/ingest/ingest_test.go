package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/identity"
	"github.com/samlafell/mlb-gameid/internal/source"
)

type stubResolver struct {
	mu       sync.Mutex
	seen     []string
	outcomes map[string]identity.Kind // keyed by external id
	failOn   string
}

func (s *stubResolver) Resolve(_ context.Context, rec *source.Record) (identity.Outcome, error) {
	s.mu.Lock()
	s.seen = append(s.seen, rec.ExternalID)
	s.mu.Unlock()
	if rec.ExternalID == s.failOn {
		return identity.Outcome{}, errors.New("resolution failed")
	}
	kind, ok := s.outcomes[rec.ExternalID]
	if !ok {
		kind = identity.KindMatched
	}
	return identity.Outcome{Kind: kind, CanonicalID: uuid.New()}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCountsOutcomeKinds(t *testing.T) {
	input := strings.Join([]string{
		`{"source_name":"action_network","external_id":"an-1","home_team":"Yankees","away_team":"Red Sox","game_date":"2025-07-04T00:00:00Z"}`,
		`{"source_name":"mlb_stats_api","external_id":"mlb-2","home_team":"Yankees","away_team":"Red Sox","game_date":"2025-07-04T00:00:00Z"}`,
		`{"source_name":"vsin","external_id":"vs-3","home_team":"Cubs","away_team":"Mets","game_date":"2025-07-04T00:00:00Z"}`,
	}, "\n")

	r := &stubResolver{outcomes: map[string]identity.Kind{
		"an-1":  identity.KindCreated,
		"mlb-2": identity.KindMatched,
		"vs-3":  identity.KindAmbiguous,
	}}

	res := Run(context.Background(), r, strings.NewReader(input), 2, discardLogger())
	if res.RecordsRead != 3 {
		t.Fatalf("records read = %d, want 3", res.RecordsRead)
	}
	if res.Created != 1 || res.Matched != 1 || res.Ambiguous != 1 || res.Failed != 0 {
		t.Fatalf("counts = %+v", res)
	}
	if len(r.seen) != 3 {
		t.Fatalf("resolver saw %d records, want 3", len(r.seen))
	}
}

func TestRunSkipsMalformedLinesAndBlankLines(t *testing.T) {
	input := "not json\n\n" +
		`{"source_name":"sbr","external_id":"sbr-1","home_team":"Cubs","away_team":"Mets","game_date":"2025-07-04T00:00:00Z"}` + "\n"

	r := &stubResolver{}
	res := Run(context.Background(), r, strings.NewReader(input), 1, discardLogger())

	if res.RecordsRead != 1 || res.Matched != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if res.Failed != 1 || len(res.Errors) != 1 {
		t.Fatalf("malformed line must be counted and reported: %+v", res)
	}
	if !strings.Contains(res.Errors[0], "line 1") {
		t.Fatalf("error must carry the line number: %s", res.Errors[0])
	}
}

func TestRunRecordsResolutionFailures(t *testing.T) {
	input := `{"source_name":"sbd","external_id":"bad","home_team":"Cubs","away_team":"Mets","game_date":"2025-07-04T00:00:00Z"}` + "\n" +
		`{"source_name":"sbd","external_id":"good","home_team":"Cubs","away_team":"Mets","game_date":"2025-07-04T00:00:00Z"}` + "\n"

	r := &stubResolver{failOn: "bad"}
	res := Run(context.Background(), r, strings.NewReader(input), 1, discardLogger())

	if res.Failed != 1 || res.Matched != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if !strings.Contains(res.Errors[0], "sbd/bad") {
		t.Fatalf("error must name the record: %s", res.Errors[0])
	}
	if !strings.Contains(res.Summary(), "failed=1") {
		t.Fatalf("summary missing failure count: %s", res.Summary())
	}
}
