// Package ingest feeds batches of source records through the resolver. Input
// is NDJSON, one record per line; records fan out over a worker pool and the
// per-line outcome counts aggregate into one Result.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/samlafell/mlb-gameid/internal/identity"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// Resolver is the slice of the identity resolver ingestion needs.
type Resolver interface {
	Resolve(ctx context.Context, rec *source.Record) (identity.Outcome, error)
}

// Result tracks counts and errors from one ingest run.
type Result struct {
	RecordsRead int
	Matched     int
	Created     int
	Ambiguous   int
	Failed      int
	Errors      []string
	Duration    time.Duration
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"records=%d matched=%d created=%d ambiguous=%d failed=%d errors=%d duration=%s",
		r.RecordsRead, r.Matched, r.Created, r.Ambiguous, r.Failed,
		len(r.Errors), r.Duration.Round(time.Millisecond),
	)
}

type work struct {
	line int
	rec  *source.Record
}

// Run reads NDJSON records and resolves each one. Malformed lines and failed
// resolutions are counted and reported; they never stop the run. Line
// numbers in errors are 1-based.
func Run(ctx context.Context, resolver Resolver, in io.Reader, workers int, logger *slog.Logger) Result {
	start := time.Now()
	var result Result

	if workers < 1 {
		workers = 1
	}

	ch := make(chan work, workers*2)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range ch {
				out, err := resolver.Resolve(ctx, w.rec)

				mu.Lock()
				if err != nil {
					result.Failed++
					result.AddErrorf("line %d (%s/%s): %v", w.line, w.rec.Source, w.rec.ExternalID, err)
				} else {
					switch out.Kind {
					case identity.KindMatched:
						result.Matched++
					case identity.KindCreated:
						result.Created++
					case identity.KindAmbiguous:
						result.Ambiguous++
					}
				}
				mu.Unlock()
			}
		}()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
scan:
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec source.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			mu.Lock()
			result.Failed++
			result.AddErrorf("line %d: malformed record: %v", line, err)
			mu.Unlock()
			continue
		}
		mu.Lock()
		result.RecordsRead++
		mu.Unlock()

		select {
		case ch <- work{line: line, rec: &rec}:
		case <-ctx.Done():
			break scan
		}
	}
	close(ch)
	wg.Wait()

	if err := scanner.Err(); err != nil {
		result.AddErrorf("read input: %v", err)
	}
	result.Duration = time.Since(start)

	logger.Info("Ingest run finished", "summary", result.Summary())
	return result
}
