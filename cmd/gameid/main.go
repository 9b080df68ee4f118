// Command gameid is the game identity administration CLI.
//
// Usage:
//
//	gameid initdb
//	gameid ingest --file records.ndjson --workers 4
//	gameid reconcile
//	gameid merge --game-a <uuid> --game-b <uuid> --reason "duplicate" [--dry-run]
//	gameid rewrite --old <uuid> --new <uuid>
//	gameid quarantine list
//	gameid quarantine resolve --id 42 --canonical-id <uuid>
//	gameid validate
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/samlafell/mlb-gameid/internal/config"
	"github.com/samlafell/mlb-gameid/internal/db"
	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/identity"
	"github.com/samlafell/mlb-gameid/internal/ingest"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/merge"
	"github.com/samlafell/mlb-gameid/internal/quality"
	"github.com/samlafell/mlb-gameid/internal/quarantine"
	"github.com/samlafell/mlb-gameid/internal/reconcile"
	"github.com/samlafell/mlb-gameid/internal/reliability"
	"github.com/samlafell/mlb-gameid/internal/rewrite"
	"github.com/samlafell/mlb-gameid/internal/source"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "gameid",
		Short: "Canonical game identity administration CLI",
	}

	root.AddCommand(initdbCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(mergeCmd())
	root.AddCommand(rewriteCmd())
	root.AddCommand(quarantineCmd())
	root.AddCommand(validateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// initdb command
// --------------------------------------------------------------------------

func initdbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Apply the canonical identity schema (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				start := time.Now()
				if err := pool.EnsureSchema(ctx); err != nil {
					return err
				}
				logger.Info("Schema applied", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// ingest command
// --------------------------------------------------------------------------

func ingestCmd() *cobra.Command {
	var (
		file    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Resolve NDJSON source records (one per line; - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				in := os.Stdin
				if file != "" && file != "-" {
					f, err := os.Open(file)
					if err != nil {
						return fmt.Errorf("open input: %w", err)
					}
					defer f.Close()
					in = f
				}

				reg, err := reliability.FromEnv()
				if err != nil {
					return err
				}
				params := quality.ParamsFromConfig(cfg)
				store := identity.NewPostgresStore(pool.Pool, reg, params, logger)
				resolver := identity.New(store, reg, source.StandardNormalizer{}, logger)

				result := ingest.Run(ctx, resolver, in, workers, logger)
				for _, e := range result.Errors {
					logger.Error("ingest error", "error", e)
				}
				if result.Failed > 0 {
					return fmt.Errorf("%d records failed", result.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "NDJSON input file (- for stdin)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent worker count")
	return cmd
}

// --------------------------------------------------------------------------
// reconcile command
// --------------------------------------------------------------------------

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass (merge duplicates, disambiguate quarantine)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				reg, err := reliability.FromEnv()
				if err != nil {
					return err
				}
				start := time.Now()
				rc := reconcile.New(pool.Pool, reg, cfg, logger)
				result := rc.Run(ctx)
				logger.Info("Reconciliation finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("reconcile error", "error", e)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// merge command
// --------------------------------------------------------------------------

func mergeCmd() *cobra.Command {
	var (
		gameA, gameB string
		reason       string
		dryRun       bool
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Consolidate two canonical games",
		RunE: func(cmd *cobra.Command, args []string) error {
			aID, err := uuid.Parse(gameA)
			if err != nil {
				return fmt.Errorf("--game-a: %w", err)
			}
			bID, err := uuid.Parse(gameB)
			if err != nil {
				return fmt.Errorf("--game-b: %w", err)
			}
			if reason == "" {
				return fmt.Errorf("--reason is required")
			}
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				reg, err := reliability.FromEnv()
				if err != nil {
					return err
				}
				params := quality.ParamsFromConfig(cfg)

				if dryRun {
					return printMergePreview(ctx, pool, reg, aID, bID, cfg.DisambiguateWindow)
				}

				engine := merge.NewEngine(pool.Pool, reg, params, cfg.DisambiguateWindow, logger)
				mr, err := engine.Merge(ctx, aID, bID, reason, "cli")
				if err != nil {
					return err
				}
				if mr.AlreadyMerged {
					logger.Info("Pair already merged", "surviving_id", mr.SurvivingID, "losing_id", mr.LosingID)
					return nil
				}

				report, err := rewrite.New(pool.Pool, logger).Run(ctx, mr.LosingID, mr.SurvivingID)
				if report != nil {
					fmt.Println(report.Summary())
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&gameA, "game-a", "", "First canonical game id")
	cmd.Flags().StringVar(&gameB, "game-b", "", "Second canonical game id")
	cmd.Flags().StringVar(&reason, "reason", "", "Why these games are the same")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show survivor choice and field diffs without writing")
	return cmd
}

// printMergePreview runs survivor selection and the field fold in memory and
// prints what a real merge would do.
func printMergePreview(ctx context.Context, pool *db.Pool, reg *reliability.Registry, aID, bID uuid.UUID, tolerance time.Duration) error {
	a, err := game.ByID(ctx, pool, aID)
	if err != nil {
		return err
	}
	b, err := game.ByID(ctx, pool, bID)
	if err != nil {
		return err
	}
	aWeight, err := aggregateWeight(ctx, pool, reg, aID)
	if err != nil {
		return err
	}
	bWeight, err := aggregateWeight(ctx, pool, reg, bID)
	if err != nil {
		return err
	}

	survivor, loser := merge.ChooseSurvivor(a, b, aWeight, bWeight)
	survivorWeight, loserWeight := aWeight, bWeight
	if survivor != a {
		survivorWeight, loserWeight = bWeight, aWeight
	}
	diffs, conflicts := merge.MergeFields(survivor, loser, survivorWeight, loserWeight, tolerance)

	fmt.Printf("survivor: %s (%s @ %s, quality %.2f, weight %.2f)\n",
		survivor.ID, survivor.AwayTeam, survivor.HomeTeam, survivor.QualityScore, survivorWeight)
	fmt.Printf("loser:    %s (quality %.2f, weight %.2f)\n", loser.ID, loser.QualityScore, loserWeight)
	fmt.Printf("conflicts: %d\n", conflicts)
	out, err := json.MarshalIndent(diffs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func aggregateWeight(ctx context.Context, pool *db.Pool, reg *reliability.Registry, id uuid.UUID) (float64, error) {
	inputs, err := mapping.ScoringInputs(ctx, pool, id)
	if err != nil {
		return 0, err
	}
	sources := make([]source.Source, len(inputs))
	for i, in := range inputs {
		sources[i] = in.Source
	}
	return reg.Sum(sources), nil
}

// --------------------------------------------------------------------------
// rewrite command
// --------------------------------------------------------------------------

func rewriteCmd() *cobra.Command {
	var oldID, newID string
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Re-point fact-table references from one canonical id to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := uuid.Parse(oldID)
			if err != nil {
				return fmt.Errorf("--old: %w", err)
			}
			to, err := uuid.Parse(newID)
			if err != nil {
				return fmt.Errorf("--new: %w", err)
			}
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				report, err := rewrite.New(pool.Pool, logger).Run(ctx, from, to)
				if report != nil {
					fmt.Println(report.Summary())
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&oldID, "old", "", "Canonical id to rewrite away from")
	cmd.Flags().StringVar(&newID, "new", "", "Canonical id to rewrite to")
	return cmd
}

// --------------------------------------------------------------------------
// quarantine command
// --------------------------------------------------------------------------

func quarantineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Review and resolve quarantined records",
	}
	cmd.AddCommand(quarantineListCmd())
	cmd.AddCommand(quarantineResolveCmd())
	return cmd
}

func quarantineListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending quarantined records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				rows, err := quarantine.ListPending(ctx, pool, limit)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Println("no pending quarantined records")
					return nil
				}
				for _, r := range rows {
					fmt.Printf("#%d %s/%s %s @ %s %s candidates=%d\n",
						r.ID, r.Source, r.ExternalID, r.AwayTeam, r.HomeTeam,
						r.GameDate.Format("2006-01-02"), len(r.CandidateIDs))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Max rows to list")
	return cmd
}

func quarantineResolveCmd() *cobra.Command {
	var (
		id          int64
		canonicalID string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one quarantined record to a candidate game",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := uuid.Parse(canonicalID)
			if err != nil {
				return fmt.Errorf("--canonical-id: %w", err)
			}
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				reg, err := reliability.FromEnv()
				if err != nil {
					return err
				}
				params := quality.ParamsFromConfig(cfg)
				if err := quarantine.Resolve(ctx, pool, reg, params, id, target, logger); err != nil {
					return err
				}
				fmt.Printf("quarantine #%d resolved to %s\n", id, target)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Quarantine row id")
	cmd.Flags().StringVar(&canonicalID, "canonical-id", "", "Candidate canonical game id")
	return cmd
}

// --------------------------------------------------------------------------
// validate command
// --------------------------------------------------------------------------

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Audit fact tables for references to merged, retired, or missing games",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmd(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				report, err := reconcile.Validate(ctx, pool.Pool, logger)
				if report != nil {
					fmt.Println(report.Summary())
				}
				return err
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runCmd handles config loading, DB connection, and context cancellation.
func runCmd(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
