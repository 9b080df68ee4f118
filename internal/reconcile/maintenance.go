package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samlafell/mlb-gameid/internal/config"
)

// TickerConfig controls background task intervals. Zero duration disables a
// task.
type TickerConfig struct {
	ReconcileInterval time.Duration // duplicate sweep + quarantine disambiguation
	RescoreInterval   time.Duration // quality decay refresh
	ValidateInterval  time.Duration // orphan-reference audit
	RescoreBatch      int
}

// TickersFromConfig maps the shared configuration onto ticker intervals.
func TickersFromConfig(cfg *config.Config) TickerConfig {
	return TickerConfig{
		ReconcileInterval: cfg.ReconcileInterval,
		RescoreInterval:   cfg.RescoreInterval,
		ValidateInterval:  cfg.ValidateInterval,
		RescoreBatch:      cfg.ReconcileBatchLimit,
	}
}

// Start launches the background tickers. Blocks until ctx is cancelled;
// intended to be called with `go`.
func Start(ctx context.Context, rc *Reconciler, pool *pgxpool.Pool, cfg TickerConfig, logger *slog.Logger) {
	logger.Info("Reconciliation tickers started",
		"reconcile", cfg.ReconcileInterval,
		"rescore", cfg.RescoreInterval,
		"validate", cfg.ValidateInterval)

	tickers := make([]*time.Ticker, 0, 3)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.ReconcileInterval > 0 {
		t := time.NewTicker(cfg.ReconcileInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { rc.Run(ctx) })
	}

	if cfg.RescoreInterval > 0 {
		t := time.NewTicker(cfg.RescoreInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() {
			if _, err := rc.Rescore(ctx, cfg.RescoreBatch); err != nil {
				logger.Warn("Decay rescore pass failed", "error", err)
			}
		})
	}

	if cfg.ValidateInterval > 0 {
		t := time.NewTicker(cfg.ValidateInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() {
			var oe *OrphanError
			if _, err := Validate(ctx, pool, logger); err != nil && !errors.As(err, &oe) {
				logger.Warn("Orphan validation pass failed", "error", err)
			}
		})
	}

	<-ctx.Done()
	logger.Info("Reconciliation tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}
