package backtest

// concurrent.go: speculative parallel simulation with sequential
// reconciliation of capital.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// RunParallel simulates every market concurrently, each one starting from the
// initial capital, and then folds the results in expiration order. A
// speculative run is kept only if it started from the capital the market
// actually receives; otherwise the market is simulated again in sequence.
// The report is identical to Run's.
//
// If workers <= 0 uses runtime.NumCPU().
func (d *Driver) RunParallel(ctx context.Context, markets []domain.Market, workers int) (domain.BacktestReport, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	runID := d.runID(markets)
	initial := domain.Dec(d.cfg.InitialCapital)
	speculative := make([]marketRun, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range markets {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each goroutine writes only its own slot
			speculative[i] = d.simulate(runID, markets[i], initial)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Debug("speculative pass interrupted", "err", err)
	}

	rep := d.newReport(runID)
	capital := initial
	adopted, resimulated := 0, 0

	slog.Info("backtest started",
		"run_id", rep.RunID,
		"strategy", d.name,
		"markets", len(markets),
		"workers", workers,
		"initial_capital", fmt.Sprintf("$%.2f", d.cfg.InitialCapital),
	)

	for i, m := range markets {
		if err := ctx.Err(); err != nil {
			return d.finish(rep, capital, false), err
		}

		run := speculative[i]
		if run.done && run.start.Equal(capital) {
			adopted++
		} else {
			run = d.simulate(runID, m, capital)
			resimulated++
		}
		capital = run.end
		merge(&rep, run)
		d.logProgress(i+1, len(markets), capital)
	}

	slog.Debug("parallel reconcile complete",
		"adopted", adopted,
		"resimulated", resimulated,
		"workers", workers,
	)
	return d.finish(rep, capital, true), nil
}
