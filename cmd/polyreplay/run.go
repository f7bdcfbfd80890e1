package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/alejandrodnm/polyreplay/config"
	"github.com/alejandrodnm/polyreplay/internal/adapters/csvfeed"
	"github.com/alejandrodnm/polyreplay/internal/adapters/notify"
	"github.com/alejandrodnm/polyreplay/internal/adapters/storage"
	"github.com/alejandrodnm/polyreplay/internal/application/backtest"
	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/ports"
	"github.com/alejandrodnm/polyreplay/internal/strategy"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "run a backtest over one day of recorded ticks",
	ArgsUsage: "[csv file]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "strategy name (see `strategies`)"},
		&cli.StringFlag{Name: "data", Usage: "data directory"},
		&cli.StringFlag{Name: "date", Usage: "YYYYMMDD, YYYY-MM-DD or latest"},
		&cli.IntFlag{Name: "workers", Usage: "parallel market simulations (<= 1 runs sequentially)"},
		&cli.Float64Flag{Name: "capital", Usage: "initial capital"},
		&cli.DurationFlag{Name: "slippage", Usage: "fill delay, e.g. 2s (0 disables)"},
		&cli.BoolFlag{Name: "table", Usage: "print full tables (default: compact 1-line)"},
		&cli.StringFlag{Name: "json", Usage: "write the JSON report to this path"},
		&cli.StringFlag{Name: "trades", Usage: "write the trade log CSV to this path"},
		&cli.StringFlag{Name: "risk", Usage: "write the risk event CSV to this path"},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyRunFlags(c, cfg)

	path := c.Args().First()
	if path == "" {
		f, err := csvfeed.Resolve(cfg.Data.Dir, cfg.Data.BaseName, cfg.Data.Date)
		if err != nil {
			return err
		}
		path = f.Path
	}

	slog.Info("polyreplay starting",
		"file", path,
		"strategy", cfg.Strategy.Name,
		"capital", cfg.Backtest.InitialCapital,
		"slippage", cfg.Engine().SlippageDelay,
		"workers", cfg.Backtest.Workers,
	)

	notifier := notify.NewConsoleWriter(c.App.Writer, cfg.Output.Table)
	store := storage.NewFiles(cfg.Output.JSON, cfg.Output.TradesCSV, cfg.Output.RiskCSV)

	rep, err := runBacktest(c.Context, cfg, csvfeed.NewSource(path), notifier, store)
	if errors.Is(err, context.Canceled) {
		slog.Warn("backtest cancelled, partial report written", "markets", len(rep.Markets))
		return nil
	}
	return err
}

func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("strategy") {
		cfg.Strategy.Name = c.String("strategy")
	}
	if c.IsSet("data") {
		cfg.Data.Dir = c.String("data")
	}
	if c.IsSet("date") {
		cfg.Data.Date = c.String("date")
	}
	if c.IsSet("workers") {
		cfg.Backtest.Workers = c.Int("workers")
	}
	if c.IsSet("capital") {
		cfg.Backtest.InitialCapital = c.Float64("capital")
	}
	if c.IsSet("slippage") {
		cfg.Backtest.SlippageDelaySeconds = c.Duration("slippage").Seconds()
	}
	if c.IsSet("table") {
		cfg.Output.Table = c.Bool("table")
	}
	if c.IsSet("json") {
		cfg.Output.JSON = c.String("json")
	}
	if c.IsSet("trades") {
		cfg.Output.TradesCSV = c.String("trades")
	}
	if c.IsSet("risk") {
		cfg.Output.RiskCSV = c.String("risk")
	}
}

// runBacktest ejecuta el pipeline completo: leer, segmentar, simular, reportar.
// Con ctx cancelado a mitad de run el report parcial se reporta y persiste igual.
func runBacktest(ctx context.Context, cfg *config.Config, src ports.RowSource, notifier ports.Notifier, store ports.Storage) (domain.BacktestReport, error) {
	factory, err := strategy.DefaultRegistry().Factory(cfg.Strategy.Name, cfg.Params())
	if err != nil {
		return domain.BacktestReport{}, usageErr("%v", err)
	}
	engineCfg := cfg.Engine()
	if err := engineCfg.Validate(); err != nil {
		return domain.BacktestReport{}, usageErr("%v", err)
	}

	start := time.Now()
	rows, err := src.ReadRows(ctx)
	if err != nil {
		return domain.BacktestReport{}, fmt.Errorf("read rows: %w", err)
	}
	seg, err := backtest.Segment(rows)
	if err != nil {
		return domain.BacktestReport{}, fmt.Errorf("segment: %w", err)
	}
	slog.Info("data loaded",
		"rows", seg.Rows,
		"dropped", len(seg.Warnings),
		"markets", len(seg.Markets),
		"ticks", seg.Ticks(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	driver := backtest.New(engineCfg, cfg.Strategy.Name, factory)
	var rep domain.BacktestReport
	var runErr error
	if cfg.Backtest.Workers > 1 {
		rep, runErr = driver.RunParallel(ctx, seg.Markets, cfg.Backtest.Workers)
	} else {
		rep, runErr = driver.Run(ctx, seg.Markets)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return rep, fmt.Errorf("backtest: %w", runErr)
	}
	rep.RowWarnings = seg.Warnings

	// Los adaptadores de salida no deben heredar la cancelación del run.
	outCtx := context.WithoutCancel(ctx)
	if err := notifier.Notify(outCtx, rep); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if err := store.SaveReport(outCtx, rep); err != nil {
		return rep, fmt.Errorf("save report: %w", err)
	}

	slog.Info("backtest complete",
		"run_id", rep.RunID,
		"markets", len(rep.Markets),
		"trades", len(rep.Trades),
		"final_capital", rep.FinalCapital,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return rep, runErr
}
