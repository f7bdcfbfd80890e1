package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/alejandrodnm/polyreplay/internal/adapters/csvfeed"
	"github.com/alejandrodnm/polyreplay/internal/application/backtest"
	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/strategy"
)

var marketsCommand = &cli.Command{
	Name:      "markets",
	Usage:     "list the markets found in a data file",
	ArgsUsage: "[csv file]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "data", Usage: "data directory"},
		&cli.StringFlag{Name: "date", Usage: "YYYYMMDD, YYYY-MM-DD or latest"},
		&cli.BoolFlag{Name: "files", Usage: "list the daily files instead"},
	},
	Action: marketsAction,
}

var strategiesCommand = &cli.Command{
	Name:  "strategies",
	Usage: "list the available strategies",
	Action: func(c *cli.Context) error {
		for _, name := range strategy.DefaultRegistry().Names() {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	},
}

func marketsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("data") {
		cfg.Data.Dir = c.String("data")
	}
	if c.IsSet("date") {
		cfg.Data.Date = c.String("date")
	}

	if c.Bool("files") {
		files, err := csvfeed.List(cfg.Data.Dir, cfg.Data.BaseName)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(c.App.Writer, "%s  %s\n", f.Date.Format("2006-01-02"), f.Path)
		}
		return nil
	}

	path := c.Args().First()
	if path == "" {
		f, err := csvfeed.Resolve(cfg.Data.Dir, cfg.Data.BaseName, cfg.Data.Date)
		if err != nil {
			return err
		}
		path = f.Path
	}

	rows, err := csvfeed.NewSource(path).ReadRows(c.Context)
	if err != nil {
		return err
	}
	seg, err := backtest.Segment(rows)
	if err != nil {
		return err
	}

	grace := cfg.Engine().ExpiryGrace
	table := tablewriter.NewWriter(c.App.Writer)
	table.Header("Market", "Target", "Expiration", "Ticks", "First", "Last", "Truncated", "Resolution")
	for _, m := range seg.Markets {
		last, _ := m.Last()
		table.Append(
			m.ID(),
			m.TargetTime.UTC().Format("15:04:05"),
			m.Expiration.UTC().Format("15:04:05"),
			fmt.Sprintf("%d", m.Len()),
			m.Ticks[0].Timestamp.UTC().Format("15:04:05"),
			last.Timestamp.UTC().Format("15:04:05"),
			fmt.Sprintf("%v", m.Truncated(grace)),
			string(domain.Resolve(last)),
		)
	}
	table.Render()
	fmt.Fprintf(c.App.Writer, "%d markets, %d ticks, %d rows dropped\n", len(seg.Markets), seg.Ticks(), len(seg.Warnings))
	return nil
}
