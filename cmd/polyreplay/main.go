package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/alejandrodnm/polyreplay/config"
)

var configPath string

func main() {
	app := cli.NewApp()
	app.Name = "polyreplay"
	app.Usage = "replay recorded Up/Down market ticks against a trading strategy"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "",
			Usage:       "path to YAML config (defaults + env when empty)",
			EnvVars:     []string{"POLYREPLAY_CONFIG"},
			Destination: &configPath,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "set log level to debug",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "log format: text|json (overrides config)",
		},
	}
	app.Commands = []*cli.Command{
		runCommand,
		marketsCommand,
		strategiesCommand,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("polyreplay exited with error", "err", err)
		cancel()
		os.Exit(1)
	}
}

// loadConfig carga la config y aplica los flags globales de logging.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if f := c.String("format"); f != "" {
		cfg.Log.Format = f
	}
	setupLogger(cfg.Log)
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func usageErr(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), 2)
}
