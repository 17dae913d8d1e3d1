// Package main is the entry point for the esprit arena battle runner.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/samdwyer/espritarena/internal/arena"
	"github.com/samdwyer/espritarena/internal/config"
	"github.com/samdwyer/espritarena/internal/game"
	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/ledger"
	"github.com/samdwyer/espritarena/internal/telemetry"
	"github.com/samdwyer/espritarena/internal/ui"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config/arena.yaml", "path to config file")
	matchupsPath := flag.String("matchups", "matchups.yaml", "path to matchup file")
	outPath := flag.String("out", "-", "write results as JSON to this file (- for stdout)")
	watch := flag.Bool("watch", false, "replay results in the terminal when done")
	flag.Parse()

	// Load .env file for local development
	if err := godotenv.Load(); err != nil {
		// Not fatal - env vars might be set directly
		slog.Debug(".env file not loaded", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupOTelEnv(cfg.Telemetry)
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		// Battles still run without observability
		slog.Warn("telemetry setup failed", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	rules, err := buildRules(cfg)
	if err != nil {
		return err
	}
	slog.Info("rules loaded", "tables", tablesSource(cfg), "max_turns", cfg.MaxTurns)

	matchups, err := arena.LoadMatchups(*matchupsPath)
	if err != nil {
		return err
	}

	runner := &arena.Runner{
		Orchestrator: &game.Orchestrator{
			Rules:    rules,
			Config:   game.Config{MaxTurns: cfg.MaxTurns, Logger: logger},
			Splitter: splitter(cfg.Split),
		},
		Workers: cfg.Workers,
		Logger:  logger,
	}

	if cfg.Database.DSN != "" {
		if cfg.Database.Migrate {
			if err := ledger.Migrate(ctx, cfg.Database.DSN); err != nil {
				return err
			}
			slog.Info("database migrations applied")
		}
		sink, err := ledger.NewPostgresSink(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer sink.Close()
		runner.Recorder = sink
		slog.Info("database connected")
	}

	results, err := runner.Run(ctx, matchups)
	if err != nil {
		return err
	}

	if err := writeResults(*outPath, results); err != nil {
		return err
	}

	if *watch {
		screen, err := ui.NewScreen()
		if err != nil {
			return fmt.Errorf("opening terminal: %w", err)
		}
		return ui.NewViewer(screen, results).Run(ctx)
	}
	return nil
}

func buildRules(cfg config.Config) (*game.Rules, error) {
	var (
		tables gamedata.Tables
		err    error
	)
	if cfg.TablesDir != "" {
		tables, err = gamedata.LoadTables(os.DirFS(cfg.TablesDir), ".")
	} else {
		tables, err = gamedata.EmbeddedTables()
	}
	if err != nil {
		return nil, fmt.Errorf("loading tables from %s: %w", tablesSource(cfg), err)
	}
	return game.NewRules(tables, cfg.Calculator())
}

func tablesSource(cfg config.Config) string {
	if cfg.TablesDir != "" {
		return cfg.TablesDir
	}
	return "embedded"
}

func splitter(name string) game.SplitPolicy {
	if name == "element" {
		return game.PlayerSplit{Default: game.ElementGroupSplit{}}
	}
	return game.PlayerSplit{Default: game.FixedSplit{}}
}

func writeResults(path string, results []game.BattleResult) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// setupOTelEnv points the OTLP exporter at Honeycomb when an API key is
// present and no endpoint was configured.
func setupOTelEnv(cfg config.TelemetryConfig) {
	apiKey := os.Getenv("HONEYCOMB_ESPRITARENA_API_KEY")
	if !cfg.Enabled || apiKey == "" {
		return
	}
	if cfg.Endpoint == "" && os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://api.honeycomb.io")
	}
	dataset := os.Getenv("HONEYCOMB_ESPRITARENA_DATASET")
	if dataset == "" {
		dataset = "espritarena"
	}
	os.Setenv("OTEL_EXPORTER_OTLP_HEADERS",
		fmt.Sprintf("x-honeycomb-team=%s,x-honeycomb-dataset=%s", apiKey, dataset))
}
