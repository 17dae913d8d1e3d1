// Package arena runs many two-stage battles concurrently and hands their
// results to a sink.
package arena

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/samdwyer/espritarena/internal/game"
	"github.com/samdwyer/espritarena/internal/telemetry"
)

// Recorder receives each battle result as soon as it is decided.
// ledger.Sink satisfies it.
type Recorder interface {
	Record(ctx context.Context, result game.BattleResult) error
}

// Runner fans matchups out over a bounded pool of workers. Each battle owns
// its sessions; only the orchestrator's rules are shared.
type Runner struct {
	Orchestrator *game.Orchestrator
	// Workers bounds concurrent battles. Values below 1 mean 1.
	Workers int
	// Recorder, if set, is called once per decided battle.
	Recorder Recorder
	Logger   *slog.Logger
}

// Run battles every matchup and returns results in input order. The first
// battle or recorder error cancels the remaining work.
func (r *Runner) Run(ctx context.Context, matchups []game.Matchup) ([]game.BattleResult, error) {
	if r.Orchestrator == nil {
		return nil, fmt.Errorf("runner without orchestrator")
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	jobID := uuid.New()
	log = log.With("job", jobID.String())

	tracer := telemetry.Tracer("arena")
	ctx, span := tracer.Start(ctx, "arena.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", jobID.String()),
		attribute.Int("matchups", len(matchups)),
		attribute.Int("workers", max(1, r.Workers)),
	)

	start := time.Now()
	log.Info("arena run starting", "matchups", len(matchups), "workers", max(1, r.Workers))

	results := make([]game.BattleResult, len(matchups))
	var tally struct {
		sync.Mutex
		wins [3]int
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Workers))
	for i, m := range matchups {
		g.Go(func() error {
			res, err := r.Orchestrator.Battle(gctx, m)
			if err != nil {
				return fmt.Errorf("matchup %d %q: %w", i, m.ID, err)
			}
			results[i] = res

			log.Info("battle finished",
				"battle", res.ID.String(),
				"matchup", m.ID,
				"winner", res.WinnerName(),
				"reason", res.Reason,
			)
			tally.Lock()
			tally.wins[res.Winner]++
			tally.Unlock()

			if r.Recorder != nil {
				if err := r.Recorder.Record(gctx, res); err != nil {
					return fmt.Errorf("recording battle %s: %w", res.ID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		log.Error("arena run failed", "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("wins.a", tally.wins[game.SideA]),
		attribute.Int("wins.b", tally.wins[game.SideB]),
		attribute.Int("draws", tally.wins[game.SideNone]),
	)
	log.Info("arena run complete",
		"battles", len(results),
		"wins_a", tally.wins[game.SideA],
		"wins_b", tally.wins[game.SideB],
		"draws", tally.wins[game.SideNone],
		"elapsed", time.Since(start),
	)
	return results, nil
}
