package ui

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/espritarena/internal/game"
	"github.com/samdwyer/espritarena/internal/telemetry"
)

// Viewer steps through a battle result interactively.
type Viewer struct {
	screen  *Screen
	replay  *Replay
	results []game.BattleResult
	battle  int
	frame   Frame
	running bool
}

// NewViewer creates a viewer over results, starting at the first stage of
// the first battle.
func NewViewer(screen *Screen, results []game.BattleResult) *Viewer {
	return &Viewer{
		screen:  screen,
		replay:  NewReplay(screen),
		results: results,
		frame:   Frame{Turn: 1},
		running: true,
	}
}

// Run executes the viewer loop until the user quits.
func (v *Viewer) Run(ctx context.Context) error {
	tracer := telemetry.Tracer("ui")
	_, span := tracer.Start(ctx, "ui.watch")
	span.SetAttributes(attribute.Int("battles", len(v.results)))
	defer span.End()

	for v.running && len(v.results) > 0 {
		v.replay.Draw(v.results[v.battle], v.frame)
		v.handleInput()
	}

	v.screen.Close()
	return nil
}

// Frame returns the battle index and frame currently shown.
func (v *Viewer) Frame() (int, Frame) { return v.battle, v.frame }

// handleInput processes a single input event.
func (v *Viewer) handleInput() {
	ev := v.screen.PollEvent()

	switch ev := ev.(type) {
	case *tcell.EventKey:
		v.handleKeyEvent(ev)
	case *tcell.EventResize:
		v.screen.Sync()
	}
}

// handleKeyEvent processes keyboard input.
func (v *Viewer) handleKeyEvent(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		v.running = false

	case tcell.KeyRight:
		v.Step(1)
	case tcell.KeyLeft:
		v.Step(-1)
	case tcell.KeyEnd:
		v.Step(1 << 20)
	case tcell.KeyHome:
		v.Step(-(1 << 20))
	case tcell.KeyTab:
		v.NextStage()
	case tcell.KeyDown:
		v.NextBattle(1)
	case tcell.KeyUp:
		v.NextBattle(-1)

	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			v.running = false
		}
	}
}

// Step moves n turns within the current stage, clamped to its log.
func (v *Viewer) Step(n int) {
	stages := v.results[v.battle].Stages
	if len(stages) == 0 {
		return
	}
	last := max(1, len(stages[v.frame.Stage].Log))
	v.frame.Turn = min(max(1, v.frame.Turn+n), last)
}

// NextStage cycles to the next stage and rewinds to its first turn.
func (v *Viewer) NextStage() {
	stages := v.results[v.battle].Stages
	if len(stages) == 0 {
		return
	}
	v.frame = Frame{Stage: (v.frame.Stage + 1) % len(stages), Turn: 1}
}

// NextBattle moves by n battles, wrapping around.
func (v *Viewer) NextBattle(n int) {
	count := len(v.results)
	v.battle = ((v.battle+n)%count + count) % count
	v.frame = Frame{Turn: 1}
}
