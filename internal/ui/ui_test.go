package ui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/espritarena/internal/entity"
	"github.com/samdwyer/espritarena/internal/game"
	"github.com/samdwyer/espritarena/internal/gamedata"
)

func newSimScreen(t *testing.T) *Screen {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	screen, err := NewScreenFrom(sim)
	require.NoError(t, err)
	sim.SetSize(100, 40)
	t.Cleanup(screen.Close)
	return screen
}

func row(s *Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := range w {
		r, _, _, _ := s.screen.GetContent(x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " \x00")
}

func screenText(s *Screen) string {
	_, h := s.Size()
	var lines []string
	for y := range h {
		lines = append(lines, row(s, y))
	}
	return strings.Join(lines, "\n")
}

func snapshots(hpA, hpB int) [2][]entity.Snapshot {
	return [2][]entity.Snapshot{
		{{Identity: "Ignivar", Element: gamedata.ElementInferno, Tier: 6, MaxHP: 1000, HP: hpA}},
		{{Identity: "Noctyra", Element: gamedata.ElementUmbral, Tier: 6, MaxHP: 800, HP: hpB}},
	}
}

func sampleResult() game.BattleResult {
	stage := game.StageResult{
		Stage:  1,
		State:  game.StateDecided,
		Winner: game.SideA,
		Turns:  2,
		Log: []game.TurnResult{
			{Turn: 1, Side: game.SideA, Actor: "Ignivar", Ability: "Inferno Lance",
				Hits:       []game.Hit{{Target: "Noctyra", Dealt: 500}},
				Combatants: snapshots(1000, 300)},
			{Turn: 2, Side: game.SideB, Actor: "Noctyra", Passed: true,
				Combatants: snapshots(1000, 0)},
		},
		Final: snapshots(1000, 0),
	}
	return game.BattleResult{
		ID:          uuid.New(),
		A:           "Aurora",
		B:           "Dusk",
		Stages:      []game.StageResult{stage, stage},
		Winner:      game.SideA,
		Reason:      game.ReasonStageSweep,
		DamageDealt: [2]int{1000, 0},
	}
}

func TestReplayDrawsFrame(t *testing.T) {
	screen := newSimScreen(t)
	NewReplay(screen).Draw(sampleResult(), Frame{Stage: 0, Turn: 1})

	assert.Equal(t, "Aurora vs Dusk", row(screen, 0))
	assert.Contains(t, row(screen, 1), "Aurora wins by stage-sweep")
	assert.Contains(t, row(screen, 3), "Stage 1/2  turn 1/2")

	text := screenText(screen)
	assert.Contains(t, text, "Noctyra")
	assert.Contains(t, text, "300/800")
	assert.Contains(t, text, "T1   Ignivar Inferno Lance | Noctyra -500")
	assert.NotContains(t, text, "passes")
}

func TestReplayFinalFrame(t *testing.T) {
	screen := newSimScreen(t)
	NewReplay(screen).Draw(sampleResult(), Frame{Stage: 1, Turn: 99})

	text := screenText(screen)
	assert.Contains(t, text, "turn 2/2")
	assert.Contains(t, text, "0/800")
	assert.Contains(t, text, "Noctyra passes")
}

func TestReplayWithoutStages(t *testing.T) {
	screen := newSimScreen(t)
	NewReplay(screen).Draw(game.BattleResult{A: "x", B: "y", Reason: game.ReasonDraw}, Frame{})
	assert.Contains(t, screenText(screen), "no stages recorded")
}

func TestHPBar(t *testing.T) {
	tests := []struct {
		hp, max int
		want    string
	}{
		{100, 100, "[" + strings.Repeat("#", 20) + "]"},
		{50, 100, "[" + strings.Repeat("#", 10) + strings.Repeat("-", 10) + "]"},
		{1, 1000, "[#" + strings.Repeat("-", 19) + "]"},
		{0, 100, "[" + strings.Repeat("-", 20) + "]"},
	}
	for _, tt := range tests {
		if got := hpBar(tt.hp, tt.max); got != tt.want {
			t.Errorf("hpBar(%d, %d) = %q, want %q", tt.hp, tt.max, got, tt.want)
		}
	}
}

func TestViewerNavigation(t *testing.T) {
	screen := newSimScreen(t)
	v := NewViewer(screen, []game.BattleResult{sampleResult(), sampleResult()})

	v.Step(5)
	_, f := v.Frame()
	assert.Equal(t, Frame{Stage: 0, Turn: 2}, f)

	v.Step(-5)
	_, f = v.Frame()
	assert.Equal(t, 1, f.Turn)

	v.NextStage()
	v.NextStage()
	_, f = v.Frame()
	assert.Equal(t, 0, f.Stage)

	v.NextBattle(-1)
	battle, f := v.Frame()
	assert.Equal(t, 1, battle)
	assert.Equal(t, Frame{Turn: 1}, f)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    tcell.Color
		wantErr bool
	}{
		{"#FF4500", tcell.NewRGBColor(0xFF, 0x45, 0x00), false},
		{"228b22", tcell.NewRGBColor(0x22, 0x8B, 0x22), false},
		{"#FFF", tcell.ColorDefault, true},
		{"#GG0000", tcell.ColorDefault, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, e := range gamedata.Elements() {
		if _, err := ParseHexColor(e.Color()); err != nil {
			t.Errorf("element %s color %q: %v", e, e.Color(), err)
		}
	}
}
