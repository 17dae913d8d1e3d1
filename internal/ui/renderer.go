package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/espritarena/internal/entity"
	"github.com/samdwyer/espritarena/internal/game"
)

const (
	hpBarWidth = 20
	logLines   = 10
)

// Replay draws one frame of a finished battle.
type Replay struct {
	screen *Screen
}

// NewReplay creates a new replay renderer for the given screen.
func NewReplay(screen *Screen) *Replay {
	return &Replay{screen: screen}
}

// Frame selects what to draw: a stage index and a turn index within that
// stage's log. A turn past the end of the log shows the final state.
type Frame struct {
	Stage int
	Turn  int
}

// Draw renders the frame of result and flushes the screen.
func (r *Replay) Draw(result game.BattleResult, f Frame) {
	r.screen.Clear()
	white := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	bold := white.Bold(true)

	y := 0
	r.screen.DrawText(0, y, fmt.Sprintf("%s vs %s", result.A, result.B), bold)
	y++
	r.screen.DrawText(0, y, outcome(result), white)
	y += 2

	if f.Stage < 0 || f.Stage >= len(result.Stages) {
		r.screen.DrawText(0, y, "no stages recorded", white)
		r.screen.Show()
		return
	}
	stage := result.Stages[f.Stage]
	combatants, current := frameState(stage, f.Turn)

	header := fmt.Sprintf("Stage %d/%d  turn %d/%d  %s", stage.Stage, len(result.Stages), current, stage.Turns, stage.State)
	if stage.State != game.StateInProgress {
		header += "  winner " + sideName(result, stage.Winner)
	}
	r.screen.DrawText(0, y, header, bold)
	y += 2

	for side, name := range []string{result.A, result.B} {
		r.screen.DrawText(0, y, name, bold)
		y++
		for _, c := range combatants[side] {
			r.drawCombatant(2, y, c)
			y++
		}
		y++
	}

	start := max(0, current-logLines)
	for _, turn := range stage.Log[start:current] {
		r.screen.DrawText(0, y, describeTurn(turn), white)
		y++
	}

	r.screen.Show()
}

func (r *Replay) drawCombatant(x, y int, c entity.Snapshot) {
	x = r.screen.DrawText(x, y, fmt.Sprintf("%-12s", c.Identity), elementStyle(c.Element))
	x = r.screen.DrawText(x, y, hpBar(c.HP, c.MaxHP)+" ", hpStyle(c.HP, c.MaxHP))
	x = r.screen.DrawText(x, y, fmt.Sprintf("%d/%d ", c.HP, c.MaxHP), tcell.StyleDefault.Foreground(tcell.ColorWhite))

	var kinds []string
	for _, e := range c.Effects {
		label := string(e.Kind)
		if e.Stacks > 1 {
			label = fmt.Sprintf("%s x%d", label, e.Stacks)
		}
		kinds = append(kinds, label)
	}
	if len(kinds) > 0 {
		r.screen.DrawText(x, y, "["+strings.Join(kinds, ", ")+"]", tcell.StyleDefault.Foreground(tcell.ColorGray))
	}
}

// frameState returns the combatants after turn (1-based count of turns shown)
// and that count clamped to the log.
func frameState(stage game.StageResult, turn int) ([2][]entity.Snapshot, int) {
	if turn <= 0 && len(stage.Log) > 0 {
		turn = 1
	}
	if turn >= len(stage.Log) {
		return stage.Final, len(stage.Log)
	}
	return stage.Log[turn-1].Combatants, turn
}

func hpBar(hp, maxHP int) string {
	filled := 0
	if maxHP > 0 {
		filled = hp * hpBarWidth / maxHP
		if hp > 0 && filled == 0 {
			filled = 1
		}
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", hpBarWidth-filled) + "]"
}

// hpStyle returns green, yellow or red by remaining HP.
func hpStyle(hp, maxHP int) tcell.Style {
	switch {
	case maxHP == 0 || hp*4 <= maxHP:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case hp*2 <= maxHP:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	}
}

func sideName(result game.BattleResult, side game.Side) string {
	switch side {
	case game.SideA:
		return result.A
	case game.SideB:
		return result.B
	default:
		return "none"
	}
}

func outcome(result game.BattleResult) string {
	if result.Winner == game.SideNone {
		return fmt.Sprintf("Draw (%s)", result.Reason)
	}
	return fmt.Sprintf("%s wins by %s  dealt %d/%d", result.WinnerName(), result.Reason,
		result.DamageDealt[game.SideA], result.DamageDealt[game.SideB])
}

func describeTurn(t game.TurnResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "T%-3d %s ", t.Turn, t.Actor)
	if t.Passed {
		b.WriteString("passes")
		return b.String()
	}
	b.WriteString(t.Ability)
	for _, h := range t.Hits {
		switch {
		case h.Banked > 0:
			fmt.Fprintf(&b, " | %s banks %d", h.Target, h.Banked)
		case h.Dealt > 0:
			fmt.Fprintf(&b, " | %s -%d", h.Target, h.Dealt)
		}
		if h.Reflected > 0 {
			fmt.Fprintf(&b, " (reflected %d)", h.Reflected)
		}
	}
	if t.Healing > 0 {
		fmt.Fprintf(&b, " | %s +%d", t.HealTarget, t.Healing)
	}
	for _, tick := range t.Ticks {
		if tick.Damage > 0 {
			fmt.Fprintf(&b, " | %s %s -%d", tick.Combatant, tick.Kind, tick.Damage)
		}
	}
	return b.String()
}
