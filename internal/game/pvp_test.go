package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/espritarena/internal/entity"
	"github.com/samdwyer/espritarena/internal/gamedata"
)

func roster(name string, atk, hp int, elements ...gamedata.Element) Roster {
	r := Roster{Name: name}
	for i := range RosterSize {
		el := gamedata.ElementRadiant
		if i < len(elements) {
			el = elements[i]
		}
		r.Esprits = append(r.Esprits, esprit(fmt.Sprintf("%s-%d", name, i+1), el, 1, atk, 0, hp))
	}
	return r
}

func identities(snaps []entity.Snapshot) []string {
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.Identity
	}
	return ids
}

func TestDecide(t *testing.T) {
	stage := func(winner Side, dealtA, dealtB, takenA, takenB int) StageResult {
		st := StageResult{Winner: winner, State: StateDecided}
		st.DamageDealt = [2]int{dealtA, dealtB}
		st.DamageTaken = [2]int{takenA, takenB}
		return st
	}

	tests := []struct {
		name       string
		stages     []StageResult
		wantWinner Side
		wantReason Reason
	}{
		{
			name:       "a sweeps",
			stages:     []StageResult{stage(SideA, 10, 900, 900, 10), stage(SideA, 10, 900, 900, 10)},
			wantWinner: SideA,
			wantReason: ReasonStageSweep,
		},
		{
			name:       "split goes to damage dealt",
			stages:     []StageResult{stage(SideA, 300, 200, 200, 300), stage(SideB, 200, 420, 420, 200)},
			wantWinner: SideB,
			wantReason: ReasonDamageTiebreak,
		},
		{
			name:       "equal damage dealt goes to damage taken",
			stages:     []StageResult{stage(SideA, 300, 300, 250, 300), stage(SideB, 100, 100, 100, 100)},
			wantWinner: SideA,
			wantReason: ReasonDamageTiebreak,
		},
		{
			name:       "stalemates count for nobody",
			stages:     []StageResult{stage(SideA, 50, 40, 40, 50), {State: StateStalemate, Winner: SideNone}},
			wantWinner: SideA,
			wantReason: ReasonDamageTiebreak,
		},
		{
			name:       "full tie is a draw",
			stages:     []StageResult{stage(SideA, 100, 100, 100, 100), stage(SideB, 100, 100, 100, 100)},
			wantWinner: SideNone,
			wantReason: ReasonDraw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, reason := Decide(tt.stages)
			assert.Equal(t, tt.wantWinner, winner)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestSplitPolicies(t *testing.T) {
	r := roster("p", 10, 100,
		gamedata.ElementUmbral, gamedata.ElementInferno, gamedata.ElementUmbral,
		gamedata.ElementInferno, gamedata.ElementRadiant, gamedata.ElementInferno,
	)

	fixed, err := FixedSplit{}.Split(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2", "p-3"}, identities(fixed[0]))
	assert.Equal(t, []string{"p-4", "p-5", "p-6"}, identities(fixed[1]))

	grouped, err := ElementGroupSplit{}.Split(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-2", "p-4", "p-6"}, identities(grouped[0]))
	assert.Equal(t, []string{"p-1", "p-3", "p-5"}, identities(grouped[1]))
	require.NoError(t, ValidateSplit(r, grouped))

	r.Stages = [][]string{{"p-6", "p-5", "p-4"}, {"p-3", "p-2", "p-1"}}
	chosen, err := PlayerSplit{}.Split(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-6", "p-5", "p-4"}, identities(chosen[0]))
	require.NoError(t, ValidateSplit(r, chosen))
}

func TestValidateSplit(t *testing.T) {
	base := roster("p", 10, 100)

	tests := []struct {
		name   string
		roster func() Roster
		stages [][]string
	}{
		{
			name:   "short roster",
			roster: func() Roster { r := base; r.Esprits = r.Esprits[:5]; return r },
		},
		{
			name: "duplicate identity",
			roster: func() Roster {
				r := base
				r.Esprits = append([]entity.Snapshot(nil), base.Esprits...)
				r.Esprits[5].Identity = "p-1"
				return r
			},
		},
		{
			name:   "esprit used twice",
			roster: func() Roster { return base },
			stages: [][]string{{"p-1", "p-2", "p-3"}, {"p-3", "p-4", "p-5"}},
		},
		{
			name:   "uneven stages",
			roster: func() Roster { return base },
			stages: [][]string{{"p-1", "p-2"}, {"p-3", "p-4", "p-5", "p-6"}},
		},
		{
			name:   "unknown esprit",
			roster: func() Roster { return base },
			stages: [][]string{{"p-1", "p-2", "p-3"}, {"p-4", "p-5", "x-9"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.roster()
			r.Stages = tt.stages
			o := &Orchestrator{Rules: testRules(t), Config: quietConfig(0)}

			_, err := o.Battle(context.Background(), Matchup{ID: "m", A: r, B: roster("q", 10, 100)})
			assert.ErrorIs(t, err, ErrInvalidSplit)
		})
	}
}

func TestBattleSweep(t *testing.T) {
	a := roster("strong", 1000, 1000)
	b := roster("weak", 1, 50)
	var progress []BattleProgress
	o := &Orchestrator{
		Rules:   testRules(t),
		Config:  quietConfig(0),
		Policy:  BasicOnly{},
		OnStage: func(p BattleProgress) { progress = append(progress, p) },
	}

	res, err := o.Battle(context.Background(), Matchup{ID: "m1", A: a, B: b})
	require.NoError(t, err)
	assert.Equal(t, SideA, res.Winner)
	assert.Equal(t, ReasonStageSweep, res.Reason)
	assert.Equal(t, "strong", res.WinnerName())
	require.Len(t, res.Stages, StageCount)
	assert.Equal(t, 1, res.Stages[0].Stage)
	assert.Equal(t, 2, res.Stages[1].Stage)
	assert.Equal(t, 300, res.DamageDealt[SideA])

	require.Len(t, progress, StageCount)
	assert.Equal(t, res.ID, progress[0].BattleID)
}

func TestBattleStartsEachStageFresh(t *testing.T) {
	a := roster("a", 100, 1000)
	b := roster("b", 100, 1000)
	o := &Orchestrator{Rules: testRules(t), Config: quietConfig(6), Policy: BasicOnly{}}

	res, err := o.Battle(context.Background(), Matchup{A: a, B: b})
	require.NoError(t, err)
	require.Len(t, res.Stages, StageCount)

	for _, st := range res.Stages {
		assert.Equal(t, StateStalemate, st.State)
		assert.Equal(t, 6, st.Turns)
	}
	// Identical rosters in mirrored stages leave nothing to break the tie.
	assert.Equal(t, res.Stages[0].DamageDealt, res.Stages[1].DamageDealt)

	for _, s := range a.Esprits {
		assert.Zero(t, s.HP)
		assert.Empty(t, s.Effects)
		assert.Empty(t, s.Cooldowns)
	}
}

func TestBattleHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := &Orchestrator{Rules: testRules(t), Config: quietConfig(0)}

	_, err := o.Battle(ctx, Matchup{A: roster("a", 10, 100), B: roster("b", 10, 100)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBattleWithoutRules(t *testing.T) {
	_, err := (&Orchestrator{}).Battle(context.Background(), Matchup{})
	assert.ErrorIs(t, err, ErrSessionInvariant)
}
