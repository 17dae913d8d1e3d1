package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/tier"
)

type holder struct {
	set   *Set
	maxHP int
}

func newHolder(maxHP int) *holder {
	return &holder{set: NewSet(), maxHP: maxHP}
}

func (h *holder) Effects() *Set { return h.set }
func (h *holder) GetMaxHP() int { return h.maxHP }

func TestEmbeddedRegistryCoversEveryKind(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	for _, k := range gamedata.EffectKinds() {
		_, ok := r.Spec(k)
		assert.True(t, ok, "kind %s", k)
	}
}

func TestMagnitudeStepFunction(t *testing.T) {
	r := MustLoad()
	siphon, _ := r.Spec(gamedata.EffectPowerSiphon)

	tests := []struct {
		tier int
		want float64
	}{
		{1, 0.055},
		{5, 0.055},
		{6, 0.08},
		{11, 0.08},
		{12, 0.11},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, siphon.Magnitude(tt.tier), 1e-9, "tier %d", tt.tier)
	}

	for _, k := range gamedata.EffectKinds() {
		spec, _ := r.Spec(k)
		for tierN := gamedata.MinTier + 1; tierN <= gamedata.MaxTier; tierN++ {
			assert.GreaterOrEqual(t, spec.Magnitude(tierN), spec.Magnitude(tierN-1), "%s tier %d", k, tierN)
		}
	}
}

func TestAdditiveStackingStopsAtCap(t *testing.T) {
	r := MustLoad()

	tests := []struct {
		tier int
		cap  int
	}{
		{1, 5},
		{4, 6},
		{8, 7},
		{12, 8},
	}
	for _, tt := range tests {
		h := newHolder(1000)
		var last AppliedDelta
		for i := 0; i < 12; i++ {
			d, err := r.Apply(h, gamedata.EffectVulnerabilityMark, tt.tier)
			require.NoError(t, err)
			last = d
		}
		e, ok := h.set.Get(gamedata.EffectVulnerabilityMark)
		require.True(t, ok)
		assert.Equal(t, tt.cap, e.Stacks, "tier %d", tt.tier)
		assert.Equal(t, OutcomeCapReached, last.Outcome)
		assert.Equal(t, tt.cap, last.Stacks)
	}
}

func TestRefreshKeepsMagnitudeAndResetsDuration(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	first, err := r.Apply(h, gamedata.EffectAttackBoost, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, first.Outcome)

	r.Tick(h)
	r.Tick(h)
	e, _ := h.set.Get(gamedata.EffectAttackBoost)
	assert.Equal(t, 1, e.RemainingTurns)

	again, err := r.Apply(h, gamedata.EffectAttackBoost, 12)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, again.Outcome)
	assert.Equal(t, 3, again.RemainingTurns)
	assert.InDelta(t, 0.2, again.Magnitude, 1e-9)
}

func TestReplaceOverwritesPriorInstance(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	_, err := r.Apply(h, gamedata.EffectElementalWeakness, 1)
	require.NoError(t, err)
	d, err := r.Apply(h, gamedata.EffectElementalWeakness, 12)
	require.NoError(t, err)

	assert.Equal(t, OutcomeReplaced, d.Outcome)
	e, _ := h.set.Get(gamedata.EffectElementalWeakness)
	assert.Equal(t, 12, e.SourceTier)
	assert.InDelta(t, 3.2, e.Magnitude, 1e-9)
	assert.Equal(t, 1, h.set.Len())
}

func TestTickRemovesLastTurnWithSingleDelta(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	_, err := r.Apply(h, gamedata.EffectBurn, 1, WithTurns(1))
	require.NoError(t, err)

	deltas := r.Tick(h)
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Expired)
	assert.Equal(t, 30, deltas[0].Damage)
	assert.Equal(t, 0, h.set.Len())

	assert.Empty(t, r.Tick(h))
}

func TestTickLeavesUntilUsedEffects(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	for _, kind := range []gamedata.EffectKind{gamedata.EffectOvercharge, gamedata.EffectElementalWeakness} {
		spec, _ := r.Spec(kind)
		assert.True(t, spec.UntilUsed, "kind %s", kind)
		_, err := r.Apply(h, kind, 6)
		require.NoError(t, err)
	}
	for range 10 {
		assert.Empty(t, r.Tick(h))
	}
	assert.True(t, h.set.Has(gamedata.EffectOvercharge))
	assert.True(t, h.set.Has(gamedata.EffectElementalWeakness))
}

func TestReapplyNeverShortensDuration(t *testing.T) {
	r := MustLoad()

	tests := []struct {
		name string
		kind gamedata.EffectKind
	}{
		{"refresh", gamedata.EffectRegeneration},
		{"additive", gamedata.EffectBerserkerRage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHolder(1000)
			_, err := r.Apply(h, tt.kind, 6, WithTurns(51))
			require.NoError(t, err)

			d, err := r.Apply(h, tt.kind, 6)
			require.NoError(t, err)
			assert.Equal(t, 51, d.RemainingTurns)

			e, _ := h.set.Get(tt.kind)
			assert.Equal(t, 51, e.RemainingTurns)
		})
	}
}

func TestTickDamageScalesWithStacks(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	_, _ = r.Apply(h, gamedata.EffectBurn, 1)
	_, _ = r.Apply(h, gamedata.EffectBurn, 1)
	_, _ = r.Apply(h, gamedata.EffectRegeneration, 1)

	deltas := r.Tick(h)
	require.Len(t, deltas, 2)
	assert.Equal(t, gamedata.EffectBurn, deltas[0].Kind)
	assert.Equal(t, 60, deltas[0].Damage)
	assert.Equal(t, 50, deltas[1].Healing)
	assert.False(t, deltas[0].Expired)
}

func TestImmunitySuppressesApply(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	_, err := r.Apply(h, gamedata.EffectFireMastery, 1)
	require.NoError(t, err)

	d, err := r.Apply(h, gamedata.EffectBurn, 12)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, d.Outcome)
	assert.Equal(t, gamedata.EffectFireMastery, d.SuppressedBy)
	assert.False(t, h.set.Has(gamedata.EffectBurn))

	_, err = r.Apply(h, gamedata.EffectPoison, 1)
	require.NoError(t, err)
	assert.True(t, h.set.Has(gamedata.EffectPoison))
}

func TestManaBurnIsInstant(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	low, err := r.Apply(h, gamedata.EffectManaBurn, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInstant, low.Outcome)
	assert.Equal(t, 9, low.Damage)

	high, err := r.Apply(h, gamedata.EffectManaBurn, 10)
	require.NoError(t, err)
	assert.Equal(t, 33, high.Damage)
	assert.Equal(t, 0, h.set.Len())
}

func TestTemporalShiftDeliversBankedDamage(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	_, err := r.Apply(h, gamedata.EffectTemporalShift, 1)
	require.NoError(t, err)
	assert.True(t, h.set.Bank(70))
	assert.True(t, h.set.Bank(30))

	first := r.Tick(h)
	require.Len(t, first, 1)
	assert.Zero(t, first[0].Damage)

	second := r.Tick(h)
	require.Len(t, second, 1)
	assert.Equal(t, 100, second[0].Damage)
	assert.True(t, second[0].Expired)
	assert.False(t, h.set.Bank(10))
}

func TestPerfectCounterCharges(t *testing.T) {
	r := MustLoad()

	for tierN, want := range map[int]int{1: 1, 7: 2, 12: 3} {
		h := newHolder(1000)
		_, err := r.Apply(h, gamedata.EffectPerfectCounter, tierN)
		require.NoError(t, err)
		assert.Equal(t, want, r.Modifiers(h.set).PerfectCounter, "tier %d", tierN)

		for i := 0; i < want; i++ {
			assert.True(t, h.set.UseCharge(gamedata.EffectPerfectCounter))
		}
		assert.False(t, h.set.Has(gamedata.EffectPerfectCounter))
	}
}

func TestModifiersComposition(t *testing.T) {
	r := MustLoad()
	h := newHolder(1000)

	_, _ = r.Apply(h, gamedata.EffectAttackBoost, 1)
	_, _ = r.Apply(h, gamedata.EffectWeakened, 1)
	_, _ = r.Apply(h, gamedata.EffectBerserkerRage, 1)
	_, _ = r.Apply(h, gamedata.EffectBerserkerRage, 1)
	_, _ = r.Apply(h, gamedata.EffectDefenseBoost, 1)

	m := r.Modifiers(h.set)
	// 1 + 0.2 - 0.3 + 2*0.155
	assert.InDelta(t, 1.21, m.Attack, 1e-9)
	assert.InDelta(t, 2*0.105, m.Vulnerability, 1e-9)
	assert.InDelta(t, 0.15, m.Resistance, 1e-9)
	assert.Zero(t, m.Overcharge)
	assert.False(t, m.TemporalShift)
}

func TestApplyErrors(t *testing.T) {
	r := MustLoad()
	h := newHolder(100)

	_, err := r.Apply(h, gamedata.EffectKind("frostbite"), 1)
	assert.ErrorIs(t, err, gamedata.ErrUnknownKey)

	_, err = r.Apply(h, gamedata.EffectBurn, 13)
	assert.ErrorIs(t, err, tier.ErrInvalidTier)
	assert.Equal(t, 0, h.set.Len())
}

func TestNewRegistryRejectsMalformedTables(t *testing.T) {
	base := func() gamedata.EffectsFile {
		f, err := gamedata.LoadEffects()
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		name   string
		mutate func(f *gamedata.EffectsFile)
	}{
		{"missing kind", func(f *gamedata.EffectsFile) { f.Effects = f.Effects[1:] }},
		{"duplicate kind", func(f *gamedata.EffectsFile) { f.Effects = append(f.Effects, f.Effects[0]) }},
		{"decreasing steps", func(f *gamedata.EffectsFile) {
			f.Effects[0].Magnitude.Steps = []gamedata.StepDef{{Tier: 1, Value: 0.5}, {Tier: 2, Value: 0.1}}
		}},
		{"step out of range", func(f *gamedata.EffectsFile) {
			f.Effects[0].Magnitude.Steps = []gamedata.StepDef{{Tier: 13, Value: 1}}
		}},
		{"additive without cap", func(f *gamedata.EffectsFile) { f.Effects[0].StackCap = nil }},
		{"negative base", func(f *gamedata.EffectsFile) { f.Effects[1].Duration.Base = -1 }},
		{"instant held until used", func(f *gamedata.EffectsFile) {
			for i := range f.Effects {
				if f.Effects[i].Kind == gamedata.EffectManaBurn {
					f.Effects[i].UntilUsed = true
				}
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base()
			tt.mutate(&f)
			_, err := NewRegistry(f)
			assert.ErrorIs(t, err, ErrMalformedRegistry)
		})
	}
}

func TestTargets(t *testing.T) {
	r := MustLoad()
	assert.Equal(t, TargetOpponent, r.TargetOf(gamedata.EffectBurn))
	assert.Equal(t, TargetOpponent, r.TargetOf(gamedata.EffectManaBurn))
	assert.Equal(t, TargetSelf, r.TargetOf(gamedata.EffectCounterStance))
	assert.Equal(t, TargetSelf, r.TargetOf(gamedata.EffectFireMastery))
}
