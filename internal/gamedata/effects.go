package gamedata

import (
	"fmt"
	"strings"
)

// EffectKind is the closed set of status effects the engine understands.
type EffectKind string

const (
	EffectBurn               EffectKind = "burn"
	EffectPoison             EffectKind = "poison"
	EffectRegeneration       EffectKind = "regeneration"
	EffectAttackBoost        EffectKind = "attack_boost"
	EffectDefenseBoost       EffectKind = "defense_boost"
	EffectWeakened           EffectKind = "weakened"
	EffectVulnerabilityMark  EffectKind = "vulnerability_mark"
	EffectPowerSiphon        EffectKind = "power_siphon"
	EffectBerserkerRage      EffectKind = "berserker_rage"
	EffectElementalWeakness  EffectKind = "elemental_weakness"
	EffectCounterStance      EffectKind = "counter_stance"
	EffectPerfectCounter     EffectKind = "perfect_counter"
	EffectOvercharge         EffectKind = "overcharge"
	EffectManaBurn           EffectKind = "mana_burn"
	EffectTemporalShift      EffectKind = "temporal_shift"
	EffectElementalResonance EffectKind = "elemental_resonance"
	EffectFireMastery        EffectKind = "fire_mastery"
)

var allEffectKinds = []EffectKind{
	EffectBurn,
	EffectPoison,
	EffectRegeneration,
	EffectAttackBoost,
	EffectDefenseBoost,
	EffectWeakened,
	EffectVulnerabilityMark,
	EffectPowerSiphon,
	EffectBerserkerRage,
	EffectElementalWeakness,
	EffectCounterStance,
	EffectPerfectCounter,
	EffectOvercharge,
	EffectManaBurn,
	EffectTemporalShift,
	EffectElementalResonance,
	EffectFireMastery,
}

// EffectKinds returns every effect kind in a stable order.
func EffectKinds() []EffectKind {
	out := make([]EffectKind, len(allEffectKinds))
	copy(out, allEffectKinds)
	return out
}

// ParseEffectKind converts an external key into an EffectKind.
func ParseEffectKind(s string) (EffectKind, error) {
	k := EffectKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allEffectKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("effect kind %q: %w", s, ErrUnknownKey)
}

// UnmarshalText rejects unknown effect keys at load time.
func (k *EffectKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEffectKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// StackPolicy controls how a repeated application of the same kind combines.
type StackPolicy string

const (
	// StackRefresh resets the remaining turns; magnitude is unchanged.
	StackRefresh StackPolicy = "refresh"
	// StackAdditive adds a stack up to a tier-scaled cap and refreshes duration.
	StackAdditive StackPolicy = "additive"
	// StackReplace overwrites the previous instance entirely.
	StackReplace StackPolicy = "replace"
)

// ParseStackPolicy converts an external key into a StackPolicy.
func ParseStackPolicy(s string) (StackPolicy, error) {
	p := StackPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case StackRefresh, StackAdditive, StackReplace:
		return p, nil
	}
	return "", fmt.Errorf("stack policy %q: %w", s, ErrUnknownKey)
}

// UnmarshalText rejects unknown policies at load time.
func (p *StackPolicy) UnmarshalText(b []byte) error {
	parsed, err := ParseStackPolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// StepDef is one breakpoint of a tier step function: from Tier upwards the
// function adds Value until the next breakpoint.
type StepDef struct {
	Tier  int     `json:"tier" yaml:"tier"`
	Value float64 `json:"value" yaml:"value"`
}

// ScaledDef is a tier-scaled number: Base plus the step function at the tier.
type ScaledDef struct {
	Base  float64   `json:"base" yaml:"base"`
	Steps []StepDef `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// EffectDef is one authored row of effects.json.
type EffectDef struct {
	Kind      EffectKind   `json:"kind" yaml:"kind"`
	Name      string       `json:"name" yaml:"name"`
	Policy    StackPolicy  `json:"policy" yaml:"policy"`
	Duration  ScaledDef    `json:"duration" yaml:"duration"`
	Magnitude ScaledDef    `json:"magnitude" yaml:"magnitude"`
	Secondary *ScaledDef   `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	StackCap  *ScaledDef   `json:"stackCap,omitempty" yaml:"stackCap,omitempty"`
	Grants    []EffectKind `json:"grantsImmunity,omitempty" yaml:"grantsImmunity,omitempty"`
	// UntilUsed effects do not count down; they last until consumed.
	UntilUsed bool `json:"untilUsed,omitempty" yaml:"untilUsed,omitempty"`
}

// EffectsFile represents the structure of effects.json.
type EffectsFile struct {
	Effects []EffectDef `json:"effects" yaml:"effects"`
}

// LoadEffects loads effect definitions from the embedded effects.json file.
func LoadEffects() (EffectsFile, error) {
	return Load[EffectsFile]("effects.json")
}
