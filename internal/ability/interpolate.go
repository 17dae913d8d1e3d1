package ability

import (
	"math"

	"github.com/samdwyer/espritarena/internal/gamedata"
)

// Authored is a universal ability authored for one tier bracket.
type Authored struct {
	Tier int
	Def  gamedata.AbilityDef
}

// Interpolator fills a universal bracket that has no authored entry from the
// nearest authored brackets below and above it. Either neighbour may be nil,
// never both.
type Interpolator interface {
	Interpolate(tier int, lower, upper *Authored) gamedata.AbilityDef
}

// InterpolatorFunc adapts a function to the Interpolator interface.
type InterpolatorFunc func(tier int, lower, upper *Authored) gamedata.AbilityDef

// Interpolate calls f.
func (f InterpolatorFunc) Interpolate(tier int, lower, upper *Authored) gamedata.AbilityDef {
	return f(tier, lower, upper)
}

// Linear interpolates power linearly between the two neighbours and takes
// every other field, effects included, from the nearest lower bracket. When
// only one neighbour exists it is copied. When either neighbour leaves power
// to the tier table, so does the result.
type Linear struct{}

// Interpolate implements Interpolator.
func (Linear) Interpolate(tier int, lower, upper *Authored) gamedata.AbilityDef {
	switch {
	case lower == nil:
		return cloneDef(upper.Def)
	case upper == nil:
		return cloneDef(lower.Def)
	}

	out := cloneDef(lower.Def)
	if lower.Def.Power == nil || upper.Def.Power == nil {
		out.Power = nil
		return out
	}

	lo, hi := float64(*lower.Def.Power), float64(*upper.Def.Power)
	frac := float64(tier-lower.Tier) / float64(upper.Tier-lower.Tier)
	p := int(math.Round(lo + (hi-lo)*frac))
	out.Power = &p
	return out
}

// NearestLower copies the nearest lower bracket, falling back to the nearest
// upper one. It never blends power.
type NearestLower struct{}

// Interpolate implements Interpolator.
func (NearestLower) Interpolate(_ int, lower, upper *Authored) gamedata.AbilityDef {
	if lower != nil {
		return cloneDef(lower.Def)
	}
	return cloneDef(upper.Def)
}

func cloneDef(d gamedata.AbilityDef) gamedata.AbilityDef {
	out := d
	if d.Power != nil {
		p := *d.Power
		out.Power = &p
	}
	out.Effects = append([]gamedata.EffectKind(nil), d.Effects...)
	return out
}
