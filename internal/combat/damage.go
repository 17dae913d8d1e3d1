// Package combat computes damage and healing amounts for a single hit.
package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/samdwyer/espritarena/internal/effect"
	"github.com/samdwyer/espritarena/internal/gamedata"
)

// ErrNegativeInput is returned when attack, defense or power is negative.
var ErrNegativeInput = errors.New("negative combat input")

// Profile is one side of a hit: raw stats plus folded effect modifiers.
type Profile struct {
	Attack  int
	Defense int
	Element gamedata.Element
	Mods    effect.Modifiers
}

// Calculator holds the tunable damage coefficients. The zero value is not
// useful; start from Default.
type Calculator struct {
	DefenseCoeff   float64
	Advantage      float64
	CounterPenalty float64
}

// Default returns the standard coefficients.
func Default() Calculator {
	return Calculator{
		DefenseCoeff:   0.5,
		Advantage:      1.0,
		CounterPenalty: 0.75,
	}
}

// Validate rejects negative coefficients.
func (c Calculator) Validate() error {
	if c.DefenseCoeff < 0 || c.Advantage < 0 || c.CounterPenalty < 0 {
		return fmt.Errorf("%w: coefficients %+v", ErrNegativeInput, c)
	}
	return nil
}

// Breakdown records each multiplier of a hit in application order.
type Breakdown struct {
	Base       int     `json:"base"`
	Element    float64 `json:"element"`
	Attacker   float64 `json:"attacker"`
	Defender   float64 `json:"defender"`
	Resistance float64 `json:"resistance"`
	Amount     int     `json:"amount"`

	// UsedOvercharge and UsedWeakness mark one-shot effects the caller must consume.
	UsedOvercharge bool `json:"usedOvercharge,omitempty"`
	UsedWeakness   bool `json:"usedWeakness,omitempty"`
}

// ElementMultiplier returns the element modifier for attacker hitting defender.
func (c Calculator) ElementMultiplier(attacker, defender gamedata.Element) float64 {
	switch {
	case attacker.Beats(defender):
		return c.Advantage
	case defender.Beats(attacker):
		return c.CounterPenalty
	default:
		return 1
	}
}

// Damage computes one hit:
//
//	base       = max(1, round(atk*power/100 - def*DefenseCoeff))
//	amount     = base * element * attacker buffs * defender vulnerability * resistance
//
// True damage drops the defense term and resistances but keeps vulnerability.
// Non-offensive ability types deal nothing.
func (c Calculator) Damage(attacker, defender Profile, power int, kind gamedata.AbilityType) (Breakdown, error) {
	if attacker.Attack < 0 || defender.Defense < 0 || power < 0 {
		return Breakdown{}, fmt.Errorf("%w: attack=%d defense=%d power=%d",
			ErrNegativeInput, attacker.Attack, defender.Defense, power)
	}
	if !kind.IsOffensive() {
		return Breakdown{}, nil
	}

	raw := float64(attacker.Attack) * float64(power) / 100
	if !kind.BypassesDefense() {
		raw -= float64(defender.Defense) * c.DefenseCoeff
	}

	b := Breakdown{
		Base:       max(1, int(math.Round(raw))),
		Element:    c.ElementMultiplier(attacker.Element, defender.Element),
		Attacker:   attacker.Mods.Attack,
		Defender:   1 + defender.Mods.Vulnerability,
		Resistance: 1,
	}
	if attacker.Mods.Overcharge > 0 {
		b.Attacker *= attacker.Mods.Overcharge
		b.UsedOvercharge = true
	}
	if defender.Mods.Weakness > 0 && attacker.Element == defender.Element.Opposing() {
		b.Defender *= defender.Mods.Weakness
		b.UsedWeakness = true
	}
	if !kind.BypassesDefense() {
		b.Resistance = 1 - defender.Mods.Resistance
	}

	amount := float64(b.Base) * b.Element * b.Attacker * b.Defender * b.Resistance
	b.Amount = max(1, int(math.Round(amount)))
	return b, nil
}

// Healing returns attack*power/100, rounded.
func (c Calculator) Healing(healer Profile, power int) (int, error) {
	if healer.Attack < 0 || power < 0 {
		return 0, fmt.Errorf("%w: attack=%d power=%d", ErrNegativeInput, healer.Attack, power)
	}
	return int(math.Round(float64(healer.Attack) * float64(power) / 100)), nil
}

// Reflect returns the part of amount sent back by a counter fraction.
func Reflect(amount int, fraction float64) int {
	if amount <= 0 || fraction <= 0 {
		return 0
	}
	return max(1, int(math.Round(float64(amount)*fraction)))
}
