// Package entity provides battle entities: combatants and teams.
package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samdwyer/espritarena/internal/effect"
	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/tier"
)

// ErrInvalidCombatant is returned for snapshots the engine cannot field.
var ErrInvalidCombatant = errors.New("invalid combatant")

// Snapshot is the external record of a combatant. Cooldowns and Effects are
// optional and allow a battle to resume from saved state.
type Snapshot struct {
	Identity  string                `json:"identity" yaml:"identity"`
	Element   gamedata.Element      `json:"element" yaml:"element"`
	Tier      int                   `json:"tier" yaml:"tier"`
	Attack    int                   `json:"attack" yaml:"attack"`
	Defense   int                   `json:"defense" yaml:"defense"`
	MaxHP     int                   `json:"maxHp" yaml:"max_hp"`
	HP        int                   `json:"hp,omitempty" yaml:"hp,omitempty"` // 0 means full
	Cooldowns map[gamedata.Slot]int `json:"cooldowns,omitempty" yaml:"cooldowns,omitempty"`
	Effects   []effect.ActiveEffect `json:"effects,omitempty" yaml:"-"`
}

// Combatant is one esprit taking part in a battle. It is mutated only by the
// session that owns it.
type Combatant struct {
	Identity string
	Element  gamedata.Element
	Tier     int

	// Combat stats
	HP, MaxHP int
	Attack    int
	Defense   int

	cooldowns [3]int
	effects   *effect.Set
}

// NewCombatant validates a snapshot and builds a combatant from it.
func NewCombatant(s Snapshot) (*Combatant, error) {
	id := strings.TrimSpace(s.Identity)
	if id == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidCombatant)
	}
	if !s.Element.Valid() {
		return nil, fmt.Errorf("%w: %s element %q", ErrInvalidCombatant, id, s.Element)
	}
	if err := tier.Valid(s.Tier); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCombatant, id, err)
	}
	if s.Attack < 0 || s.Defense < 0 || s.MaxHP <= 0 || s.HP < 0 || s.HP > s.MaxHP {
		return nil, fmt.Errorf("%w: %s stats atk=%d def=%d hp=%d/%d",
			ErrInvalidCombatant, id, s.Attack, s.Defense, s.HP, s.MaxHP)
	}

	if err := checkEffects(id, s.Effects); err != nil {
		return nil, err
	}

	c := &Combatant{
		Identity: id,
		Element:  s.Element,
		Tier:     s.Tier,
		HP:       s.HP,
		MaxHP:    s.MaxHP,
		Attack:   s.Attack,
		Defense:  s.Defense,
		effects:  effect.NewSet(s.Effects...),
	}
	if c.HP == 0 {
		c.HP = c.MaxHP
	}
	for slot, n := range s.Cooldowns {
		i := slot.Index()
		if i < 0 || n < 0 {
			return nil, fmt.Errorf("%w: %s cooldown %s=%d", ErrInvalidCombatant, id, slot, n)
		}
		c.cooldowns[i] = n
	}
	return c, nil
}

// checkEffects rejects resumed effects no session could have produced.
func checkEffects(id string, effects []effect.ActiveEffect) error {
	seen := make(map[gamedata.EffectKind]bool, len(effects))
	for _, e := range effects {
		if _, err := gamedata.ParseEffectKind(string(e.Kind)); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidCombatant, id, err)
		}
		if seen[e.Kind] {
			return fmt.Errorf("%w: %s effect %s listed twice", ErrInvalidCombatant, id, e.Kind)
		}
		seen[e.Kind] = true
		if e.RemainingTurns <= 0 || e.Stacks <= 0 || e.Magnitude < 0 || e.Secondary < 0 || e.Banked < 0 {
			return fmt.Errorf("%w: %s effect %s turns=%d stacks=%d",
				ErrInvalidCombatant, id, e.Kind, e.RemainingTurns, e.Stacks)
		}
		if err := tier.Valid(e.SourceTier); err != nil {
			return fmt.Errorf("%w: %s effect %s: %w", ErrInvalidCombatant, id, e.Kind, err)
		}
	}
	return nil
}

// Snapshot captures the current state for persistence or resumption.
func (c *Combatant) Snapshot() Snapshot {
	s := Snapshot{
		Identity: c.Identity,
		Element:  c.Element,
		Tier:     c.Tier,
		Attack:   c.Attack,
		Defense:  c.Defense,
		MaxHP:    c.MaxHP,
		HP:       c.HP,
		Effects:  c.effects.All(),
	}
	for _, slot := range gamedata.Slots() {
		if n := c.cooldowns[slot.Index()]; n > 0 {
			if s.Cooldowns == nil {
				s.Cooldowns = make(map[gamedata.Slot]int)
			}
			s.Cooldowns[slot] = n
		}
	}
	return s
}

// IsAlive returns true if the combatant has HP remaining.
func (c *Combatant) IsAlive() bool { return c.HP > 0 }

// GetHP returns current HP.
func (c *Combatant) GetHP() int { return c.HP }

// GetMaxHP returns maximum HP.
func (c *Combatant) GetMaxHP() int { return c.MaxHP }

// Effects returns the combatant's active effects.
func (c *Combatant) Effects() *effect.Set { return c.effects }

// TakeDamage reduces HP and returns actual damage taken. Effects are
// cleared on death.
func (c *Combatant) TakeDamage(amount int) int {
	if amount <= 0 || c.HP <= 0 {
		return 0
	}
	actual := min(amount, c.HP)
	c.HP -= actual
	if c.HP == 0 {
		c.effects.Clear()
	}
	return actual
}

// Heal restores HP and returns actual amount healed. The dead stay dead.
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 || c.HP <= 0 {
		return 0
	}
	actual := min(amount, c.MaxHP-c.HP)
	c.HP += actual
	return actual
}

// Cooldown returns the turns left before slot can be used again.
func (c *Combatant) Cooldown(slot gamedata.Slot) int {
	if i := slot.Index(); i >= 0 {
		return c.cooldowns[i]
	}
	return 0
}

// StartCooldown puts slot on cooldown for n turns.
func (c *Combatant) StartCooldown(slot gamedata.Slot, n int) {
	if i := slot.Index(); i >= 0 && n > 0 {
		c.cooldowns[i] = n
	}
}

// TickCooldowns decrements every slot's cooldown by one.
func (c *Combatant) TickCooldowns() {
	for i := range c.cooldowns {
		if c.cooldowns[i] > 0 {
			c.cooldowns[i]--
		}
	}
}

// Ensure Combatant can carry effects
var _ effect.Holder = (*Combatant)(nil)
