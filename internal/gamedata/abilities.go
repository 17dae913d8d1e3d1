package gamedata

import (
	"fmt"
	"strings"
)

// =============================================================================
// ABILITY TABLE DESIGN
// =============================================================================
//
// Overview:
// ---------
// Every esprit carries up to three abilities, one per slot. The ability that
// applies to a given esprit is sourced from one of two tables:
//
// 1. Universal - shared by every esprit of an element within a tier bracket
//    (1-5). Brackets that are not authored for an element are filled in by
//    the catalog (see internal/ability).
// 2. Custom - bound to one named esprit identity, used from tier 6 upwards.
//
// Slots:
// ------
//    - basic: always available, usually no cooldown
//    - ultimate: strong attack gated by a cooldown
//    - passive: applied to the owner when a stage starts, never used as an action
//
// Ability types:
// --------------
//    - damage: single target, reduced by defense
//    - aoe_damage: every living opponent, reduced by defense
//    - true_damage: single target, ignores defense and resistances
//    - heal: restores attack*power/100 HP to the weakest ally
//    - buff / debuff / utility: only carries effects
//
// JSON Schema:
// ------------
// {
//   "universal": [
//     {"element": "inferno", "tier": 1, "abilities": {
//        "basic":    {"name": "Ember Strike", "description": "Deal {power}% ATK",
//                     "type": "damage", "power": 100, "cooldown": 0,
//                     "effects": ["burn"]},
//        "ultimate": {...}, "passive": {...}}}
//   ],
//   "custom": [
//     {"identity": "Ignivar", "element": "inferno", "abilities": {...}}
//   ]
// }
//
// An ability that omits "power" takes it from the tier scaling table for the
// esprit's actual tier.

// Slot identifies one of an esprit's three ability slots.
type Slot string

const (
	SlotBasic    Slot = "basic"
	SlotUltimate Slot = "ultimate"
	SlotPassive  Slot = "passive"
)

// Slots returns the slots in their canonical order.
func Slots() []Slot {
	return []Slot{SlotBasic, SlotUltimate, SlotPassive}
}

// Index returns the slot's position in Slots, or -1 for an unknown slot.
func (s Slot) Index() int {
	switch s {
	case SlotBasic:
		return 0
	case SlotUltimate:
		return 1
	case SlotPassive:
		return 2
	default:
		return -1
	}
}

// ParseSlot converts an external key into a Slot.
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	if slot.Index() < 0 {
		return "", fmt.Errorf("slot %q: %w", s, ErrUnknownKey)
	}
	return slot, nil
}

// UnmarshalText rejects unknown slot keys at load time.
func (s *Slot) UnmarshalText(b []byte) error {
	parsed, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AbilityType tags how an ability is resolved.
type AbilityType string

const (
	AbilityDamage     AbilityType = "damage"
	AbilityAoEDamage  AbilityType = "aoe_damage"
	AbilityTrueDamage AbilityType = "true_damage"
	AbilityHeal       AbilityType = "heal"
	AbilityBuff       AbilityType = "buff"
	AbilityDebuff     AbilityType = "debuff"
	AbilityUtility    AbilityType = "utility"
)

var abilityTypes = map[AbilityType]bool{
	AbilityDamage:     true,
	AbilityAoEDamage:  true,
	AbilityTrueDamage: true,
	AbilityHeal:       true,
	AbilityBuff:       true,
	AbilityDebuff:     true,
	AbilityUtility:    true,
}

// ParseAbilityType converts an external key into an AbilityType.
func ParseAbilityType(s string) (AbilityType, error) {
	t := AbilityType(strings.ToLower(strings.TrimSpace(s)))
	if !abilityTypes[t] {
		return "", fmt.Errorf("ability type %q: %w", s, ErrUnknownKey)
	}
	return t, nil
}

// UnmarshalText rejects unknown ability types at load time.
func (t *AbilityType) UnmarshalText(b []byte) error {
	parsed, err := ParseAbilityType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsOffensive returns true if the ability deals direct damage.
func (t AbilityType) IsOffensive() bool {
	return t == AbilityDamage || t == AbilityAoEDamage || t == AbilityTrueDamage
}

// BypassesDefense returns true for true-damage abilities.
func (t AbilityType) BypassesDefense() bool {
	return t == AbilityTrueDamage
}

// HitsAll returns true if the ability strikes every living opponent.
func (t AbilityType) HitsAll() bool {
	return t == AbilityAoEDamage
}

// AbilityDef is one authored ability record.
type AbilityDef struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Type        AbilityType  `json:"type" yaml:"type"`
	Power       *int         `json:"power,omitempty" yaml:"power,omitempty"` // nil: use tier scaling
	Cooldown    int          `json:"cooldown" yaml:"cooldown"`
	Effects     []EffectKind `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// AbilitySetDef groups the abilities authored for one esprit or bracket.
type AbilitySetDef struct {
	Basic    *AbilityDef `json:"basic,omitempty" yaml:"basic,omitempty"`
	Ultimate *AbilityDef `json:"ultimate,omitempty" yaml:"ultimate,omitempty"`
	Passive  *AbilityDef `json:"passive,omitempty" yaml:"passive,omitempty"`
}

// For returns the ability authored for slot, or nil.
func (s AbilitySetDef) For(slot Slot) *AbilityDef {
	switch slot {
	case SlotBasic:
		return s.Basic
	case SlotUltimate:
		return s.Ultimate
	case SlotPassive:
		return s.Passive
	default:
		return nil
	}
}

// UniversalDef is an element's ability set for one tier bracket.
type UniversalDef struct {
	Element   Element       `json:"element" yaml:"element"`
	Tier      int           `json:"tier" yaml:"tier"`
	Abilities AbilitySetDef `json:"abilities" yaml:"abilities"`
}

// CustomDef is the ability set bound to a single named esprit.
type CustomDef struct {
	Identity  string        `json:"identity" yaml:"identity"`
	Element   Element       `json:"element" yaml:"element"`
	Abilities AbilitySetDef `json:"abilities" yaml:"abilities"`
}

// AbilitiesFile represents the structure of abilities.json.
type AbilitiesFile struct {
	Universal []UniversalDef `json:"universal" yaml:"universal"`
	Custom    []CustomDef    `json:"custom" yaml:"custom"`
}

// LoadAbilities loads ability definitions from the embedded abilities.json file.
func LoadAbilities() (AbilitiesFile, error) {
	return Load[AbilitiesFile]("abilities.json")
}
