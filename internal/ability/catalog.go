// Package ability resolves which ability definition applies to an esprit:
// universal element abilities for tiers 1-5, named custom abilities from tier
// 6 upwards.
package ability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/tier"
)

var (
	// ErrUnknownElement is returned when no universal abilities exist for an element.
	ErrUnknownElement = errors.New("unknown element")
	// ErrNoAbilityForSlot is returned when nothing is authored for a slot after fallback.
	ErrNoAbilityForSlot = errors.New("no ability for slot")
	// ErrDuplicateAbilityDefinition is returned when a table authors the same
	// element bracket or identity twice.
	ErrDuplicateAbilityDefinition = errors.New("duplicate ability definition")
	// ErrInvalidDefinition is returned for authored values the engine cannot use.
	ErrInvalidDefinition = errors.New("invalid ability definition")
)

// Source records where a resolved definition came from.
type Source string

const (
	SourceUniversal    Source = "universal"
	SourceInterpolated Source = "interpolated"
	SourceCustom       Source = "custom"
)

// Definition is a resolved, fully scaled ability.
type Definition struct {
	Name        string
	Description string
	Slot        gamedata.Slot
	Type        gamedata.AbilityType
	Power       int
	Cooldown    int
	Effects     []gamedata.EffectKind
	Source      Source
}

// IsOffensive returns true if the ability deals direct damage.
func (d Definition) IsOffensive() bool {
	return d.Type.IsOffensive()
}

// Describe expands the {power} placeholder of the description template.
func (d Definition) Describe() string {
	return strings.ReplaceAll(d.Description, "{power}", strconv.Itoa(d.Power))
}

type slotKey struct {
	element gamedata.Element
	slot    gamedata.Slot
}

type bracketEntry struct {
	def    gamedata.AbilityDef
	source Source
	ok     bool
}

type customSet struct {
	element   gamedata.Element
	abilities gamedata.AbilitySetDef
}

// Catalog is an immutable ability lookup built once at startup and shared by
// every session.
type Catalog struct {
	scaling   *tier.Table
	elements  map[gamedata.Element]bool
	universal map[slotKey][gamedata.UniversalMaxTier]bracketEntry
	custom    map[string]customSet
}

// Option configures a Catalog.
type Option func(*options)

type options struct {
	interpolator Interpolator
}

// WithInterpolator swaps the strategy used to fill unauthored brackets.
func WithInterpolator(i Interpolator) Option {
	return func(o *options) {
		if i != nil {
			o.interpolator = i
		}
	}
}

// NewCatalog validates the authored tables and precomputes every universal
// bracket. scaling supplies power for abilities that omit it.
func NewCatalog(file gamedata.AbilitiesFile, scaling *tier.Table, opts ...Option) (*Catalog, error) {
	if scaling == nil {
		return nil, fmt.Errorf("%w: nil scaling table", ErrInvalidDefinition)
	}
	o := options{interpolator: Linear{}}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Catalog{
		scaling:   scaling,
		elements:  make(map[gamedata.Element]bool),
		universal: make(map[slotKey][gamedata.UniversalMaxTier]bracketEntry),
		custom:    make(map[string]customSet),
	}

	authored := make(map[slotKey]map[int]gamedata.AbilityDef)
	seenBracket := make(map[gamedata.Element]map[int]bool)

	for _, u := range file.Universal {
		if !u.Element.Valid() {
			return nil, fmt.Errorf("%w: universal element %q", ErrInvalidDefinition, u.Element)
		}
		if u.Tier < gamedata.MinTier || u.Tier > gamedata.UniversalMaxTier {
			return nil, fmt.Errorf("%w: universal %s tier %d outside 1-%d",
				ErrInvalidDefinition, u.Element, u.Tier, gamedata.UniversalMaxTier)
		}
		if seenBracket[u.Element] == nil {
			seenBracket[u.Element] = make(map[int]bool)
		}
		if seenBracket[u.Element][u.Tier] {
			return nil, fmt.Errorf("%w: universal %s tier %d", ErrDuplicateAbilityDefinition, u.Element, u.Tier)
		}
		seenBracket[u.Element][u.Tier] = true
		c.elements[u.Element] = true

		for _, slot := range gamedata.Slots() {
			def := u.Abilities.For(slot)
			if def == nil {
				continue
			}
			if err := validateDef(*def); err != nil {
				return nil, fmt.Errorf("universal %s tier %d %s: %w", u.Element, u.Tier, slot, err)
			}
			key := slotKey{element: u.Element, slot: slot}
			if authored[key] == nil {
				authored[key] = make(map[int]gamedata.AbilityDef)
			}
			authored[key][u.Tier] = *def
		}
	}

	for key, byTier := range authored {
		c.universal[key] = fillBrackets(byTier, o.interpolator)
	}

	for _, cd := range file.Custom {
		id := strings.TrimSpace(cd.Identity)
		if id == "" {
			return nil, fmt.Errorf("%w: custom entry without identity", ErrInvalidDefinition)
		}
		if _, dup := c.custom[id]; dup {
			return nil, fmt.Errorf("%w: custom identity %q", ErrDuplicateAbilityDefinition, id)
		}
		for _, slot := range gamedata.Slots() {
			if def := cd.Abilities.For(slot); def != nil {
				if err := validateDef(*def); err != nil {
					return nil, fmt.Errorf("custom %q %s: %w", id, slot, err)
				}
			}
		}
		c.custom[id] = customSet{element: cd.Element, abilities: cd.Abilities}
	}

	return c, nil
}

func validateDef(d gamedata.AbilityDef) error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if d.Type == "" {
		return fmt.Errorf("%w: %q has no type", ErrInvalidDefinition, d.Name)
	}
	if d.Power != nil && *d.Power < 0 {
		return fmt.Errorf("%w: negative power %d", ErrInvalidDefinition, *d.Power)
	}
	if d.Cooldown < 0 {
		return fmt.Errorf("%w: negative cooldown %d", ErrInvalidDefinition, d.Cooldown)
	}
	return nil
}

// fillBrackets places authored entries and interpolates the gaps.
func fillBrackets(byTier map[int]gamedata.AbilityDef, interp Interpolator) [gamedata.UniversalMaxTier]bracketEntry {
	var out [gamedata.UniversalMaxTier]bracketEntry

	for b := gamedata.MinTier; b <= gamedata.UniversalMaxTier; b++ {
		if def, ok := byTier[b]; ok {
			out[b-1] = bracketEntry{def: cloneDef(def), source: SourceUniversal, ok: true}
			continue
		}

		var lower, upper *Authored
		for t := b - 1; t >= gamedata.MinTier; t-- {
			if def, ok := byTier[t]; ok {
				lower = &Authored{Tier: t, Def: def}
				break
			}
		}
		for t := b + 1; t <= gamedata.UniversalMaxTier; t++ {
			if def, ok := byTier[t]; ok {
				upper = &Authored{Tier: t, Def: def}
				break
			}
		}
		if lower == nil && upper == nil {
			continue
		}
		out[b-1] = bracketEntry{def: interp.Interpolate(b, lower, upper), source: SourceInterpolated, ok: true}
	}
	return out
}

// Resolve returns the ability that applies to an esprit in slot. A custom
// definition for identity wins from tier 6 upwards; otherwise the universal
// entry for the element at bracket min(tier, 5) is used.
func (c *Catalog) Resolve(identity string, element gamedata.Element, tierN int, slot gamedata.Slot) (Definition, error) {
	if err := tier.Valid(tierN); err != nil {
		return Definition{}, err
	}
	if slot.Index() < 0 {
		return Definition{}, fmt.Errorf("%w: slot %q", ErrNoAbilityForSlot, slot)
	}

	if tierN >= gamedata.CustomMinTier {
		if cs, ok := c.custom[identity]; ok {
			if def := cs.abilities.For(slot); def != nil {
				return c.build(*def, slot, tierN, SourceCustom)
			}
		}
	}

	if !c.elements[element] {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownElement, element)
	}

	bracket := min(tierN, gamedata.UniversalMaxTier)
	entry := c.universal[slotKey{element: element, slot: slot}][bracket-1]
	if !entry.ok {
		return Definition{}, fmt.Errorf("%w: %s %s tier %d", ErrNoAbilityForSlot, element, slot, tierN)
	}
	return c.build(entry.def, slot, tierN, entry.source)
}

// Loadout resolves every slot for an esprit, skipping slots with nothing
// authored. Any other error aborts.
func (c *Catalog) Loadout(identity string, element gamedata.Element, tierN int) (map[gamedata.Slot]Definition, error) {
	out := make(map[gamedata.Slot]Definition, 3)
	for _, slot := range gamedata.Slots() {
		def, err := c.Resolve(identity, element, tierN, slot)
		if errors.Is(err, ErrNoAbilityForSlot) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[slot] = def
	}
	return out, nil
}

// HasCustom reports whether identity has a custom ability set.
func (c *Catalog) HasCustom(identity string) bool {
	_, ok := c.custom[identity]
	return ok
}

func (c *Catalog) build(def gamedata.AbilityDef, slot gamedata.Slot, tierN int, source Source) (Definition, error) {
	power := 0
	if def.Power != nil {
		power = *def.Power
	} else {
		p, err := c.scaling.ScalingFor(tierN, slot)
		if err != nil {
			return Definition{}, err
		}
		power = p
	}

	return Definition{
		Name:        def.Name,
		Description: def.Description,
		Slot:        slot,
		Type:        def.Type,
		Power:       power,
		Cooldown:    def.Cooldown,
		Effects:     append([]gamedata.EffectKind(nil), def.Effects...),
		Source:      source,
	}, nil
}
