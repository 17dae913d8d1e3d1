// Package tier provides the tier scaling table: the base power of each ability
// slot for tiers 1 through 12.
package tier

import (
	"errors"
	"fmt"

	"github.com/samdwyer/espritarena/internal/gamedata"
)

var (
	// ErrInvalidTier is returned when a tier falls outside 1-12.
	ErrInvalidTier = errors.New("invalid tier")
	// ErrMalformedScalingTable is returned when the table is incomplete,
	// duplicated or not monotonically non-decreasing.
	ErrMalformedScalingTable = errors.New("malformed scaling table")
)

// Power is the base power of each slot at one tier.
type Power struct {
	Basic    int
	Ultimate int
	Passive  int
}

// For returns the power for slot.
func (p Power) For(slot gamedata.Slot) (int, bool) {
	switch slot {
	case gamedata.SlotBasic:
		return p.Basic, true
	case gamedata.SlotUltimate:
		return p.Ultimate, true
	case gamedata.SlotPassive:
		return p.Passive, true
	default:
		return 0, false
	}
}

// Table is an immutable tier -> power lookup. The zero value is not usable;
// build one with New.
type Table struct {
	rows [gamedata.MaxTier]Power
}

// New validates the authored rows and builds a Table. Every tier from 1 to 12
// must appear exactly once and each slot must be non-decreasing in tier.
func New(rows []gamedata.TierScalingDef) (*Table, error) {
	t := &Table{}
	seen := [gamedata.MaxTier]bool{}

	for _, row := range rows {
		if Valid(row.Tier) != nil {
			return nil, fmt.Errorf("%w: tier %d out of range", ErrMalformedScalingTable, row.Tier)
		}
		if seen[row.Tier-1] {
			return nil, fmt.Errorf("%w: tier %d listed twice", ErrMalformedScalingTable, row.Tier)
		}
		if row.Basic < 0 || row.Ultimate < 0 || row.Passive < 0 {
			return nil, fmt.Errorf("%w: tier %d has negative power", ErrMalformedScalingTable, row.Tier)
		}
		seen[row.Tier-1] = true
		t.rows[row.Tier-1] = Power{Basic: row.Basic, Ultimate: row.Ultimate, Passive: row.Passive}
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: tier %d missing", ErrMalformedScalingTable, i+1)
		}
	}

	for i := 1; i < len(t.rows); i++ {
		prev, cur := t.rows[i-1], t.rows[i]
		if cur.Basic < prev.Basic || cur.Ultimate < prev.Ultimate || cur.Passive < prev.Passive {
			return nil, fmt.Errorf("%w: tier %d power drops below tier %d", ErrMalformedScalingTable, i+1, i)
		}
	}

	return t, nil
}

// Load builds a Table from the embedded tiers.json.
func Load() (*Table, error) {
	file, err := gamedata.LoadTiers()
	if err != nil {
		return nil, err
	}
	return New(file.Tiers)
}

// MustLoad builds the embedded Table, panicking on error.
func MustLoad() *Table {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Valid returns ErrInvalidTier when tier is outside 1-12.
func Valid(tier int) error {
	if tier < gamedata.MinTier || tier > gamedata.MaxTier {
		return fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	return nil
}

// ScalingFor returns the base power of slot at tier.
func (t *Table) ScalingFor(tier int, slot gamedata.Slot) (int, error) {
	if err := Valid(tier); err != nil {
		return 0, err
	}
	p, ok := t.rows[tier-1].For(slot)
	if !ok {
		return 0, fmt.Errorf("scaling for slot %q: %w", slot, gamedata.ErrUnknownKey)
	}
	return p, nil
}

// Row returns every slot's power at tier.
func (t *Table) Row(tier int) (Power, error) {
	if err := Valid(tier); err != nil {
		return Power{}, err
	}
	return t.rows[tier-1], nil
}
