package gamedata

import (
	"fmt"
	"io/fs"
)

// MinTier and MaxTier bound the tier range.
const (
	MinTier = 1
	MaxTier = 12
)

// CustomMinTier is the lowest tier that may use a custom ability set.
const CustomMinTier = 6

// UniversalMaxTier is the highest authored universal bracket.
const UniversalMaxTier = 5

var tierNames = [...]string{
	"Common", "Uncommon", "Rare", "Epic", "Mythic", "Divine",
	"Legendary", "Ethereal", "Genesis", "Empyrean", "Void", "Singularity",
}

// TierName returns the display name of a tier, or "Unknown".
func TierName(tier int) string {
	if tier < MinTier || tier > MaxTier {
		return "Unknown"
	}
	return tierNames[tier-1]
}

// TierScalingDef is the per-slot base power authored for one tier.
type TierScalingDef struct {
	Tier     int `json:"tier" yaml:"tier"`
	Basic    int `json:"basic" yaml:"basic"`
	Ultimate int `json:"ultimate" yaml:"ultimate"`
	Passive  int `json:"passive" yaml:"passive"`
}

// TiersFile represents the structure of tiers.json.
type TiersFile struct {
	Tiers []TierScalingDef `json:"tiers" yaml:"tiers"`
}

// LoadTiers loads the tier scaling table from the embedded tiers.json file.
func LoadTiers() (TiersFile, error) {
	return Load[TiersFile]("tiers.json")
}

// Tables bundles every definition table the engine consumes.
type Tables struct {
	Tiers     TiersFile
	Abilities AbilitiesFile
	Effects   EffectsFile
}

// LoadTables reads tiers, abilities and effects from dir inside fsys. Each
// table may be authored as .json, .yaml or .yml.
func LoadTables(fsys fs.FS, dir string) (Tables, error) {
	var t Tables
	var err error

	if t.Tiers, err = loadNamed[TiersFile](fsys, dir, "tiers"); err != nil {
		return Tables{}, fmt.Errorf("loading tiers: %w", err)
	}
	if t.Abilities, err = loadNamed[AbilitiesFile](fsys, dir, "abilities"); err != nil {
		return Tables{}, fmt.Errorf("loading abilities: %w", err)
	}
	if t.Effects, err = loadNamed[EffectsFile](fsys, dir, "effects"); err != nil {
		return Tables{}, fmt.Errorf("loading effects: %w", err)
	}
	return t, nil
}

// EmbeddedTables loads the tables compiled into the binary.
func EmbeddedTables() (Tables, error) {
	return LoadTables(dataFS, ".")
}

// MustLoadEmbeddedTables loads the embedded tables, panicking on error.
func MustLoadEmbeddedTables() Tables {
	t, err := EmbeddedTables()
	if err != nil {
		panic(err)
	}
	return t
}
