package game

import (
	"fmt"
	"log/slog"

	"github.com/samdwyer/espritarena/internal/ability"
	"github.com/samdwyer/espritarena/internal/combat"
	"github.com/samdwyer/espritarena/internal/effect"
	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/tier"
)

// DefaultMaxTurns bounds a session when the caller sets no limit.
const DefaultMaxTurns = 50

// Config holds per-session options.
type Config struct {
	// MaxTurns ends a session in a stalemate. 0 means DefaultMaxTurns.
	MaxTurns int
	// Logger receives turn and stage logs. nil means slog.Default().
	Logger *slog.Logger
	// TurnOrder picks the next actor. nil means Alternating.
	TurnOrder TurnOrder
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.TurnOrder == nil {
		c.TurnOrder = Alternating{}
	}
	return c
}

// Rules bundles the immutable tables every session consults. Built once and
// shared by reference across concurrent battles.
type Rules struct {
	Tiers   *tier.Table
	Catalog *ability.Catalog
	Effects *effect.Registry
	Calc    combat.Calculator
}

// NewRules validates tables and coefficients and builds the shared rules.
func NewRules(tables gamedata.Tables, calc combat.Calculator, opts ...ability.Option) (*Rules, error) {
	if err := calc.Validate(); err != nil {
		return nil, err
	}
	tiers, err := tier.New(tables.Tiers.Tiers)
	if err != nil {
		return nil, fmt.Errorf("tier table: %w", err)
	}
	catalog, err := ability.NewCatalog(tables.Abilities, tiers, opts...)
	if err != nil {
		return nil, fmt.Errorf("ability catalog: %w", err)
	}
	registry, err := effect.NewRegistry(tables.Effects)
	if err != nil {
		return nil, fmt.Errorf("effect registry: %w", err)
	}
	return &Rules{Tiers: tiers, Catalog: catalog, Effects: registry, Calc: calc}, nil
}

// DefaultRules builds rules from the embedded tables and default coefficients.
func DefaultRules() (*Rules, error) {
	tables, err := gamedata.EmbeddedTables()
	if err != nil {
		return nil, err
	}
	return NewRules(tables, combat.Default())
}
