package entity

import (
	"errors"
	"testing"

	"github.com/samdwyer/espritarena/internal/effect"
	"github.com/samdwyer/espritarena/internal/gamedata"
)

func snap(id string, element gamedata.Element) Snapshot {
	return Snapshot{Identity: id, Element: element, Tier: 3, Attack: 100, Defense: 40, MaxHP: 500}
}

func mustCombatant(t *testing.T, s Snapshot) *Combatant {
	t.Helper()
	c, err := NewCombatant(s)
	if err != nil {
		t.Fatalf("NewCombatant(%q) error = %v", s.Identity, err)
	}
	return c
}

func TestNewCombatantDefaultsToFullHP(t *testing.T) {
	c := mustCombatant(t, snap("Pip", gamedata.ElementInferno))

	if c.HP != 500 {
		t.Errorf("Expected full HP 500, got %d", c.HP)
	}
	if !c.IsAlive() {
		t.Error("New combatant should be alive")
	}
	if c.Effects().Len() != 0 {
		t.Errorf("Expected no effects, got %d", c.Effects().Len())
	}
}

func TestNewCombatantRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"blank identity", func(s *Snapshot) { s.Identity = "  " }},
		{"unknown element", func(s *Snapshot) { s.Element = "fire" }},
		{"tier zero", func(s *Snapshot) { s.Tier = 0 }},
		{"negative attack", func(s *Snapshot) { s.Attack = -1 }},
		{"no max hp", func(s *Snapshot) { s.MaxHP = 0 }},
		{"hp above max", func(s *Snapshot) { s.HP = 501 }},
		{"negative cooldown", func(s *Snapshot) { s.Cooldowns = map[gamedata.Slot]int{gamedata.SlotUltimate: -1} }},
		{"unknown effect", func(s *Snapshot) {
			s.Effects = []effect.ActiveEffect{{Kind: "frozen", RemainingTurns: 2, Stacks: 1, SourceTier: 1}}
		}},
		{"expired effect", func(s *Snapshot) {
			s.Effects = []effect.ActiveEffect{{Kind: gamedata.EffectBurn, RemainingTurns: 0, Stacks: 1, SourceTier: 1}}
		}},
		{"effect without stacks", func(s *Snapshot) {
			s.Effects = []effect.ActiveEffect{{Kind: gamedata.EffectBurn, RemainingTurns: 2, Stacks: 0, SourceTier: 1}}
		}},
		{"effect from tier 13", func(s *Snapshot) {
			s.Effects = []effect.ActiveEffect{{Kind: gamedata.EffectBurn, RemainingTurns: 2, Stacks: 1, SourceTier: 13}}
		}},
		{"duplicate effect", func(s *Snapshot) {
			e := effect.ActiveEffect{Kind: gamedata.EffectBurn, RemainingTurns: 2, Stacks: 1, SourceTier: 1}
			s.Effects = []effect.ActiveEffect{e, e}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snap("Pip", gamedata.ElementInferno)
			tt.mutate(&s)
			if _, err := NewCombatant(s); !errors.Is(err, ErrInvalidCombatant) {
				t.Errorf("NewCombatant() error = %v, want ErrInvalidCombatant", err)
			}
		})
	}
}

func TestTakeDamageAndHeal(t *testing.T) {
	c := mustCombatant(t, snap("Pip", gamedata.ElementInferno))

	if got := c.TakeDamage(120); got != 120 {
		t.Errorf("Expected 120 damage taken, got %d", got)
	}
	if got := c.Heal(500); got != 120 {
		t.Errorf("Expected heal capped at 120, got %d", got)
	}

	c.TakeDamage(10)
	if got := c.TakeDamage(10_000); got != 490 {
		t.Errorf("Expected overkill capped at 490, got %d", got)
	}
	if c.IsAlive() {
		t.Error("Combatant should be dead")
	}
	if got := c.Heal(50); got != 0 {
		t.Errorf("Dead combatant should not heal, got %d", got)
	}
}

func TestDeathClearsEffects(t *testing.T) {
	s := snap("Pip", gamedata.ElementInferno)
	s.Effects = []effect.ActiveEffect{{Kind: gamedata.EffectBurn, RemainingTurns: 2, Stacks: 1, SourceTier: 1}}
	c := mustCombatant(t, s)

	c.TakeDamage(c.MaxHP)
	if c.Effects().Len() != 0 {
		t.Errorf("Expected effects cleared on death, got %d", c.Effects().Len())
	}
}

func TestCooldowns(t *testing.T) {
	c := mustCombatant(t, snap("Pip", gamedata.ElementInferno))

	c.StartCooldown(gamedata.SlotUltimate, 2)
	if c.Cooldown(gamedata.SlotUltimate) != 2 {
		t.Fatalf("Expected cooldown 2, got %d", c.Cooldown(gamedata.SlotUltimate))
	}
	c.TickCooldowns()
	c.TickCooldowns()
	c.TickCooldowns()
	if c.Cooldown(gamedata.SlotUltimate) != 0 {
		t.Errorf("Expected cooldown 0, got %d", c.Cooldown(gamedata.SlotUltimate))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := snap("Pip", gamedata.ElementVerdant)
	s.HP = 321
	s.Cooldowns = map[gamedata.Slot]int{gamedata.SlotUltimate: 2}
	s.Effects = []effect.ActiveEffect{{Kind: gamedata.EffectRegeneration, RemainingTurns: 2, Stacks: 1, SourceTier: 3, Magnitude: 0.05}}

	c := mustCombatant(t, s)
	got := c.Snapshot()

	if got.HP != 321 || got.Cooldowns[gamedata.SlotUltimate] != 2 {
		t.Errorf("Snapshot lost state: %+v", got)
	}
	if len(got.Effects) != 1 || got.Effects[0].Kind != gamedata.EffectRegeneration {
		t.Errorf("Snapshot lost effects: %+v", got.Effects)
	}

	// mutating the snapshot must not touch the combatant
	got.Effects[0].RemainingTurns = 99
	if e, _ := c.Effects().Get(gamedata.EffectRegeneration); e.RemainingTurns != 2 {
		t.Errorf("Snapshot shares effect storage with combatant")
	}
}

func TestNewTeamValidation(t *testing.T) {
	a := mustCombatant(t, snap("A", gamedata.ElementInferno))
	b := mustCombatant(t, snap("B", gamedata.ElementInferno))
	c := mustCombatant(t, snap("C", gamedata.ElementInferno))
	d := mustCombatant(t, snap("D", gamedata.ElementInferno))
	dupA := mustCombatant(t, snap("A", gamedata.ElementTempest))

	tests := []struct {
		name    string
		members []*Combatant
		want    error
	}{
		{"empty", nil, ErrEmptyTeam},
		{"too large", []*Combatant{a, b, c, d}, ErrTeamTooLarge},
		{"duplicate", []*Combatant{a, b, dupA}, ErrDuplicateIdentity},
		{"valid", []*Combatant{a, b, c}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTeam("red", tt.members...)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewTeam() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTeamQueries(t *testing.T) {
	team, err := TeamFromSnapshots("blue", []Snapshot{
		snap("Lead", gamedata.ElementAbyssal),
		snap("Second", gamedata.ElementAbyssal),
		snap("Third", gamedata.ElementRadiant),
	})
	if err != nil {
		t.Fatalf("TeamFromSnapshots() error = %v", err)
	}

	if team.Leader().Identity != "Lead" {
		t.Errorf("Expected leader Lead, got %s", team.Leader().Identity)
	}
	members := team.Members()
	members[1].TakeDamage(200)
	if w := team.Weakest(); w.Identity != "Second" {
		t.Errorf("Expected Second to be weakest, got %s", w.Identity)
	}
	if n := team.ElementCount(members[0]); n != 2 {
		t.Errorf("Expected 2 abyssal members, got %d", n)
	}

	members[1].TakeDamage(1000)
	if n := team.ElementCount(members[0]); n != 1 {
		t.Errorf("Expected 1 living abyssal member, got %d", n)
	}
	if len(team.Living()) != 2 || team.Defeated() {
		t.Error("Team should have two living members")
	}
	members[0].TakeDamage(1000)
	members[2].TakeDamage(1000)
	if !team.Defeated() || team.TotalHP() != 0 {
		t.Error("Team should be defeated")
	}
}
