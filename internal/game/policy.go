package game

import (
	"github.com/samdwyer/espritarena/internal/entity"
	"github.com/samdwyer/espritarena/internal/gamedata"
)

// TurnOrder picks the acting side and combatant for a turn. last holds the
// combatant that most recently acted for each side, nil before its first turn.
// Implementations must be deterministic given the same inputs. Speed-based
// ordering plugs in here.
type TurnOrder interface {
	Next(turn int, teams [2]*entity.Team, last [2]*entity.Combatant) (Side, *entity.Combatant)
}

// Alternating gives side A the even turns and side B the odd ones. Within a
// side a cursor walks the roster, leader first, skipping the fallen.
type Alternating struct{}

// Next implements TurnOrder.
func (Alternating) Next(turn int, teams [2]*entity.Team, last [2]*entity.Combatant) (Side, *entity.Combatant) {
	side := SideA
	if turn%2 == 1 {
		side = SideB
	}
	return side, nextLiving(teams[side], last[side])
}

// nextLiving returns the first living member after prev in roster order,
// wrapping around. A nil or unknown prev starts from the leader.
func nextLiving(team *entity.Team, prev *entity.Combatant) *entity.Combatant {
	members := team.Members()
	start := 0
	for i, m := range members {
		if m == prev {
			start = i + 1
			break
		}
	}
	for i := range members {
		if m := members[(start+i)%len(members)]; m.IsAlive() {
			return m
		}
	}
	return nil
}

// Action is one ability use requested for the current actor.
type Action struct {
	Slot gamedata.Slot
	// Target names an opponent for single-target abilities. Empty picks the
	// first living opponent.
	Target string
}

// ActionPolicy chooses actions for automated runs.
type ActionPolicy interface {
	Choose(s *Session, actor *entity.Combatant) Action
}

// PolicyFunc adapts a function to ActionPolicy.
type PolicyFunc func(s *Session, actor *entity.Combatant) Action

// Choose implements ActionPolicy.
func (f PolicyFunc) Choose(s *Session, actor *entity.Combatant) Action {
	return f(s, actor)
}

// UltimateFirst uses the ultimate whenever it is off cooldown, else basic.
type UltimateFirst struct{}

// Choose implements ActionPolicy.
func (UltimateFirst) Choose(_ *Session, actor *entity.Combatant) Action {
	if actor.Cooldown(gamedata.SlotUltimate) == 0 {
		return Action{Slot: gamedata.SlotUltimate}
	}
	return Action{Slot: gamedata.SlotBasic}
}

// BasicOnly always uses the basic ability.
type BasicOnly struct{}

// Choose implements ActionPolicy.
func (BasicOnly) Choose(*Session, *entity.Combatant) Action {
	return Action{Slot: gamedata.SlotBasic}
}
