package entity

import (
	"errors"
	"fmt"
)

// MaxTeamSize is the number of esprits fielded per stage.
const MaxTeamSize = 3

var (
	// ErrEmptyTeam is returned for a team without members.
	ErrEmptyTeam = errors.New("team has no members")
	// ErrTeamTooLarge is returned for more than MaxTeamSize members.
	ErrTeamTooLarge = errors.New("team too large")
	// ErrDuplicateIdentity is returned when an identity appears twice in a team.
	ErrDuplicateIdentity = errors.New("duplicate identity in team")
)

// Team is an ordered list of combatants. The first member is the leader.
// Membership is fixed once built.
type Team struct {
	Name    string
	members []*Combatant
}

// NewTeam validates composition and builds a team.
func NewTeam(name string, members ...*Combatant) (*Team, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTeam)
	}
	if len(members) > MaxTeamSize {
		return nil, fmt.Errorf("%s: %w: %d members", name, ErrTeamTooLarge, len(members))
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m == nil {
			return nil, fmt.Errorf("%s: %w: nil member", name, ErrInvalidCombatant)
		}
		if seen[m.Identity] {
			return nil, fmt.Errorf("%s: %w: %q", name, ErrDuplicateIdentity, m.Identity)
		}
		seen[m.Identity] = true
	}
	return &Team{Name: name, members: append([]*Combatant(nil), members...)}, nil
}

// TeamFromSnapshots builds fresh combatants and a team from snapshots.
func TeamFromSnapshots(name string, snaps []Snapshot) (*Team, error) {
	members := make([]*Combatant, 0, len(snaps))
	for _, s := range snaps {
		c, err := NewCombatant(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		members = append(members, c)
	}
	return NewTeam(name, members...)
}

// Members returns the team in order, leader first.
func (t *Team) Members() []*Combatant {
	return append([]*Combatant(nil), t.members...)
}

// Leader returns the first member.
func (t *Team) Leader() *Combatant {
	return t.members[0]
}

// Size returns the number of members.
func (t *Team) Size() int {
	return len(t.members)
}

// Living returns members with HP remaining, in order.
func (t *Team) Living() []*Combatant {
	var out []*Combatant
	for _, m := range t.members {
		if m.IsAlive() {
			out = append(out, m)
		}
	}
	return out
}

// Defeated returns true when every member is at 0 HP.
func (t *Team) Defeated() bool {
	for _, m := range t.members {
		if m.IsAlive() {
			return false
		}
	}
	return true
}

// TotalHP returns the sum of current HP.
func (t *Team) TotalHP() int {
	total := 0
	for _, m := range t.members {
		total += m.HP
	}
	return total
}

// Weakest returns the living member with the lowest HP, or nil.
func (t *Team) Weakest() *Combatant {
	var weakest *Combatant
	for _, m := range t.Living() {
		if weakest == nil || m.HP < weakest.HP {
			weakest = m
		}
	}
	return weakest
}

// ElementCount returns how many living members share c's element, c included.
func (t *Team) ElementCount(c *Combatant) int {
	n := 0
	for _, m := range t.Living() {
		if m.Element == c.Element {
			n++
		}
	}
	return n
}

// Snapshots captures every member.
func (t *Team) Snapshots() []Snapshot {
	out := make([]Snapshot, len(t.members))
	for i, m := range t.members {
		out[i] = m.Snapshot()
	}
	return out
}
