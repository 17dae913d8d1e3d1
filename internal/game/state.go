// Package game runs combat sessions and two-stage PvP battles.
package game

import (
	"fmt"
	"strings"
)

// State represents the lifecycle of a combat session.
type State int

const (
	// StateInProgress is a session still accepting actions.
	StateInProgress State = iota
	// StateDecided is a session where at least one side has no living members.
	StateDecided
	// StateStalemate is a session that hit its turn limit with both sides standing.
	StateStalemate
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateDecided:
		return "decided"
	case StateStalemate:
		return "stalemate"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Side identifies one of the two teams in a session or battle.
type Side int

const (
	SideA Side = iota
	SideB
	// SideNone is the winner of a drawn stage or battle.
	SideNone
)

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

// String returns "a", "b" or "none".
func (s Side) String() string {
	switch s {
	case SideA:
		return "a"
	case SideB:
		return "b"
	default:
		return "none"
	}
}

// MarshalText encodes the side name.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a side name.
func (s *Side) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "a":
		*s = SideA
	case "b":
		*s = SideB
	case "none", "":
		*s = SideNone
	default:
		return fmt.Errorf("unknown side %q", b)
	}
	return nil
}

// Reason explains how a battle was decided.
type Reason string

const (
	ReasonStageSweep     Reason = "stage-sweep"
	ReasonDamageTiebreak Reason = "damage-tiebreak"
	ReasonDraw           Reason = "draw"
)
