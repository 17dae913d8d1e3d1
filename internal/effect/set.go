package effect

import "github.com/samdwyer/espritarena/internal/gamedata"

// ActiveEffect is one effect instance attached to a combatant.
type ActiveEffect struct {
	Kind           gamedata.EffectKind `json:"kind"`
	RemainingTurns int                 `json:"remainingTurns"`
	Stacks         int                 `json:"stacks"`
	SourceTier     int                 `json:"sourceTier"`
	Magnitude      float64             `json:"magnitude"`
	Secondary      float64             `json:"secondary,omitempty"`
	Banked         int                 `json:"banked,omitempty"`
}

// Set is the ordered collection of effects owned by a single combatant.
// Each kind appears at most once; stacking is tracked inside the instance.
type Set struct {
	items []ActiveEffect
}

// NewSet builds a set from prior effects, e.g. when resuming a snapshot.
// Later duplicates of a kind are dropped.
func NewSet(prior ...ActiveEffect) *Set {
	s := &Set{}
	for _, e := range prior {
		if _, ok := s.Get(e.Kind); ok {
			continue
		}
		s.items = append(s.items, e)
	}
	return s
}

// Len returns the number of active effects.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Has returns true if kind is active.
func (s *Set) Has(kind gamedata.EffectKind) bool {
	_, ok := s.Get(kind)
	return ok
}

// Get returns a copy of the active instance of kind.
func (s *Set) Get(kind gamedata.EffectKind) (ActiveEffect, bool) {
	if i := s.index(kind); i >= 0 {
		return s.items[i], true
	}
	return ActiveEffect{}, false
}

// All returns a copy of every active effect in application order.
func (s *Set) All() []ActiveEffect {
	if s == nil {
		return nil
	}
	out := make([]ActiveEffect, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	return &Set{items: s.All()}
}

// Remove drops kind from the set. Returns false if it was not active.
func (s *Set) Remove(kind gamedata.EffectKind) bool {
	i := s.index(kind)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// Clear removes every effect, e.g. on death.
func (s *Set) Clear() {
	s.items = nil
}

// UseCharge spends one stack of kind, removing it when none remain.
// Returns false if kind was not active.
func (s *Set) UseCharge(kind gamedata.EffectKind) bool {
	i := s.index(kind)
	if i < 0 {
		return false
	}
	s.items[i].Stacks--
	if s.items[i].Stacks <= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return true
}

// Bank adds incoming damage to a temporal_shift instance. Returns false
// if no shift is active, in which case the damage must be taken directly.
func (s *Set) Bank(amount int) bool {
	i := s.index(gamedata.EffectTemporalShift)
	if i < 0 || amount <= 0 {
		return i >= 0
	}
	s.items[i].Banked += amount
	return true
}

func (s *Set) index(kind gamedata.EffectKind) int {
	if s == nil {
		return -1
	}
	for i := range s.items {
		if s.items[i].Kind == kind {
			return i
		}
	}
	return -1
}

func (s *Set) put(e ActiveEffect) {
	if i := s.index(e.Kind); i >= 0 {
		s.items[i] = e
		return
	}
	s.items = append(s.items, e)
}
