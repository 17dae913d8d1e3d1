// Package ledger stores decided battles.
package ledger

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/samdwyer/espritarena/internal/game"
)

// ErrDuplicateResult is returned when a battle id is recorded twice.
var ErrDuplicateResult = errors.New("battle already recorded")

// Sink persists battle results. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, result game.BattleResult) error
}

// MemorySink keeps results in memory, in recording order.
type MemorySink struct {
	mu      sync.RWMutex
	results []game.BattleResult
	byID    map[uuid.UUID]int
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byID: make(map[uuid.UUID]int)}
}

// Record implements Sink.
func (m *MemorySink) Record(ctx context.Context, result game.BattleResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[result.ID]; ok {
		return ErrDuplicateResult
	}
	m.byID[result.ID] = len(m.results)
	m.results = append(m.results, result)
	return nil
}

// Results returns every recorded result.
func (m *MemorySink) Results() []game.BattleResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.results)
}

// Get returns the result recorded under id.
func (m *MemorySink) Get(id uuid.UUID) (game.BattleResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return game.BattleResult{}, false
	}
	return m.results[i], true
}

// Standings counts wins per roster name. Draws are not counted.
func (m *MemorySink) Standings() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wins := make(map[string]int)
	for _, r := range m.results {
		if name := r.WinnerName(); name != "" {
			wins[name]++
		}
	}
	return wins
}

var (
	_ Sink = (*MemorySink)(nil)
	_ Sink = (*PostgresSink)(nil)
)
