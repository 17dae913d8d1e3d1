package game

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/espritarena/internal/entity"
	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/telemetry"
)

// StageCount is the number of sequential stages in a PvP battle.
const StageCount = 2

// RosterSize is the number of esprits a player brings to a PvP battle.
const RosterSize = StageCount * entity.MaxTeamSize

// ErrInvalidSplit is returned when stage teams do not partition the roster.
var ErrInvalidSplit = errors.New("invalid stage split")

// Roster is one player's esprits for a two-stage battle.
type Roster struct {
	Name    string            `json:"name" yaml:"name"`
	Esprits []entity.Snapshot `json:"esprits" yaml:"esprits"`
	// Stages is an optional player-selected split, by identity.
	Stages [][]string `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Matchup pairs two rosters.
type Matchup struct {
	ID string `json:"id" yaml:"id"`
	A  Roster `json:"a" yaml:"a"`
	B  Roster `json:"b" yaml:"b"`
}

// Split holds the snapshots fielded in each stage.
type Split [StageCount][]entity.Snapshot

// SplitPolicy assigns a roster's esprits to stages.
type SplitPolicy interface {
	Split(r Roster) (Split, error)
}

// FixedSplit fields the first three esprits in stage 1 and the rest in stage 2.
type FixedSplit struct{}

// Split implements SplitPolicy.
func (FixedSplit) Split(r Roster) (Split, error) {
	if len(r.Esprits) != RosterSize {
		return Split{}, fmt.Errorf("%w: %s has %d esprits, want %d", ErrInvalidSplit, r.Name, len(r.Esprits), RosterSize)
	}
	n := entity.MaxTeamSize
	return Split{
		append([]entity.Snapshot(nil), r.Esprits[:n]...),
		append([]entity.Snapshot(nil), r.Esprits[n:]...),
	}, nil
}

// ElementGroupSplit orders the roster by element so matching elements fight
// together, then halves it.
type ElementGroupSplit struct{}

// Split implements SplitPolicy.
func (ElementGroupSplit) Split(r Roster) (Split, error) {
	order := make(map[gamedata.Element]int)
	for i, e := range gamedata.Elements() {
		order[e] = i
	}
	sorted := append([]entity.Snapshot(nil), r.Esprits...)
	slices.SortStableFunc(sorted, func(x, y entity.Snapshot) int {
		return order[x.Element] - order[y.Element]
	})
	return FixedSplit{}.Split(Roster{Name: r.Name, Esprits: sorted})
}

// PlayerSplit uses the roster's own Stages and falls back to Default when
// the player chose none.
type PlayerSplit struct {
	Default SplitPolicy
}

// Split implements SplitPolicy.
func (p PlayerSplit) Split(r Roster) (Split, error) {
	if len(r.Stages) == 0 {
		if p.Default == nil {
			return FixedSplit{}.Split(r)
		}
		return p.Default.Split(r)
	}
	if len(r.Stages) != StageCount {
		return Split{}, fmt.Errorf("%w: %s names %d stages", ErrInvalidSplit, r.Name, len(r.Stages))
	}

	byID := make(map[string]entity.Snapshot, len(r.Esprits))
	for _, s := range r.Esprits {
		byID[s.Identity] = s
	}
	var sp Split
	for i, ids := range r.Stages {
		for _, id := range ids {
			s, ok := byID[id]
			if !ok {
				return Split{}, fmt.Errorf("%w: %s stage %d names unknown esprit %q", ErrInvalidSplit, r.Name, i+1, id)
			}
			sp[i] = append(sp[i], s)
		}
	}
	return sp, nil
}

// ValidateSplit checks that sp partitions the roster into two full teams.
func ValidateSplit(r Roster, sp Split) error {
	if len(r.Esprits) != RosterSize {
		return fmt.Errorf("%w: %s has %d esprits, want %d", ErrInvalidSplit, r.Name, len(r.Esprits), RosterSize)
	}
	remaining := make(map[string]bool, RosterSize)
	for _, s := range r.Esprits {
		if remaining[s.Identity] {
			return fmt.Errorf("%w: %s lists %q twice", ErrInvalidSplit, r.Name, s.Identity)
		}
		remaining[s.Identity] = true
	}
	for i, team := range sp {
		if len(team) != entity.MaxTeamSize {
			return fmt.Errorf("%w: %s stage %d has %d esprits", ErrInvalidSplit, r.Name, i+1, len(team))
		}
		for _, s := range team {
			if !remaining[s.Identity] {
				return fmt.Errorf("%w: %s stage %d reuses or invents %q", ErrInvalidSplit, r.Name, i+1, s.Identity)
			}
			delete(remaining, s.Identity)
		}
	}
	return nil
}

// BattleResult is the immutable outcome of a two-stage battle.
type BattleResult struct {
	ID          uuid.UUID     `json:"id"`
	Matchup     string        `json:"matchup,omitempty"`
	A           string        `json:"a"`
	B           string        `json:"b"`
	Stages      []StageResult `json:"stages"`
	Winner      Side          `json:"winner"`
	Reason      Reason        `json:"reason"`
	DamageDealt [2]int        `json:"damageDealt"`
	DamageTaken [2]int        `json:"damageTaken"`
}

// WinnerName returns the winning roster's name, or "" for a draw.
func (r BattleResult) WinnerName() string {
	switch r.Winner {
	case SideA:
		return r.A
	case SideB:
		return r.B
	default:
		return ""
	}
}

// Decide applies the two-stage victory rule. Winning every stage is a sweep.
// Anything else goes to cumulative damage dealt, then lower damage taken; a
// residual tie is a draw. Drawn or stalemated stages count for neither side.
func Decide(stages []StageResult) (Side, Reason) {
	var wins, dealt, taken [2]int
	for _, st := range stages {
		if st.Winner == SideA || st.Winner == SideB {
			wins[st.Winner]++
		}
		for side := range 2 {
			dealt[side] += st.DamageDealt[side]
			taken[side] += st.DamageTaken[side]
		}
	}

	switch {
	case wins[SideA] >= StageCount:
		return SideA, ReasonStageSweep
	case wins[SideB] >= StageCount:
		return SideB, ReasonStageSweep
	case dealt[SideA] > dealt[SideB]:
		return SideA, ReasonDamageTiebreak
	case dealt[SideB] > dealt[SideA]:
		return SideB, ReasonDamageTiebreak
	case taken[SideA] < taken[SideB]:
		return SideA, ReasonDamageTiebreak
	case taken[SideB] < taken[SideA]:
		return SideB, ReasonDamageTiebreak
	default:
		return SideNone, ReasonDraw
	}
}

// Orchestrator runs two-stage battles. It holds only read-only state and
// may be shared by concurrent callers.
type Orchestrator struct {
	Rules  *Rules
	Config Config
	// Policy chooses actions for both sides. nil means UltimateFirst.
	Policy ActionPolicy
	// Splitter assigns esprits to stages. nil means PlayerSplit over FixedSplit.
	Splitter SplitPolicy
	// OnStage, if set, observes each stage result as soon as it resolves.
	OnStage func(BattleProgress)
}

// BattleProgress reports a resolved stage before the battle is decided.
type BattleProgress struct {
	BattleID uuid.UUID
	Stage    StageResult
}

func (o *Orchestrator) splitter() SplitPolicy {
	if o.Splitter != nil {
		return o.Splitter
	}
	return PlayerSplit{Default: FixedSplit{}}
}

func (o *Orchestrator) split(r Roster) (Split, error) {
	sp, err := o.splitter().Split(r)
	if err != nil {
		return Split{}, err
	}
	if err := ValidateSplit(r, sp); err != nil {
		return Split{}, err
	}
	return sp, nil
}

// Battle runs both stages of m with fresh combatants each stage, so no HP,
// effects or cooldowns carry over, and decides the winner.
func (o *Orchestrator) Battle(ctx context.Context, m Matchup) (BattleResult, error) {
	if o.Rules == nil {
		return BattleResult{}, fmt.Errorf("%w: orchestrator without rules", ErrSessionInvariant)
	}
	cfg := o.Config.withDefaults()

	result := BattleResult{ID: uuid.New(), Matchup: m.ID, A: m.A.Name, B: m.B.Name, Winner: SideNone}
	log := cfg.Logger.With("battle", result.ID.String(), "matchup", m.ID)

	tracer := telemetry.Tracer("game")
	ctx, span := tracer.Start(ctx, "battle.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("battle.id", result.ID.String()),
		attribute.String("roster.a", m.A.Name),
		attribute.String("roster.b", m.B.Name),
	)

	splitA, err := o.split(m.A)
	if err != nil {
		return result, err
	}
	splitB, err := o.split(m.B)
	if err != nil {
		return result, err
	}

	stageCfg := cfg
	stageCfg.Logger = log
	for i := range StageCount {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		teamA, err := entity.TeamFromSnapshots(m.A.Name, splitA[i])
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrSessionInvariant, err)
		}
		teamB, err := entity.TeamFromSnapshots(m.B.Name, splitB[i])
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrSessionInvariant, err)
		}

		session, err := NewSession(o.Rules, stageCfg, i+1, teamA, teamB)
		if err != nil {
			return result, err
		}
		stage, err := session.Run(ctx, o.Policy)
		if err != nil {
			return result, err
		}
		result.Stages = append(result.Stages, stage)
		if o.OnStage != nil {
			o.OnStage(BattleProgress{BattleID: result.ID, Stage: stage})
		}
	}

	result.Winner, result.Reason = Decide(result.Stages)
	for _, st := range result.Stages {
		for side := range 2 {
			result.DamageDealt[side] += st.DamageDealt[side]
			result.DamageTaken[side] += st.DamageTaken[side]
		}
	}

	span.SetAttributes(
		attribute.String("winner", result.Winner.String()),
		attribute.String("reason", string(result.Reason)),
	)
	log.Info("battle decided",
		"winner", result.WinnerName(),
		"reason", result.Reason,
		"dealt_a", result.DamageDealt[SideA],
		"dealt_b", result.DamageDealt[SideB],
	)
	return result, nil
}
