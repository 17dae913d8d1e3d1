package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/espritarena/internal/ability"
	"github.com/samdwyer/espritarena/internal/combat"
	"github.com/samdwyer/espritarena/internal/effect"
	"github.com/samdwyer/espritarena/internal/entity"
	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/telemetry"
	"github.com/samdwyer/espritarena/internal/tier"
)

var (
	// ErrAbilityOnCooldown is returned when the chosen slot is still cooling down.
	ErrAbilityOnCooldown = errors.New("ability on cooldown")
	// ErrPassiveSlot is returned when an action names the passive slot.
	ErrPassiveSlot = errors.New("passive abilities cannot be used as actions")
	// ErrInvalidTarget is returned when an action names no living opponent.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrSessionOver is returned when acting on a finished session.
	ErrSessionOver = errors.New("session is over")
	// ErrSessionInvariant marks failures that make the session unusable.
	ErrSessionInvariant = errors.New("session invariant violated")
)

// IsResolutionError reports whether err rejected a single action without
// touching session state, so the caller may retry with another slot.
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrAbilityOnCooldown) ||
		errors.Is(err, ErrPassiveSlot) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ability.ErrUnknownElement) ||
		errors.Is(err, ability.ErrNoAbilityForSlot) ||
		errors.Is(err, tier.ErrInvalidTier)
}

// Hit is one damage application of an action.
type Hit struct {
	Target    string           `json:"target"`
	Breakdown combat.Breakdown `json:"breakdown"`
	Dealt     int              `json:"dealt"`
	Banked    int              `json:"banked,omitempty"`
	Reflected int              `json:"reflected,omitempty"`
	Healed    int              `json:"healed,omitempty"` // defender healing from a perfect counter
}

// EffectApplication records an effect landing on a combatant.
type EffectApplication struct {
	Target string `json:"target"`
	effect.AppliedDelta
}

// TickReport records what one effect did to a combatant at end of turn.
type TickReport struct {
	Combatant string `json:"combatant"`
	Side      Side   `json:"side"`
	effect.TickDelta
}

// TurnResult is the structured outcome of one turn.
type TurnResult struct {
	Turn       int                  `json:"turn"`
	Side       Side                 `json:"side"`
	Actor      string               `json:"actor"`
	Slot       gamedata.Slot        `json:"slot,omitempty"`
	Ability    string               `json:"ability,omitempty"`
	Passed     bool                 `json:"passed,omitempty"`
	Hits       []Hit                `json:"hits,omitempty"`
	HealTarget string               `json:"healTarget,omitempty"`
	Healing    int                  `json:"healing,omitempty"`
	Effects    []EffectApplication  `json:"effects,omitempty"`
	Ticks      []TickReport         `json:"ticks,omitempty"`
	State      State                `json:"state"`
	Combatants [2][]entity.Snapshot `json:"combatants"`
}

// StageResult summarizes a finished (or abandoned) session.
type StageResult struct {
	Stage       int                  `json:"stage"`
	State       State                `json:"state"`
	Winner      Side                 `json:"winner"`
	Turns       int                  `json:"turns"`
	DamageDealt [2]int               `json:"damageDealt"`
	DamageTaken [2]int               `json:"damageTaken"`
	Opening     []EffectApplication  `json:"opening,omitempty"`
	Log         []TurnResult         `json:"log,omitempty"`
	Final       [2][]entity.Snapshot `json:"final"`
}

// Session is the turn-based state machine for one stage. It is not safe for
// concurrent use; each battle owns its sessions.
type Session struct {
	rules *Rules
	cfg   Config
	log   *slog.Logger
	stage int

	teams  [2]*entity.Team
	sideOf map[*entity.Combatant]Side
	// opponent-applied effects whose ticks count as damage dealt
	attributed map[*entity.Combatant]map[gamedata.EffectKind]bool

	turn    int
	last    [2]*entity.Combatant
	state   State
	winner  Side
	dealt   [2]int
	taken   [2]int
	opening []EffectApplication
	history []TurnResult
}

// NewSession starts a stage between two teams and applies passives.
func NewSession(rules *Rules, cfg Config, stage int, a, b *entity.Team) (*Session, error) {
	if rules == nil || a == nil || b == nil {
		return nil, fmt.Errorf("%w: missing rules or team", ErrSessionInvariant)
	}
	cfg = cfg.withDefaults()

	s := &Session{
		rules:      rules,
		cfg:        cfg,
		log:        cfg.Logger.With("stage", stage),
		stage:      stage,
		teams:      [2]*entity.Team{a, b},
		sideOf:     make(map[*entity.Combatant]Side, a.Size()+b.Size()),
		attributed: make(map[*entity.Combatant]map[gamedata.EffectKind]bool),
		winner:     SideNone,
	}
	for _, side := range []Side{SideA, SideB} {
		for _, c := range s.teams[side].Members() {
			if _, dup := s.sideOf[c]; dup {
				return nil, fmt.Errorf("%w: %s fielded on both sides", ErrSessionInvariant, c.Identity)
			}
			s.sideOf[c] = side
			for _, e := range c.Effects().All() {
				if err := rules.Effects.Check(e); err != nil {
					return nil, fmt.Errorf("%w: %s: %w", ErrSessionInvariant, c.Identity, err)
				}
			}
		}
	}

	if err := s.applyPassives(); err != nil {
		return nil, err
	}
	s.checkTerminal()
	return s, nil
}

func (s *Session) applyPassives() error {
	for _, side := range []Side{SideA, SideB} {
		for _, c := range s.teams[side].Members() {
			def, err := s.rules.Catalog.Resolve(c.Identity, c.Element, c.Tier, gamedata.SlotPassive)
			if errors.Is(err, ability.ErrNoAbilityForSlot) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%w: passive for %s: %w", ErrSessionInvariant, c.Identity, err)
			}
			for _, kind := range def.Effects {
				if s.rules.Effects.TargetOf(kind) != effect.TargetSelf {
					continue
				}
				app, err := s.applyEffect(c, c, kind, effect.WithTurns(s.cfg.MaxTurns+1))
				if err != nil {
					return fmt.Errorf("%w: passive for %s: %w", ErrSessionInvariant, c.Identity, err)
				}
				s.opening = append(s.opening, app)
			}
		}
	}
	return nil
}

// ============================================================================
// Accessors
// ============================================================================

// Stage returns the stage index this session resolves.
func (s *Session) Stage() int { return s.stage }

// Turn returns the number of turns resolved so far.
func (s *Session) Turn() int { return s.turn }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Winner returns the winning side, or SideNone.
func (s *Session) Winner() Side { return s.winner }

// Team returns the team fighting on side.
func (s *Session) Team(side Side) *entity.Team { return s.teams[side] }

// Rules returns the shared rules.
func (s *Session) Rules() *Rules { return s.rules }

// DamageDealt returns cumulative damage credited to side.
func (s *Session) DamageDealt(side Side) int { return s.dealt[side] }

// DamageTaken returns cumulative HP lost by side.
func (s *Session) DamageTaken(side Side) int { return s.taken[side] }

// Next returns who acts on the upcoming turn.
func (s *Session) Next() (Side, *entity.Combatant) {
	return s.cfg.TurnOrder.Next(s.turn, s.teams, s.last)
}

// Result summarizes the session so far.
func (s *Session) Result() StageResult {
	return StageResult{
		Stage:       s.stage,
		State:       s.state,
		Winner:      s.winner,
		Turns:       s.turn,
		DamageDealt: s.dealt,
		DamageTaken: s.taken,
		Opening:     append([]EffectApplication(nil), s.opening...),
		Log:         append([]TurnResult(nil), s.history...),
		Final:       s.snapshots(),
	}
}

func (s *Session) snapshots() [2][]entity.Snapshot {
	return [2][]entity.Snapshot{s.teams[SideA].Snapshots(), s.teams[SideB].Snapshots()}
}

// ============================================================================
// Turn resolution
// ============================================================================

// plan is a fully validated action. Building one never mutates state.
type plan struct {
	side    Side
	actor   *entity.Combatant
	def     ability.Definition
	targets []*entity.Combatant
	hits    []combat.Breakdown
	ally    *entity.Combatant
	heal    int
}

// Act resolves one turn for the current actor. Resolution errors leave the
// session untouched and the same actor still due.
func (s *Session) Act(ctx context.Context, action Action) (TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}
	if s.state != StateInProgress {
		return TurnResult{}, ErrSessionOver
	}
	side, actor := s.Next()
	if actor == nil {
		return TurnResult{}, fmt.Errorf("%w: side %s has no living actor", ErrSessionInvariant, side)
	}

	tracer := telemetry.Tracer("game")
	_, span := tracer.Start(ctx, "session.turn")
	defer span.End()
	span.SetAttributes(
		attribute.Int("stage", s.stage),
		attribute.Int("turn", s.turn+1),
		attribute.String("side", side.String()),
		attribute.String("actor", actor.Identity),
		attribute.String("slot", string(action.Slot)),
	)

	p, err := s.plan(side, actor, action)
	if err != nil {
		span.SetAttributes(attribute.Bool("failed", true))
		span.RecordError(err)
		return TurnResult{}, err
	}

	res := s.execute(p)
	s.last[side] = actor
	s.endTurn(&res)

	span.SetAttributes(
		attribute.String("ability", p.def.Name),
		attribute.Int("hits", len(res.Hits)),
		attribute.Int("healing", res.Healing),
	)
	return res, nil
}

// Pass spends the current actor's turn without acting. Effects and
// cooldowns still tick.
func (s *Session) Pass(ctx context.Context) (TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}
	if s.state != StateInProgress {
		return TurnResult{}, ErrSessionOver
	}
	side, actor := s.Next()
	if actor == nil {
		return TurnResult{}, fmt.Errorf("%w: side %s has no living actor", ErrSessionInvariant, side)
	}

	actor.TickCooldowns()
	res := TurnResult{Side: side, Actor: actor.Identity, Passed: true}
	s.last[side] = actor
	s.endTurn(&res)
	return res, nil
}

func (s *Session) plan(side Side, actor *entity.Combatant, action Action) (plan, error) {
	if action.Slot == gamedata.SlotPassive {
		return plan{}, ErrPassiveSlot
	}
	if action.Slot.Index() < 0 {
		return plan{}, fmt.Errorf("%w: slot %q", ability.ErrNoAbilityForSlot, action.Slot)
	}
	if cd := actor.Cooldown(action.Slot); cd > 0 {
		return plan{}, fmt.Errorf("%w: %s %s has %d turns left", ErrAbilityOnCooldown, actor.Identity, action.Slot, cd)
	}
	def, err := s.rules.Catalog.Resolve(actor.Identity, actor.Element, actor.Tier, action.Slot)
	if err != nil {
		return plan{}, fmt.Errorf("%s %s: %w", actor.Identity, action.Slot, err)
	}

	p := plan{side: side, actor: actor, def: def}

	opponents := s.teams[side.Other()].Living()
	if len(opponents) == 0 {
		return plan{}, fmt.Errorf("%w: no living opponents", ErrSessionInvariant)
	}
	primary := opponents[0]
	if action.Target != "" {
		primary = nil
		for _, o := range opponents {
			if o.Identity == action.Target {
				primary = o
				break
			}
		}
		if primary == nil {
			return plan{}, fmt.Errorf("%w: %q", ErrInvalidTarget, action.Target)
		}
	}
	p.targets = []*entity.Combatant{primary}
	if def.Type.HitsAll() {
		p.targets = opponents
	}

	attacker := s.profile(actor)
	switch {
	case def.IsOffensive():
		for _, t := range p.targets {
			b, err := s.rules.Calc.Damage(attacker, s.profile(t), def.Power, def.Type)
			if err != nil {
				return plan{}, fmt.Errorf("%w: %w", ErrSessionInvariant, err)
			}
			p.hits = append(p.hits, b)
		}
	case def.Type == gamedata.AbilityHeal:
		p.ally = s.teams[side].Weakest()
		if p.heal, err = s.rules.Calc.Healing(attacker, def.Power); err != nil {
			return plan{}, fmt.Errorf("%w: %w", ErrSessionInvariant, err)
		}
	}
	return p, nil
}

func (s *Session) profile(c *entity.Combatant) combat.Profile {
	return combat.Profile{
		Attack:  c.Attack,
		Defense: c.Defense,
		Element: c.Element,
		Mods:    s.rules.Effects.Modifiers(c.Effects()),
	}
}

func (s *Session) execute(p plan) TurnResult {
	res := TurnResult{
		Side:    p.side,
		Actor:   p.actor.Identity,
		Slot:    p.def.Slot,
		Ability: p.def.Name,
	}

	overcharged := false
	for i, t := range p.targets {
		if i >= len(p.hits) {
			break
		}
		res.Hits = append(res.Hits, s.strike(p.actor, t, p.hits[i]))
		overcharged = overcharged || p.hits[i].UsedOvercharge
	}
	if overcharged {
		p.actor.Effects().Remove(gamedata.EffectOvercharge)
	}

	if p.ally != nil {
		res.HealTarget = p.ally.Identity
		res.Healing = p.ally.Heal(p.heal)
	}

	for _, kind := range p.def.Effects {
		recipients := p.targets
		if s.rules.Effects.TargetOf(kind) == effect.TargetSelf {
			recipients = []*entity.Combatant{p.actor}
		}
		for _, r := range recipients {
			if !r.IsAlive() {
				continue
			}
			app, err := s.applyEffect(p.actor, r, kind)
			if err != nil {
				s.log.Error("effect not applied", "actor", p.actor.Identity, "effect", kind, "error", err)
				continue
			}
			res.Effects = append(res.Effects, app)
		}
	}

	p.actor.TickCooldowns()
	p.actor.StartCooldown(p.def.Slot, p.def.Cooldown)
	return res
}

// strike delivers one hit, honouring the defender's counters and banking.
func (s *Session) strike(attacker, target *entity.Combatant, b combat.Breakdown) Hit {
	hit := Hit{Target: target.Identity, Breakdown: b}
	mods := s.rules.Effects.Modifiers(target.Effects())

	switch {
	case mods.PerfectCounter > 0:
		target.Effects().UseCharge(gamedata.EffectPerfectCounter)
		hit.Reflected = s.damage(attacker, b.Amount, true)
		hit.Healed = target.Heal(int(math.Round(float64(b.Amount) * mods.PerfectCounterHeal)))
	case mods.TemporalShift:
		target.Effects().Bank(b.Amount)
		hit.Banked = b.Amount
	default:
		hit.Dealt = s.damage(target, b.Amount, true)
		if mods.Counter > 0 {
			target.Effects().Remove(gamedata.EffectCounterStance)
			hit.Reflected = s.damage(attacker, combat.Reflect(b.Amount, mods.Counter), true)
		}
		if b.UsedWeakness {
			target.Effects().Remove(gamedata.EffectElementalWeakness)
		}
	}
	return hit
}

// applyEffect lands kind on target on behalf of source.
func (s *Session) applyEffect(source, target *entity.Combatant, kind gamedata.EffectKind, opts ...effect.ApplyOption) (EffectApplication, error) {
	app := EffectApplication{Target: target.Identity}

	if kind == gamedata.EffectElementalResonance {
		if s.teams[s.sideOf[source]].ElementCount(source) < 2 {
			app.AppliedDelta = effect.AppliedDelta{Kind: kind, Outcome: effect.OutcomeSuppressed}
			return app, nil
		}
	}

	delta, err := s.rules.Effects.Apply(target, kind, source.Tier, opts...)
	if err != nil {
		return app, err
	}
	app.AppliedDelta = delta

	opposed := s.sideOf[source] != s.sideOf[target]
	switch delta.Outcome {
	case effect.OutcomeInstant:
		app.Damage = s.damage(target, delta.Damage, opposed)
	case effect.OutcomeSuppressed:
	default:
		if opposed {
			if s.attributed[target] == nil {
				s.attributed[target] = make(map[gamedata.EffectKind]bool)
			}
			s.attributed[target][kind] = true
		}
	}
	return app, nil
}

// damage removes HP from c and books it. credited damage also counts as
// dealt by the opposing side.
func (s *Session) damage(c *entity.Combatant, amount int, credited bool) int {
	actual := c.TakeDamage(amount)
	side := s.sideOf[c]
	s.taken[side] += actual
	if credited {
		s.dealt[side.Other()] += actual
	}
	return actual
}

// endTurn ticks effects on every living combatant, advances the turn counter
// and checks for a terminal state.
func (s *Session) endTurn(res *TurnResult) {
	for _, side := range []Side{SideA, SideB} {
		for _, c := range s.teams[side].Living() {
			for _, d := range s.rules.Effects.Tick(c) {
				if d.Damage > 0 {
					credited := d.Kind == gamedata.EffectTemporalShift || s.attributed[c][d.Kind]
					d.Damage = s.damage(c, d.Damage, credited)
				}
				if d.Healing > 0 {
					d.Healing = c.Heal(d.Healing)
				}
				if d.Expired {
					delete(s.attributed[c], d.Kind)
				}
				res.Ticks = append(res.Ticks, TickReport{Combatant: c.Identity, Side: side, TickDelta: d})
			}
		}
	}

	s.turn++
	s.checkTerminal()

	res.Turn = s.turn
	res.State = s.state
	res.Combatants = s.snapshots()
	s.history = append(s.history, *res)

	s.log.Debug("turn resolved",
		"turn", s.turn,
		"side", res.Side,
		"actor", res.Actor,
		"ability", res.Ability,
		"passed", res.Passed,
		"hp_a", s.teams[SideA].TotalHP(),
		"hp_b", s.teams[SideB].TotalHP(),
	)
}

func (s *Session) checkTerminal() {
	if s.state != StateInProgress {
		return
	}
	aDown, bDown := s.teams[SideA].Defeated(), s.teams[SideB].Defeated()
	switch {
	case aDown && bDown:
		s.state, s.winner = StateDecided, SideNone
	case aDown:
		s.state, s.winner = StateDecided, SideB
	case bDown:
		s.state, s.winner = StateDecided, SideA
	case s.turn >= s.cfg.MaxTurns:
		s.state, s.winner = StateStalemate, SideNone
	default:
		return
	}
	s.log.Info("stage resolved",
		"state", s.state,
		"winner", s.winner,
		"turns", s.turn,
		"dealt_a", s.dealt[SideA],
		"dealt_b", s.dealt[SideB],
	)
}

// Run drives the session to completion with policy choosing actions. A
// rejected action falls back to the basic slot; if that is rejected too the
// actor passes. Cancellation is honoured at turn boundaries.
func (s *Session) Run(ctx context.Context, policy ActionPolicy) (StageResult, error) {
	if policy == nil {
		policy = UltimateFirst{}
	}

	tracer := telemetry.Tracer("game")
	ctx, span := tracer.Start(ctx, "session.run")
	defer span.End()
	span.SetAttributes(attribute.Int("stage", s.stage))

	for s.state == StateInProgress {
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		_, actor := s.Next()
		if actor == nil {
			return s.Result(), fmt.Errorf("%w: no living actor", ErrSessionInvariant)
		}

		action := policy.Choose(s, actor)
		_, err := s.Act(ctx, action)
		if err == nil {
			continue
		}
		if !IsResolutionError(err) {
			return s.Result(), err
		}
		s.log.Debug("action rejected", "actor", actor.Identity, "slot", action.Slot, "error", err)

		if action.Slot != gamedata.SlotBasic || action.Target != "" {
			_, err = s.Act(ctx, Action{Slot: gamedata.SlotBasic})
			if err == nil {
				continue
			}
			if !IsResolutionError(err) {
				return s.Result(), err
			}
		}
		if _, err := s.Pass(ctx); err != nil {
			return s.Result(), err
		}
	}

	span.SetAttributes(
		attribute.String("state", s.state.String()),
		attribute.String("winner", s.winner.String()),
		attribute.Int("turns", s.turn),
	)
	return s.Result(), nil
}
