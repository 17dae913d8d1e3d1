// Package effect defines status-effect stacking, duration and tier-scaled
// magnitudes, and applies them to combatants.
package effect

import (
	"errors"
	"fmt"
	"math"

	"github.com/samdwyer/espritarena/internal/gamedata"
	"github.com/samdwyer/espritarena/internal/tier"
)

// ErrMalformedRegistry is returned when the effect table is incomplete or inconsistent.
var ErrMalformedRegistry = errors.New("malformed effect registry")

// ErrInvalidEffect is returned for a resumed effect the registry could not
// have produced.
var ErrInvalidEffect = errors.New("invalid active effect")

// Target is who an effect lands on when an ability carries it.
type Target int

const (
	TargetSelf Target = iota
	TargetOpponent
)

func (t Target) String() string {
	if t == TargetOpponent {
		return "opponent"
	}
	return "self"
}

// Outcome describes what an application did to the holder's set.
type Outcome string

const (
	OutcomeAdded      Outcome = "added"
	OutcomeRefreshed  Outcome = "refreshed"
	OutcomeStacked    Outcome = "stacked"
	OutcomeCapReached Outcome = "cap_reached"
	OutcomeReplaced   Outcome = "replaced"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeInstant    Outcome = "instant"
)

// Holder is anything that owns an effect set.
type Holder interface {
	Effects() *Set
	GetMaxHP() int
}

// Spec is the validated definition of one effect kind.
type Spec struct {
	Kind      gamedata.EffectKind
	Name      string
	Policy    gamedata.StackPolicy
	Target    Target
	Charges   bool // stack cap is a pool of charges granted on application
	UntilUsed bool // held until consumed; Tick leaves it alone
	duration  scaled
	magnitude scaled
	secondary scaled
	stackCap  scaled
	hasCap    bool
	grants    []gamedata.EffectKind
}

// Instant reports whether the effect resolves on application instead of persisting.
func (s Spec) Instant() bool {
	return s.duration.base == 0 && len(s.duration.steps) == 0
}

// Duration returns the base duration in turns at tier.
func (s Spec) Duration(tierN int) int {
	return int(math.Round(s.duration.at(tierN)))
}

// Magnitude returns base + step(tier).
func (s Spec) Magnitude(tierN int) float64 {
	return s.magnitude.at(tierN)
}

// Secondary returns the secondary magnitude, or 0 if the kind has none.
func (s Spec) Secondary(tierN int) float64 {
	return s.secondary.at(tierN)
}

// StackCap returns the tier-scaled stack cap, 1 for kinds without one.
func (s Spec) StackCap(tierN int) int {
	if !s.hasCap {
		return 1
	}
	return max(1, int(math.Round(s.stackCap.at(tierN))))
}

// Grants returns the kinds this effect makes its holder immune to.
func (s Spec) Grants() []gamedata.EffectKind {
	return append([]gamedata.EffectKind(nil), s.grants...)
}

// scaled is a base value plus a non-decreasing step function over tiers.
type scaled struct {
	base  float64
	steps []gamedata.StepDef
}

func (v scaled) at(tierN int) float64 {
	step := 0.0
	for _, s := range v.steps {
		if s.Tier > tierN {
			break
		}
		step = s.Value
	}
	return v.base + step
}

// targets is fixed engine behavior; the table cannot retarget a kind.
var targets = map[gamedata.EffectKind]Target{
	gamedata.EffectBurn:              TargetOpponent,
	gamedata.EffectPoison:            TargetOpponent,
	gamedata.EffectWeakened:          TargetOpponent,
	gamedata.EffectVulnerabilityMark: TargetOpponent,
	gamedata.EffectPowerSiphon:       TargetOpponent,
	gamedata.EffectElementalWeakness: TargetOpponent,
	gamedata.EffectManaBurn:          TargetOpponent,
}

// Registry is the immutable per-kind effect table. Safe for concurrent use.
type Registry struct {
	specs map[gamedata.EffectKind]Spec
}

// NewRegistry validates the authored effect rows. Every known kind must be
// present exactly once.
func NewRegistry(file gamedata.EffectsFile) (*Registry, error) {
	r := &Registry{specs: make(map[gamedata.EffectKind]Spec, len(file.Effects))}

	for _, d := range file.Effects {
		if _, dup := r.specs[d.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate kind %q", ErrMalformedRegistry, d.Kind)
		}
		spec, err := buildSpec(d)
		if err != nil {
			return nil, err
		}
		r.specs[d.Kind] = spec
	}

	for _, k := range gamedata.EffectKinds() {
		if _, ok := r.specs[k]; !ok {
			return nil, fmt.Errorf("%w: missing kind %q", ErrMalformedRegistry, k)
		}
	}
	return r, nil
}

// Load builds the registry from the embedded effects table.
func Load() (*Registry, error) {
	file, err := gamedata.LoadEffects()
	if err != nil {
		return nil, err
	}
	return NewRegistry(file)
}

// MustLoad is like Load but panics on error.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

func buildSpec(d gamedata.EffectDef) (Spec, error) {
	if d.Kind == "" {
		return Spec{}, fmt.Errorf("%w: row without kind", ErrMalformedRegistry)
	}
	if d.Policy == "" {
		return Spec{}, fmt.Errorf("%w: %s has no stacking policy", ErrMalformedRegistry, d.Kind)
	}

	spec := Spec{
		Kind:      d.Kind,
		Name:      d.Name,
		Policy:    d.Policy,
		Target:    targets[d.Kind],
		Charges:   d.Kind == gamedata.EffectPerfectCounter,
		UntilUsed: d.UntilUsed,
		grants:    append([]gamedata.EffectKind(nil), d.Grants...),
	}
	if spec.Name == "" {
		spec.Name = string(d.Kind)
	}

	var err error
	if spec.duration, err = checkScaled(d.Kind, "duration", d.Duration); err != nil {
		return Spec{}, err
	}
	if spec.magnitude, err = checkScaled(d.Kind, "magnitude", d.Magnitude); err != nil {
		return Spec{}, err
	}
	if d.Secondary != nil {
		if spec.secondary, err = checkScaled(d.Kind, "secondary", *d.Secondary); err != nil {
			return Spec{}, err
		}
	}
	if d.StackCap != nil {
		if spec.stackCap, err = checkScaled(d.Kind, "stackCap", *d.StackCap); err != nil {
			return Spec{}, err
		}
		spec.hasCap = true
	}
	if d.UntilUsed && spec.Instant() {
		return Spec{}, fmt.Errorf("%w: instant %s cannot be held until used", ErrMalformedRegistry, d.Kind)
	}
	if d.Policy == gamedata.StackAdditive && !spec.hasCap {
		return Spec{}, fmt.Errorf("%w: additive %s needs a stackCap", ErrMalformedRegistry, d.Kind)
	}
	for _, g := range d.Grants {
		if g == d.Kind {
			return Spec{}, fmt.Errorf("%w: %s grants immunity to itself", ErrMalformedRegistry, d.Kind)
		}
	}
	return spec, nil
}

func checkScaled(kind gamedata.EffectKind, field string, v gamedata.ScaledDef) (scaled, error) {
	if v.Base < 0 {
		return scaled{}, fmt.Errorf("%w: %s %s base is negative", ErrMalformedRegistry, kind, field)
	}
	prevTier, prevValue := 0, math.Inf(-1)
	for _, s := range v.Steps {
		if s.Tier < gamedata.MinTier || s.Tier > gamedata.MaxTier {
			return scaled{}, fmt.Errorf("%w: %s %s step at tier %d", ErrMalformedRegistry, kind, field, s.Tier)
		}
		if s.Tier <= prevTier {
			return scaled{}, fmt.Errorf("%w: %s %s steps out of order", ErrMalformedRegistry, kind, field)
		}
		if s.Value < prevValue {
			return scaled{}, fmt.Errorf("%w: %s %s step function decreases at tier %d",
				ErrMalformedRegistry, kind, field, s.Tier)
		}
		prevTier, prevValue = s.Tier, s.Value
	}
	return scaled{base: v.Base, steps: append([]gamedata.StepDef(nil), v.Steps...)}, nil
}

// Spec returns the definition of kind.
func (r *Registry) Spec(kind gamedata.EffectKind) (Spec, bool) {
	s, ok := r.specs[kind]
	return s, ok
}

// TargetOf returns who kind lands on.
func (r *Registry) TargetOf(kind gamedata.EffectKind) Target {
	return r.specs[kind].Target
}

// Check verifies a resumed effect against its kind's definition.
func (r *Registry) Check(e ActiveEffect) error {
	spec, ok := r.specs[e.Kind]
	if !ok {
		return fmt.Errorf("effect %q: %w", e.Kind, gamedata.ErrUnknownKey)
	}
	if spec.Instant() {
		return fmt.Errorf("%w: instant %s cannot persist", ErrInvalidEffect, e.Kind)
	}
	if err := tier.Valid(e.SourceTier); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidEffect, e.Kind, err)
	}
	if e.RemainingTurns <= 0 || e.Stacks <= 0 {
		return fmt.Errorf("%w: %s turns=%d stacks=%d", ErrInvalidEffect, e.Kind, e.RemainingTurns, e.Stacks)
	}
	if limit := spec.StackCap(e.SourceTier); e.Stacks > limit {
		return fmt.Errorf("%w: %s has %d stacks, cap %d", ErrInvalidEffect, e.Kind, e.Stacks, limit)
	}
	return nil
}

// ============================================================================
// Apply
// ============================================================================

// AppliedDelta reports the result of one application.
type AppliedDelta struct {
	Kind           gamedata.EffectKind `json:"kind"`
	Outcome        Outcome             `json:"outcome"`
	Stacks         int                 `json:"stacks,omitempty"`
	RemainingTurns int                 `json:"remainingTurns,omitempty"`
	Magnitude      float64             `json:"magnitude,omitempty"`
	Damage         int                 `json:"damage,omitempty"` // instant effects only
	SuppressedBy   gamedata.EffectKind `json:"suppressedBy,omitempty"`
}

// ApplyOption adjusts a single application.
type ApplyOption func(*applyOptions)

type applyOptions struct {
	turns int
}

// WithTurns overrides the tier-scaled duration. Values <= 0 are ignored.
func WithTurns(n int) ApplyOption {
	return func(o *applyOptions) {
		if n > 0 {
			o.turns = n
		}
	}
}

// Apply attaches kind to the holder following the kind's stacking policy.
// Immunity is not an error: the delta reports OutcomeSuppressed and the set
// is left unchanged. Instant kinds never enter the set; their damage is
// reported for the caller to deal.
func (r *Registry) Apply(h Holder, kind gamedata.EffectKind, sourceTier int, opts ...ApplyOption) (AppliedDelta, error) {
	spec, ok := r.specs[kind]
	if !ok {
		return AppliedDelta{}, fmt.Errorf("effect %q: %w", kind, gamedata.ErrUnknownKey)
	}
	if err := tier.Valid(sourceTier); err != nil {
		return AppliedDelta{}, err
	}
	var o applyOptions
	for _, opt := range opts {
		opt(&o)
	}

	set := h.Effects()
	if by, immune := r.immunity(set, kind); immune {
		return AppliedDelta{Kind: kind, Outcome: OutcomeSuppressed, SuppressedBy: by}, nil
	}

	magnitude := spec.Magnitude(sourceTier)
	if spec.Instant() && o.turns == 0 {
		secondary := spec.Secondary(sourceTier)
		if secondary == 0 {
			secondary = 1
		}
		return AppliedDelta{
			Kind:      kind,
			Outcome:   OutcomeInstant,
			Magnitude: magnitude,
			Damage:    int(math.Round(magnitude * secondary)),
		}, nil
	}

	turns := spec.Duration(sourceTier)
	if o.turns > 0 {
		turns = o.turns
	}
	fresh := ActiveEffect{
		Kind:           kind,
		RemainingTurns: turns,
		Stacks:         1,
		SourceTier:     sourceTier,
		Magnitude:      magnitude,
		Secondary:      spec.Secondary(sourceTier),
	}
	if spec.Charges {
		fresh.Stacks = spec.StackCap(sourceTier)
	}

	existing, present := set.Get(kind)
	outcome := OutcomeAdded
	next := fresh

	if present {
		switch spec.Policy {
		case gamedata.StackRefresh:
			next = existing
			next.RemainingTurns = max(existing.RemainingTurns, turns)
			outcome = OutcomeRefreshed
		case gamedata.StackAdditive:
			next = existing
			next.RemainingTurns = max(existing.RemainingTurns, turns)
			if next.Stacks < spec.StackCap(sourceTier) {
				next.Stacks++
				outcome = OutcomeStacked
			} else {
				outcome = OutcomeCapReached
			}
		default:
			outcome = OutcomeReplaced
		}
	}

	set.put(next)
	return AppliedDelta{
		Kind:           kind,
		Outcome:        outcome,
		Stacks:         next.Stacks,
		RemainingTurns: next.RemainingTurns,
		Magnitude:      next.Magnitude,
	}, nil
}

func (r *Registry) immunity(set *Set, kind gamedata.EffectKind) (gamedata.EffectKind, bool) {
	for _, active := range set.All() {
		for _, g := range r.specs[active.Kind].grants {
			if g == kind {
				return active.Kind, true
			}
		}
	}
	return "", false
}

// ============================================================================
// Tick
// ============================================================================

// TickDelta is what one effect did at the end of a turn.
type TickDelta struct {
	Kind           gamedata.EffectKind `json:"kind"`
	Damage         int                 `json:"damage,omitempty"`
	Healing        int                 `json:"healing,omitempty"`
	RemainingTurns int                 `json:"remainingTurns"`
	Expired        bool                `json:"expired,omitempty"`
}

// Tick decrements every effect on the holder, removes those that reach zero
// and returns exactly one delta per effect processed. Effects held until used
// are skipped. HP changes are reported, not applied.
func (r *Registry) Tick(h Holder) []TickDelta {
	set := h.Effects()
	if set.Len() == 0 {
		return nil
	}

	maxHP := h.GetMaxHP()
	deltas := make([]TickDelta, 0, set.Len())
	kept := set.items[:0]

	for _, e := range set.items {
		if r.specs[e.Kind].UntilUsed {
			kept = append(kept, e)
			continue
		}
		e.RemainingTurns--
		d := TickDelta{Kind: e.Kind, RemainingTurns: max(0, e.RemainingTurns)}

		switch e.Kind {
		case gamedata.EffectBurn, gamedata.EffectPoison:
			d.Damage = max(1, int(math.Round(float64(maxHP)*e.Magnitude*float64(e.Stacks))))
		case gamedata.EffectRegeneration:
			d.Healing = int(math.Round(float64(maxHP) * e.Magnitude))
		case gamedata.EffectTemporalShift:
			if e.RemainingTurns <= 0 {
				d.Damage = int(math.Round(float64(e.Banked) * e.Magnitude))
			}
		}

		if e.RemainingTurns <= 0 {
			d.Expired = true
		} else {
			kept = append(kept, e)
		}
		deltas = append(deltas, d)
	}
	set.items = kept
	return deltas
}

// ============================================================================
// Modifiers
// ============================================================================

// Modifiers is the combat-relevant summary of an effect set.
type Modifiers struct {
	// Attack multiplies outgoing damage; 1 means unmodified.
	Attack float64
	// Overcharge multiplies the next offensive ability; 0 when inactive.
	Overcharge float64
	// Vulnerability is the additive fraction of extra damage taken.
	Vulnerability float64
	// Weakness multiplies damage from the opposing element; 0 when inactive.
	Weakness float64
	// Resistance is the fraction of incoming damage prevented.
	Resistance float64
	// Counter is the fraction of a hit reflected back; 0 when inactive.
	Counter float64
	// PerfectCounter is the number of full reflections left.
	PerfectCounter int
	// PerfectCounterHeal is the fraction of a reflected hit healed.
	PerfectCounterHeal float64
	// TemporalShift is set while incoming damage is being banked.
	TemporalShift bool
}

// Neutral returns modifiers that leave a hit unchanged.
func Neutral() Modifiers {
	return Modifiers{Attack: 1}
}

// Modifiers folds the set into combat multipliers.
func (r *Registry) Modifiers(set *Set) Modifiers {
	m := Neutral()
	for _, e := range set.All() {
		stacks := float64(max(1, e.Stacks))
		switch e.Kind {
		case gamedata.EffectAttackBoost, gamedata.EffectElementalResonance:
			m.Attack += e.Magnitude
		case gamedata.EffectBerserkerRage:
			m.Attack += e.Magnitude * stacks
			m.Vulnerability += e.Secondary * stacks
		case gamedata.EffectWeakened, gamedata.EffectPowerSiphon:
			m.Attack -= e.Magnitude
		case gamedata.EffectDefenseBoost:
			m.Resistance += e.Magnitude
		case gamedata.EffectVulnerabilityMark:
			m.Vulnerability += e.Magnitude * stacks
		case gamedata.EffectElementalWeakness:
			m.Weakness = e.Magnitude
		case gamedata.EffectOvercharge:
			m.Overcharge = e.Magnitude
		case gamedata.EffectCounterStance:
			m.Counter = e.Magnitude
		case gamedata.EffectPerfectCounter:
			m.PerfectCounter = e.Stacks
			m.PerfectCounterHeal = e.Magnitude
		case gamedata.EffectTemporalShift:
			m.TemporalShift = true
		}
	}
	m.Attack = max(0, m.Attack)
	m.Resistance = min(0.9, m.Resistance)
	return m
}
