package invariant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/contract"
	"github.com/roach88/ironclad/pkg/enforce"
)

// State is the lifecycle position of a guarded instance.
type State int

const (
	// StateUninitialized: construction has not completed successfully.
	StateUninitialized State = iota

	// StateValid: invariants held at the last sweep; operations proceed.
	StateValid

	// StateInvalid: an invariant failed while the instance was live.
	// The instance is poisoned; every later operation fails immediately
	// with the original violation, without running business logic.
	StateInvalid

	// StateDestroyed: teardown ran. Terminal.
	StateDestroyed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Guard attaches an invariant spec to one instance of T and runs the
// spec's conditions after construction, around every public operation,
// and before destruction.
//
// Checking is invocation-synchronous: every sweep runs inline on the
// calling goroutine. The guard provides NO mutual exclusion of its own.
// If instances are shared across goroutines, the caller's own
// synchronization discipline must guarantee the before/after snapshots
// the guard reads are not torn by a concurrent writer.
type Guard[T any] struct {
	id    string
	spec  *Spec
	obj   T
	state State
	fault *Violation // the poisoning violation, kept for fast-fail replies

	obs     condition.Observer
	noMerge bool
	plans   map[*contract.Spec]*MergePlan
}

// GuardOption configures a guard at construction time.
type GuardOption func(*guardConfig)

type guardConfig struct {
	obs     condition.Observer
	noMerge bool
	id      string
}

// WithObserver attaches an observer receiving one event per invariant
// condition evaluation (including merge skips).
func WithObserver(obs condition.Observer) GuardOption {
	return func(c *guardConfig) { c.obs = obs }
}

// WithoutMerge disables merge plans: every post-operation sweep
// re-evaluates the full invariant list. Outcomes are identical with or
// without merging; only evaluation counts differ.
func WithoutMerge() GuardOption {
	return func(c *guardConfig) { c.noMerge = true }
}

// WithInstanceID overrides the generated instance identifier.
// Used by the harness for deterministic traces.
func WithInstanceID(id string) GuardOption {
	return func(c *guardConfig) { c.id = id }
}

// New constructs an instance through ctor and, if construction
// succeeds, evaluates the invariant spec against the fresh receiver.
//
// A ctor failure short-circuits: no sweep runs, no guard is returned,
// and the instance is never observed in the Valid state.
//
// A post-construction invariant failure returns both the poisoned
// guard and the violation: the guard exists but rejects every
// subsequent operation with the original violation.
func New[T any](spec *Spec, ctor func() (T, error), opts ...GuardOption) (*Guard[T], error) {
	cfg := guardConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	obj, err := ctor()
	if err != nil {
		return nil, err
	}

	g := &Guard[T]{
		id:      cfg.id,
		spec:    spec,
		obj:     obj,
		state:   StateValid,
		obs:     cfg.obs,
		noMerge: cfg.noMerge,
		plans:   make(map[*contract.Spec]*MergePlan),
	}

	if !enforce.Enabled() {
		return g, nil
	}

	if v := g.sweep(condition.PhasePostConstruction, "", nil); v != nil {
		g.poison(v)
		return g, v
	}
	return g, nil
}

// ID returns the instance identifier carried in violation reports.
func (g *Guard[T]) ID() string { return g.id }

// Unit returns the guarded type identifier.
func (g *Guard[T]) Unit() string { return g.spec.unit }

// State returns the current lifecycle state.
func (g *Guard[T]) State() State { return g.state }

// Get returns a snapshot of the instance after a pre-operation
// invariant sweep. Reads count as public surface access: a violation
// introduced behind the guard's back is caught here.
func (g *Guard[T]) Get() (T, error) {
	var zero T
	if !enforce.Enabled() {
		return g.obj, nil
	}
	if err := g.gate(); err != nil {
		return zero, err
	}
	if v := g.sweep(condition.PhasePreOperation, "", nil); v != nil {
		g.poison(v)
		return zero, v
	}
	return g.obj, nil
}

// Do runs a public method: pre-operation invariant sweep, the method's
// own contract (preconditions, body, postconditions), then the
// post-operation invariant sweep minus conditions the method's
// postconditions established.
//
// cspec may be nil for methods without a declared contract; the
// invariant sweeps still run. The body receives a pointer to the
// guarded instance and the bound arguments.
func (g *Guard[T]) Do(
	ctx context.Context,
	op string,
	cspec *contract.Spec,
	args map[string]any,
	body func(ctx context.Context, obj *T, args map[string]any) (any, error),
) (any, error) {
	if !enforce.Enabled() {
		return body(ctx, &g.obj, args)
	}

	if err := g.gate(); err != nil {
		return nil, err
	}

	// Catches corruption introduced by prior operations outside the
	// guard's control, e.g. direct field mutation bypassing a setter.
	if v := g.sweep(condition.PhasePreOperation, op, nil); v != nil {
		g.poison(v)
		return nil, v
	}

	if cspec != nil {
		pre := condition.Context{Args: args, Receiver: g.obj, HasReceiver: true}
		if err := cspec.EvalPre(pre, g.id); err != nil {
			// Caller's broken promise; the instance itself is untouched.
			return nil, err
		}
	}

	result, err := body(ctx, &g.obj, args)
	if err != nil {
		// Downstream failure: propagate, next operation's pre-sweep
		// re-validates whatever state the body left behind.
		return nil, &contract.InternalFailure{Unit: g.opUnit(op), Err: err}
	}

	var skips []bool
	if cspec != nil {
		post := condition.Context{
			Args: args, Result: result, HasResult: true,
			Receiver: g.obj, HasReceiver: true,
		}
		if err := cspec.EvalPost(post, g.id); err != nil {
			// Fatal: the computed result is discarded.
			return nil, err
		}
		if !g.noMerge {
			skips = g.planFor(cspec).Skips()
		}
	}

	if v := g.sweep(condition.PhasePostOperation, op, skips); v != nil {
		g.poison(v)
		return nil, v
	}

	return result, nil
}

// Update runs a public attribute mutation with invariant sweeps before
// and after. There is no contract and therefore no merge: the full
// invariant list is re-evaluated.
func (g *Guard[T]) Update(op string, mutate func(obj *T) error) error {
	if !enforce.Enabled() {
		return mutate(&g.obj)
	}

	if err := g.gate(); err != nil {
		return err
	}
	if v := g.sweep(condition.PhasePreOperation, op, nil); v != nil {
		g.poison(v)
		return v
	}

	if err := mutate(&g.obj); err != nil {
		return &contract.InternalFailure{Unit: g.opUnit(op), Err: err}
	}

	if v := g.sweep(condition.PhasePostOperation, op, nil); v != nil {
		g.poison(v)
		return v
	}
	return nil
}

// Destroy tears the instance down. The invariant list is evaluated one
// last time, but teardown is unconditional: release functions run and
// the guard transitions to Destroyed even when the final sweep fails,
// so a broken invariant can never leak resources. The sweep failure is
// still returned (and logged) for reporting.
//
// Destroy is idempotent; a second call is a no-op.
func (g *Guard[T]) Destroy(ctx context.Context, release ...func(obj *T) error) error {
	if g.state == StateDestroyed {
		return nil
	}

	var sweepErr error
	if enforce.Enabled() && g.state == StateValid {
		if v := g.sweep(condition.PhasePreDestruction, "", nil); v != nil {
			sweepErr = v
			slog.Warn("invariant violated at teardown; releasing anyway",
				"unit", g.spec.unit,
				"instance", g.id,
				"index", v.Index,
				"label", v.Label,
			)
		}
	}

	var releaseErr error
	for _, rel := range release {
		if err := rel(&g.obj); err != nil && releaseErr == nil {
			releaseErr = err
		}
	}

	g.state = StateDestroyed

	if sweepErr != nil {
		return sweepErr
	}
	return releaseErr
}

// gate rejects operations on guards that are not in the Valid state.
// Poisoned guards reply with the violation that poisoned them.
func (g *Guard[T]) gate() error {
	switch g.state {
	case StateValid:
		return nil
	case StateInvalid:
		return g.fault
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotConstructed
	}
}

// sweep evaluates the invariant list against the current receiver
// snapshot and converts a failure into a Violation.
func (g *Guard[T]) sweep(phase condition.Phase, op string, skips []bool) *Violation {
	cctx := condition.Context{Receiver: g.obj, HasReceiver: true}
	idx, err := condition.Sweep(g.spec.conds, cctx, phase, g.spec.unit, g.id, skips, g.obs)
	if err != nil {
		// A broken invariant predicate is as fatal as a failing one:
		// the promise cannot be shown to hold.
		var label string
		if idx >= 0 && idx < len(g.spec.conds) {
			label = g.spec.conds[idx].Label()
		}
		return &Violation{
			Unit: g.spec.unit, Instance: g.id, Phase: phase,
			Index: idx, Label: label, Op: op, Cause: err,
		}
	}
	if idx >= 0 {
		return &Violation{
			Unit: g.spec.unit, Instance: g.id, Phase: phase,
			Index: idx, Label: g.spec.conds[idx].Label(), Op: op,
		}
	}
	return nil
}

// poison transitions the guard to the terminal Invalid state.
func (g *Guard[T]) poison(v *Violation) {
	g.state = StateInvalid
	g.fault = v
	slog.Error("instance poisoned",
		"unit", g.spec.unit,
		"instance", g.id,
		"phase", string(v.Phase),
		"index", v.Index,
		"label", v.Label,
	)
}

// planFor returns the merge plan for a method contract, building and
// caching it on first use. Plans are keyed by spec identity: specs are
// immutable after construction, so the derived plan never goes stale.
func (g *Guard[T]) planFor(cs *contract.Spec) *MergePlan {
	if p, ok := g.plans[cs]; ok {
		return p
	}
	p := BuildMergePlan(g.spec, cs)
	g.plans[cs] = p
	return p
}

// opUnit names an operation for internal failure reports.
func (g *Guard[T]) opUnit(op string) string {
	if op == "" {
		return g.spec.unit
	}
	return g.spec.unit + "." + op
}
