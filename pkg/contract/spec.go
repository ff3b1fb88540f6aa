// Package contract wraps callables with ordered precondition and
// postcondition lists and evaluates them around each invocation.
//
// The wrapper never pollutes the wrapped logic: a callable keeps its
// own signature and body, and checking attaches at the call boundary.
// When the process-wide enforcement mode is Unchecked, a wrapped
// callable degrades to a direct passthrough with no condition ever
// evaluated.
package contract

import (
	"fmt"

	"github.com/roach88/ironclad/pkg/condition"
)

// Spec is the declared contract of exactly one callable: ordered
// preconditions and postconditions. Immutable after NewSpec returns.
//
// Callables without a declared contract have an implicit empty one;
// Wrap accepts a nil Spec and checks nothing beyond mode.
type Spec struct {
	unit string
	pre  []condition.Condition
	post []condition.Condition
	obs  condition.Observer
}

// SpecOption configures a Spec at declaration time.
type SpecOption func(*Spec)

// Requires appends preconditions in declaration order.
func Requires(conds ...condition.Condition) SpecOption {
	return func(s *Spec) { s.pre = append(s.pre, conds...) }
}

// Ensures appends postconditions in declaration order.
func Ensures(conds ...condition.Condition) SpecOption {
	return func(s *Spec) { s.post = append(s.post, conds...) }
}

// WithObserver attaches an observer receiving one event per condition
// evaluation. Observers are never called in Unchecked mode.
func WithObserver(obs condition.Observer) SpecOption {
	return func(s *Spec) { s.obs = obs }
}

// NewSpec builds and validates a contract for the named unit.
//
// Declaration-time defects fail here, not at first use:
//   - a condition with a nil predicate
//   - a precondition declaring a result dependency (preconditions run
//     before the callable; there is no result to read)
func NewSpec(unit string, opts ...SpecOption) (*Spec, error) {
	if unit == "" {
		return nil, fmt.Errorf("contract: unit identifier is required")
	}

	s := &Spec{unit: unit}
	for _, opt := range opts {
		opt(s)
	}

	for i, c := range s.pre {
		if !c.Valid() {
			return nil, &condition.EvaluationError{
				Phase: condition.PhasePrecondition, Index: i, Label: c.Label(),
				Cause: fmt.Errorf("nil predicate"),
			}
		}
		if c.NeedsResult() {
			return nil, &condition.EvaluationError{
				Phase: condition.PhasePrecondition, Index: i, Label: c.Label(),
				Cause: fmt.Errorf("precondition cannot reference the result"),
			}
		}
	}
	for i, c := range s.post {
		if !c.Valid() {
			return nil, &condition.EvaluationError{
				Phase: condition.PhasePostcondition, Index: i, Label: c.Label(),
				Cause: fmt.Errorf("nil predicate"),
			}
		}
	}

	return s, nil
}

// MustSpec is NewSpec for static declarations; it panics on a
// declaration-time defect.
func MustSpec(unit string, opts ...SpecOption) *Spec {
	s, err := NewSpec(unit, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Unit returns the callable identifier this contract is attached to.
func (s *Spec) Unit() string { return s.unit }

// Preconditions returns the ordered precondition list.
// The returned slice must not be mutated.
func (s *Spec) Preconditions() []condition.Condition { return s.pre }

// Postconditions returns the ordered postcondition list.
// The returned slice must not be mutated.
func (s *Spec) Postconditions() []condition.Condition { return s.post }

// Observer returns the attached observer, or nil.
func (s *Spec) Observer() condition.Observer { return s.obs }

// EvalPre sweeps the preconditions against a context record.
// Returns nil when all pass, a *Violation on the first failing
// condition, or a *condition.EvaluationError for a broken predicate.
//
// Used by Wrap and by invariant guards that merge a method's contract
// into their own sweeps.
func (s *Spec) EvalPre(cctx condition.Context, instance string) error {
	idx, err := condition.Sweep(s.pre, cctx, condition.PhasePrecondition, s.unit, instance, nil, s.obs)
	if err != nil {
		return err
	}
	if idx >= 0 {
		return &Violation{
			Unit: s.unit, Phase: condition.PhasePrecondition,
			Index: idx, Label: s.pre[idx].Label(),
		}
	}
	return nil
}

// EvalPost sweeps the postconditions against a context record. Same
// return convention as EvalPre.
func (s *Spec) EvalPost(cctx condition.Context, instance string) error {
	idx, err := condition.Sweep(s.post, cctx, condition.PhasePostcondition, s.unit, instance, nil, s.obs)
	if err != nil {
		return err
	}
	if idx >= 0 {
		return &Violation{
			Unit: s.unit, Phase: condition.PhasePostcondition,
			Index: idx, Label: s.post[idx].Label(),
		}
	}
	return nil
}
