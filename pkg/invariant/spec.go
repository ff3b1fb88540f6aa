// Package invariant enforces object invariants across construction,
// every public operation, and destruction of a guarded instance.
//
// An invariant spec is an ordered list of conditions over a receiver
// snapshot. Subtypes extend a base spec by appending conditions; the
// composition is materialized once per type, not recomputed per call,
// and inherited conditions can never be removed.
//
// The Guard type wires a spec to one instance and drives the
// {Uninitialized, Valid, Invalid, Destroyed} state machine around the
// instance's public surface.
package invariant

import (
	"fmt"

	"github.com/roach88/ironclad/pkg/condition"
)

// Spec is the declared invariant of exactly one stateful type:
// ordered conditions evaluated against a receiver snapshot.
// Immutable after construction; Extend returns a new Spec.
type Spec struct {
	unit  string
	conds []condition.Condition
}

// NewSpec declares invariants for the named type.
//
// Like contract specs, declaration-time defects fail here: a condition
// with a nil predicate or one declaring a result dependency (invariants
// never see a call result) is rejected.
func NewSpec(unit string, conds ...condition.Condition) (*Spec, error) {
	if unit == "" {
		return nil, fmt.Errorf("invariant: unit identifier is required")
	}
	s := &Spec{unit: unit, conds: append([]condition.Condition(nil), conds...)}
	if err := s.validate(0); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSpec is NewSpec for static declarations; it panics on a
// declaration-time defect.
func MustSpec(unit string, conds ...condition.Condition) *Spec {
	s, err := NewSpec(unit, conds...)
	if err != nil {
		panic(err)
	}
	return s
}

// Extend produces the invariant spec of a subtype: the base conditions
// followed by the additional ones, in declaration order.
//
// Extension is append-only and associative. Extending base=[A] with [B]
// and the result with [C] yields the same [A, B, C] as extending
// base=[A] with [B, C] directly. The base spec is never mutated, so an
// extension can never remove inherited conditions.
func Extend(base *Spec, unit string, additional ...condition.Condition) (*Spec, error) {
	if base == nil {
		return NewSpec(unit, additional...)
	}
	if unit == "" {
		unit = base.unit
	}

	conds := make([]condition.Condition, 0, len(base.conds)+len(additional))
	conds = append(conds, base.conds...)
	conds = append(conds, additional...)

	s := &Spec{unit: unit, conds: conds}
	if err := s.validate(len(base.conds)); err != nil {
		return nil, err
	}
	return s, nil
}

// validate checks conditions from index start onward; earlier ones were
// validated when the base spec was built.
func (s *Spec) validate(start int) error {
	for i := start; i < len(s.conds); i++ {
		c := s.conds[i]
		if !c.Valid() {
			return &condition.EvaluationError{
				Phase: condition.PhasePostConstruction, Index: i, Label: c.Label(),
				Cause: fmt.Errorf("nil predicate"),
			}
		}
		if c.NeedsResult() {
			return &condition.EvaluationError{
				Phase: condition.PhasePostConstruction, Index: i, Label: c.Label(),
				Cause: fmt.Errorf("invariant condition cannot reference a call result"),
			}
		}
	}
	return nil
}

// Unit returns the type identifier this invariant is attached to.
func (s *Spec) Unit() string { return s.unit }

// Conditions returns the ordered condition list, inherited conditions
// first. The returned slice must not be mutated.
func (s *Spec) Conditions() []condition.Condition { return s.conds }

// Len returns the number of conditions.
func (s *Spec) Len() int { return len(s.conds) }
