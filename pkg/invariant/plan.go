package invariant

import (
	"github.com/roach88/ironclad/pkg/contract"
)

// MergePlan records which invariant conditions a method's own
// postconditions provably establish, so the post-operation sweep can
// skip them.
//
// The plan is a pure optimization cache: it is derived, rebuildable,
// and never a source of truth. An empty plan (skip nothing) is always
// correct; skipping a planned condition must never change an
// accept/reject outcome, only the evaluation count.
//
// Implication is declared, not inferred: a postcondition names the
// invariant labels it establishes via condition.Establishes. Anything
// not explicitly named is re-checked.
type MergePlan struct {
	skip []bool // indexed by invariant condition declaration order
}

// BuildMergePlan derives the plan for one (invariant, contract) pair.
// A nil contract spec yields the empty plan.
func BuildMergePlan(inv *Spec, cs *contract.Spec) *MergePlan {
	plan := &MergePlan{skip: make([]bool, inv.Len())}
	if cs == nil {
		return plan
	}

	established := make(map[string]bool)
	for _, post := range cs.Postconditions() {
		for _, label := range post.Establishes() {
			established[label] = true
		}
	}
	if len(established) == 0 {
		return plan
	}

	for i, c := range inv.Conditions() {
		if established[c.Label()] {
			plan.skip[i] = true
		}
	}
	return plan
}

// Skips returns the skip list indexed by invariant condition order,
// suitable for condition.Sweep. Nil for an all-false plan is not
// distinguished; callers pass the slice through unchanged.
func (p *MergePlan) Skips() []bool {
	if p == nil {
		return nil
	}
	return p.skip
}

// Empty reports whether the plan skips nothing.
func (p *MergePlan) Empty() bool {
	if p == nil {
		return true
	}
	for _, s := range p.skip {
		if s {
			return false
		}
	}
	return true
}
