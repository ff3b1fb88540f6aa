package condition

import (
	"fmt"
)

// EvaluationError reports a condition that could not be evaluated:
// the predicate itself failed or panicked, or the condition was
// malformed at declaration time (nil predicate, precondition declaring
// a result dependency).
//
// This is a defect in the condition, not a broken promise by the
// checked code, so it is kept distinct from contract and invariant
// violations.
type EvaluationError struct {
	Phase Phase
	Index int
	Label string
	Cause error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("condition %d (%s) in %s phase cannot be evaluated: %v",
		e.Index, e.Label, e.Phase, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error { return e.Cause }

// Eval runs a single condition against a context record.
// A panicking predicate is recovered and surfaced as an error; the
// caller wraps it into an EvaluationError with phase and index.
func Eval(c Condition, cctx Context) (ok bool, err error) {
	if c.pred == nil {
		return false, fmt.Errorf("nil predicate")
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return c.pred(cctx)
}

// Sweep evaluates conditions in declaration order, short-circuiting on
// the first failure.
//
// Return values:
//   - (-1, nil): every condition passed
//   - (i, nil): condition i evaluated to false; later conditions did not run
//   - (i, *EvaluationError): condition i could not be evaluated
//
// skip, when non-nil, marks indexes to bypass; obs, when non-nil,
// receives one event per condition (including skips).
func Sweep(conds []Condition, cctx Context, phase Phase, unit, instance string, skip []bool, obs Observer) (int, error) {
	for i, c := range conds {
		if skip != nil && i < len(skip) && skip[i] {
			if obs != nil {
				obs.Observe(CheckEvent{
					Unit: unit, Instance: instance, Phase: phase,
					Index: i, Label: c.label, Outcome: OutcomeSkip,
				})
			}
			continue
		}

		ok, err := Eval(c, cctx)
		if err != nil {
			if obs != nil {
				obs.Observe(CheckEvent{
					Unit: unit, Instance: instance, Phase: phase,
					Index: i, Label: c.label, Outcome: OutcomeError,
					Detail: err.Error(),
				})
			}
			return i, &EvaluationError{Phase: phase, Index: i, Label: c.label, Cause: err}
		}

		if !ok {
			if obs != nil {
				obs.Observe(CheckEvent{
					Unit: unit, Instance: instance, Phase: phase,
					Index: i, Label: c.label, Outcome: OutcomeFail,
				})
			}
			return i, nil
		}

		if obs != nil {
			obs.Observe(CheckEvent{
				Unit: unit, Instance: instance, Phase: phase,
				Index: i, Label: c.label, Outcome: OutcomePass,
			})
		}
	}
	return -1, nil
}
