package harness

import (
	"errors"

	"github.com/roach88/ironclad/pkg/condition"
	"github.com/roach88/ironclad/pkg/contract"
	"github.com/roach88/ironclad/pkg/invariant"
)

// Step outcome classifications.
const (
	// OutcomeOK: the step completed without error.
	OutcomeOK = "ok"

	// OutcomeContractViolation: a precondition or postcondition failed.
	OutcomeContractViolation = "contract_violation"

	// OutcomeInvariantViolation: an invariant sweep failed; the
	// instance is poisoned (or, for a poisoned instance, the original
	// violation replayed).
	OutcomeInvariantViolation = "invariant_violation"

	// OutcomeEvaluationError: a condition could not be evaluated at all.
	OutcomeEvaluationError = "evaluation_error"

	// OutcomeInternalFailure: the operation body itself failed.
	OutcomeInternalFailure = "internal_failure"

	// OutcomeDestroyed: the operation hit an already-destroyed instance.
	OutcomeDestroyed = "destroyed"

	// OutcomeError: any other error.
	OutcomeError = "error"
)

// StepOutcome is the classified result of one step.
type StepOutcome struct {
	Outcome string
	Phase   string
	Index   int
	Label   string
	Detail  string
}

// Classify maps a step error onto the outcome taxonomy. Violations are
// checked before evaluation errors: a poisoning violation may carry an
// evaluation error as its cause, and the violation is the reportable
// fact.
func Classify(err error) StepOutcome {
	if err == nil {
		return StepOutcome{Outcome: OutcomeOK, Index: -1}
	}

	var iv *invariant.Violation
	if errors.As(err, &iv) {
		return StepOutcome{
			Outcome: OutcomeInvariantViolation,
			Phase:   string(iv.Phase), Index: iv.Index, Label: iv.Label,
		}
	}

	var cv *contract.Violation
	if errors.As(err, &cv) {
		return StepOutcome{
			Outcome: OutcomeContractViolation,
			Phase:   string(cv.Phase), Index: cv.Index, Label: cv.Label,
		}
	}

	var ee *condition.EvaluationError
	if errors.As(err, &ee) {
		return StepOutcome{
			Outcome: OutcomeEvaluationError,
			Phase:   string(ee.Phase), Index: ee.Index, Label: ee.Label,
			Detail: err.Error(),
		}
	}

	if errors.Is(err, invariant.ErrDestroyed) {
		return StepOutcome{Outcome: OutcomeDestroyed, Index: -1, Detail: err.Error()}
	}

	var inf *contract.InternalFailure
	if errors.As(err, &inf) {
		return StepOutcome{Outcome: OutcomeInternalFailure, Index: -1, Detail: err.Error()}
	}

	return StepOutcome{Outcome: OutcomeError, Index: -1, Detail: err.Error()}
}
