package contract

import (
	"errors"
	"fmt"

	"github.com/roach88/ironclad/pkg/condition"
)

// Violation reports a broken promise at a callable's boundary: either
// the caller violated a precondition, or the callable's own output
// violated a postcondition.
//
// Violations are programming defects, not recoverable runtime
// conditions. They propagate unrecovered and terminate the current
// operation; the engine never retries and never swallows them.
type Violation struct {
	// Unit identifies the wrapped callable ("account.withdraw").
	Unit string

	// Phase is PhasePrecondition or PhasePostcondition.
	Phase condition.Phase

	// Index is the declaration-order index of the first failing
	// condition within its phase.
	Index int

	// Label names the broken promise.
	Label string
}

// Error implements the error interface.
func (e *Violation) Error() string {
	return fmt.Sprintf("contract violation: %s %s[%d] (%s)",
		e.Unit, e.Phase, e.Index, e.Label)
}

// IsViolation reports whether err is (or wraps) a contract violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// InternalFailure wraps an error raised by the wrapped logic itself.
//
// A downstream failure is not a contract violation: it is neither a
// broken promise by the caller nor by this callable's declared output.
// The cause is preserved unchanged, so errors.Is and errors.As reach
// through to whatever the underlying callable returned.
type InternalFailure struct {
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *InternalFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Unit, e.Err)
}

// Unwrap returns the underlying failure.
func (e *InternalFailure) Unwrap() error { return e.Err }
