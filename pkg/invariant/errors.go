package invariant

import (
	"errors"
	"fmt"

	"github.com/roach88/ironclad/pkg/condition"
)

// Violation reports a broken promise about object state.
//
// Like contract violations these are programming defects: they
// propagate unrecovered, are never retried, and poison the guarded
// instance so later operations fail fast instead of running business
// logic on corrupt state.
type Violation struct {
	// Unit identifies the guarded type ("geometry.triangle").
	Unit string

	// Instance identifies the specific guarded object.
	Instance string

	// Phase is one of PostConstruction, PreOperation, PostOperation,
	// PreDestruction.
	Phase condition.Phase

	// Index is the declaration-order index of the first failing
	// invariant condition.
	Index int

	// Label names the broken promise.
	Label string

	// Op is the public operation in flight, empty for construction and
	// destruction sweeps.
	Op string

	// Cause is set when the condition could not be evaluated at all
	// (the underlying *condition.EvaluationError). An unevaluable
	// invariant is treated as broken: the promise cannot be shown to
	// hold.
	Cause error
}

// Unwrap returns the evaluation error underneath, if any.
func (e *Violation) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *Violation) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("invariant violation: %s.%s %s[%d] (%s) instance=%s",
			e.Unit, e.Op, e.Phase, e.Index, e.Label, e.Instance)
	}
	return fmt.Sprintf("invariant violation: %s %s[%d] (%s) instance=%s",
		e.Unit, e.Phase, e.Index, e.Label, e.Instance)
}

// IsViolation reports whether err is (or wraps) an invariant violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// ErrDestroyed is returned for any operation on a guard after teardown.
var ErrDestroyed = errors.New("invariant: instance already destroyed")

// ErrNotConstructed is returned when a guard is used before New
// completed successfully.
var ErrNotConstructed = errors.New("invariant: instance was never constructed")
