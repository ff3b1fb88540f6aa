package condition

// Phase identifies where in an invocation a condition sweep runs.
// It is part of every violation report: (phase, index) pins down the
// exact broken promise.
type Phase string

const (
	// PhasePrecondition runs before the wrapped callable, against bound
	// arguments only.
	PhasePrecondition Phase = "precondition"

	// PhasePostcondition runs after the wrapped callable, against
	// arguments, result, and (for methods) the receiver.
	PhasePostcondition Phase = "postcondition"

	// PhasePostConstruction runs once after a constructor body completes.
	PhasePostConstruction Phase = "post_construction"

	// PhasePreOperation runs before every public operation on a guarded
	// object.
	PhasePreOperation Phase = "pre_operation"

	// PhasePostOperation runs after every public operation on a guarded
	// object, minus conditions the operation's own postconditions
	// already established.
	PhasePostOperation Phase = "post_operation"

	// PhasePreDestruction runs once immediately before teardown.
	PhasePreDestruction Phase = "pre_destruction"
)

// Outcome classifies a single condition evaluation for observers.
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"

	// OutcomeSkip records a condition not evaluated because a merge plan
	// proved it redundant. Skips are observable so tests can verify the
	// optimization changes evaluation counts and nothing else.
	OutcomeSkip Outcome = "skip"
)

// CheckEvent describes one condition evaluation (or merge skip).
type CheckEvent struct {
	Unit     string  `json:"unit"`
	Instance string  `json:"instance,omitempty"`
	Phase    Phase   `json:"phase"`
	Index    int     `json:"index"`
	Label    string  `json:"label"`
	Outcome  Outcome `json:"outcome"`
	Detail   string  `json:"detail,omitempty"`
}

// Observer receives check events as they happen. Implementations must
// be cheap and must not fail the invocation; the journal sink logs and
// drops its own write errors.
//
// Observers are never called in Unchecked mode.
type Observer interface {
	Observe(ev CheckEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev CheckEvent)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev CheckEvent) { f(ev) }
