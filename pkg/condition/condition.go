// Package condition defines the leaf unit of the enforcement engine: a
// single named predicate evaluated against an immutable context record.
//
// Conditions never close over mutable state. Everything a predicate may
// look at (call arguments, the call result, a receiver snapshot) arrives
// through the Context value, which removes aliasing hazards when guarded
// objects are shared across goroutines.
//
// Conditions are identified by their declaration order within a phase.
// Evaluation walks that order and short-circuits on the first failure,
// so the reported index is always the first broken promise.
package condition

// Context is the read-only record a predicate is evaluated against.
//
// Args is always present (possibly empty). Result and Receiver are
// phase-dependent: preconditions never see a result, and only conditions
// attached to stateful units see a receiver. HasResult and HasReceiver
// distinguish "absent" from a legitimate nil value.
type Context struct {
	Args map[string]any

	Result    any
	HasResult bool

	Receiver    any
	HasReceiver bool
}

// Predicate is a pure, side-effect-free check. It must not mutate
// anything reachable from the context record.
//
// A Predicate reports (false, nil) for an ordinary failed check and a
// non-nil error when it cannot decide at all (malformed input, missing
// field). The engine converts the latter into an EvaluationError.
type Predicate func(Context) (bool, error)

// Condition pairs a predicate with its declared needs. Immutable once
// registered with a contract or invariant spec.
type Condition struct {
	label       string
	pred        Predicate
	needsResult bool
	needsRecv   bool
	establishes []string
}

// Option configures a Condition at declaration time.
type Option func(*Condition)

// NeedsResult declares that the predicate reads Context.Result.
// A precondition carrying this declaration is rejected when the
// contract spec is built, not at first use.
func NeedsResult() Option {
	return func(c *Condition) { c.needsResult = true }
}

// NeedsReceiver declares that the predicate reads Context.Receiver.
func NeedsReceiver() Option {
	return func(c *Condition) { c.needsRecv = true }
}

// Establishes declares invariant condition labels this condition
// provably implies when it passes. Only meaningful on postconditions;
// invariant guards use it to build merge plans that skip the named
// invariant checks after the method runs.
func Establishes(labels ...string) Option {
	return func(c *Condition) {
		c.establishes = append(c.establishes, labels...)
	}
}

// New declares a condition. The label names the promise in violation
// reports ("amount is positive", "sides form a triangle").
func New(label string, pred Predicate, opts ...Option) Condition {
	c := Condition{label: label, pred: pred}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Label returns the declared promise name.
func (c Condition) Label() string { return c.label }

// NeedsResult reports whether the predicate declared a result dependency.
func (c Condition) NeedsResult() bool { return c.needsResult }

// NeedsReceiver reports whether the predicate declared a receiver dependency.
func (c Condition) NeedsReceiver() bool { return c.needsRecv }

// Establishes returns the invariant labels this condition implies.
// The returned slice must not be mutated.
func (c Condition) Establishes() []string { return c.establishes }

// Valid reports whether the condition has a predicate at all.
// Spec constructors use this to fail fast at registration.
func (c Condition) Valid() bool { return c.pred != nil }
