package harness

import "github.com/roach88/ironclad/pkg/condition"

// StepResult is the classified outcome of one executed step.
// Index is -1 when no condition is implicated.
type StepResult struct {
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
	Phase   string `json:"phase,omitempty"`
	Index   int    `json:"index"`
	Label   string `json:"label,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step matched its expect clause.
	Pass bool `json:"pass"`

	// Steps holds one classified result per scenario step, in order.
	Steps []StepResult `json:"steps"`

	// Trace is every condition evaluation the run produced, in order,
	// including merge skips. Used for golden comparison.
	Trace []condition.CheckEvent `json:"trace"`

	// Errors describes each expectation mismatch. Empty when Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records an expectation mismatch and fails the result.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
