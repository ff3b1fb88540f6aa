package harness

import (
	"context"
	"fmt"

	"github.com/roach88/ironclad/internal/testutil"
	"github.com/roach88/ironclad/pkg/enforce"
)

// Run executes a scenario and returns the result.
//
// A scenario that pins an enforcement mode installs it for the run and
// restores the previous mode on return; a scenario without a mode
// inherits the process mode, so a caller-level toggle (the CLI's
// --unchecked flag, IRONCLAD_UNCHECKED) applies. Instance IDs are
// deterministic ("<fixture>-1"), so repeated runs produce identical
// traces.
//
// An error return means the scenario itself is defective (unknown
// fixture, operation before "new"). Expectation mismatches are not
// errors; they are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	fixture, err := LookupFixture(scenario.Fixture)
	if err != nil {
		return nil, err
	}

	if scenario.Mode != "" {
		prev := enforce.Current()
		if scenario.Mode == "unchecked" {
			enforce.Set(enforce.Unchecked)
		} else {
			enforce.Set(enforce.Checked)
		}
		defer enforce.Set(prev)
	}

	recorder := &testutil.Recorder{}
	ids := testutil.NewIDGenerator(scenario.Fixture)
	result := NewResult()

	ctx := context.Background()
	var instance Instance

	for i, step := range scenario.Steps {
		var stepErr error
		var value any

		switch step.Op {
		case "new":
			instance, stepErr = fixture.New(step.Args, recorder, ids.Next())
		case "destroy":
			if instance == nil {
				return nil, fmt.Errorf("steps[%d]: destroy before construction", i)
			}
			stepErr = instance.Destroy(ctx)
		default:
			if instance == nil {
				return nil, fmt.Errorf("steps[%d]: operation %q before construction", i, step.Op)
			}
			value, stepErr = instance.Apply(ctx, step.Op, step.Args)
		}

		outcome := Classify(stepErr)
		result.Steps = append(result.Steps, StepResult{
			Op:      step.Op,
			Outcome: outcome.Outcome,
			Phase:   outcome.Phase,
			Index:   outcome.Index,
			Label:   outcome.Label,
			Detail:  outcome.Detail,
		})
		checkExpect(result, i, step, outcome, value)
	}

	result.Trace = recorder.Events()
	return result, nil
}

// checkExpect compares one step's classified outcome against its
// expect clause. A nil clause means the step must succeed.
func checkExpect(result *Result, i int, step Step, outcome StepOutcome, value any) {
	want := step.Expect
	if want == nil {
		want = &ExpectClause{Outcome: OutcomeOK}
	}

	if outcome.Outcome != want.Outcome {
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected outcome %q, got %q (%s)",
			i, step.Op, want.Outcome, outcome.Outcome, outcome.Detail))
		return
	}
	if want.Phase != "" && outcome.Phase != want.Phase {
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected phase %q, got %q",
			i, step.Op, want.Phase, outcome.Phase))
	}
	if want.Index != nil && outcome.Index != *want.Index {
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected index %d, got %d",
			i, step.Op, *want.Index, outcome.Index))
	}
	if want.Label != "" && outcome.Label != want.Label {
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected label %q, got %q",
			i, step.Op, want.Label, outcome.Label))
	}
	if want.Result != nil && want.Outcome == OutcomeOK {
		if fmt.Sprint(value) != fmt.Sprint(want.Result) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected result %v, got %v",
				i, step.Op, want.Result, value))
		}
	}
}
