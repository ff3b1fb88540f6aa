package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ironclad/pkg/condition"
)

// TraceSnapshot is the serialized form compared against golden files:
// the classified step outcomes plus the full evaluation trace.
type TraceSnapshot struct {
	Scenario string                 `json:"scenario"`
	Fixture  string                 `json:"fixture"`
	Steps    []StepResult           `json:"steps"`
	Trace    []condition.CheckEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		Scenario: scenario.Name,
		Fixture:  scenario.Fixture,
		Steps:    result.Steps,
		Trace:    result.Trace,
	}
	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
