package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a fixture, a step
// sequence, and the expected outcome of each step.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named
	// after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the registered fixture type to instantiate
	// (e.g. "account", "triangle").
	Fixture string `yaml:"fixture"`

	// Mode pins the enforcement mode for the run: "checked" or
	// "unchecked". Unset inherits the process mode.
	Mode string `yaml:"mode,omitempty"`

	// Steps is the operation sequence. The first step must be "new".
	Steps []Step `yaml:"steps"`
}

// Step is one operation against the fixture instance.
type Step struct {
	// Op is "new", "destroy", or a fixture operation name.
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect states the expected outcome. A nil Expect means the step
	// must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause pins down the expected outcome of a step.
// Phase, Index, and Label narrow the expectation; unset fields are
// not compared.
type ExpectClause struct {
	// Outcome is one of the Outcome* constants ("ok",
	// "contract_violation", "invariant_violation", ...).
	Outcome string `yaml:"outcome"`

	// Phase is the expected violation phase ("precondition",
	// "post_operation", ...).
	Phase string `yaml:"phase,omitempty"`

	// Index is the expected first-failing condition index.
	Index *int `yaml:"index,omitempty"`

	// Label is the expected condition label.
	Label string `yaml:"label,omitempty"`

	// Result is the expected operation result. Only compared when the
	// outcome is ok.
	Result any `yaml:"result,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// (typos) and missing required fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	switch s.Mode {
	case "", "checked", "unchecked":
	default:
		return fmt.Errorf("mode must be \"checked\" or \"unchecked\", got %q", s.Mode)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Steps[0].Op != "new" {
		return fmt.Errorf("steps[0]: first step must be \"new\", got %q", s.Steps[0].Op)
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if i > 0 && step.Op == "new" {
			return fmt.Errorf("steps[%d]: only the first step may be \"new\"", i)
		}
		if step.Expect != nil {
			if err := validateExpect(i, step.Expect); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateExpect validates a single expect clause.
func validateExpect(index int, e *ExpectClause) error {
	switch e.Outcome {
	case OutcomeOK, OutcomeContractViolation, OutcomeInvariantViolation,
		OutcomeEvaluationError, OutcomeInternalFailure, OutcomeDestroyed,
		OutcomeError:
	case "":
		return fmt.Errorf("steps[%d].expect: outcome is required", index)
	default:
		return fmt.Errorf("steps[%d].expect: unknown outcome %q", index, e.Outcome)
	}
	if e.Index != nil && *e.Index < 0 {
		return fmt.Errorf("steps[%d].expect: index must be non-negative", index)
	}
	return nil
}
