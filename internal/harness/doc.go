// Package harness runs YAML conformance scenarios against guarded
// fixture types.
//
// A scenario constructs one instance of a registered fixture, drives a
// sequence of operations against it, and states the expected outcome
// of each step: ok, a contract violation at a specific phase and
// index, an invariant violation, or a downstream failure. The harness
// records every condition evaluation the run produced and compares
// the full trace against golden files for byte-exact regression
// checking.
//
// Scenarios run with deterministic instance IDs so the same scenario
// produces the same trace every time.
package harness
