// Package enforce holds the process-wide enforcement mode.
//
// The mode decides whether contract and invariant checking runs at all.
// It is intended to be set exactly once at process start (from a flag or
// the environment) and read by every wrapped invocation afterwards. A
// mid-run transition is tolerated: each invocation reads the mode once,
// so a single call never sees a torn half-checked state.
package enforce

import (
	"os"
	"sync/atomic"
)

// Mode selects between full checking and zero-overhead passthrough.
type Mode int32

const (
	// Checked evaluates every declared condition around each invocation.
	Checked Mode = iota

	// Unchecked turns contract wrappers and invariant guards into pure
	// passthroughs. No context record is built and no condition runs.
	Unchecked
)

// EnvVar is the environment variable consulted by FromEnv.
// Any non-empty value other than "0" and "false" selects Unchecked.
const EnvVar = "IRONCLAD_UNCHECKED"

// String returns the mode name for logs and reports.
func (m Mode) String() string {
	switch m {
	case Checked:
		return "checked"
	case Unchecked:
		return "unchecked"
	default:
		return "unknown"
	}
}

// mode defaults to Checked: checking is opt-out, never silently off.
var mode atomic.Int32

// Set installs the process-wide mode.
//
// Call once during startup, before any wrapped callable or guarded
// object is exercised. Later calls take effect eventually; in-flight
// invocations finish under the mode they started with.
func Set(m Mode) {
	mode.Store(int32(m))
}

// Current returns the process-wide mode.
func Current() Mode {
	return Mode(mode.Load())
}

// Enabled reports whether checking is active. This is the single atomic
// load on the hot path of every wrapped invocation.
func Enabled() bool {
	return Mode(mode.Load()) == Checked
}

// FromEnv resolves the mode from EnvVar and installs it.
// Returns the mode that was installed.
func FromEnv() Mode {
	m := Checked
	switch v := os.Getenv(EnvVar); v {
	case "", "0", "false":
	default:
		m = Unchecked
	}
	Set(m)
	return m
}
