package deck

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// CompileError reports a defect in a contract deck: malformed CUE, a
// missing required field, or an expression referencing context it can
// never have. Deck defects surface at load time, never at first
// evaluation.
type CompileError struct {
	// Field is the deck path of the offending declaration
	// ("contract.deposit.requires[0].expr").
	Field string

	// Message is a human-readable description.
	Message string

	// Pos is the CUE source position, when available.
	Pos token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
