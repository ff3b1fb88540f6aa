package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/ironclad/internal/deck"
)

// VetResult summarizes a vetted deck.
type VetResult struct {
	Deck       string   `json:"deck,omitempty"`
	Contracts  []string `json:"contracts"`
	Invariants []string `json:"invariants"`
}

// NewVetCommand creates the vet command.
func NewVetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet <deck-dir>",
		Short: "Compile a contract deck and report defects",
		Long: `Compile the CUE contract deck in a directory.

Deck defects fail here, before anything runs under the declarations:
malformed CUE, a requires expression referencing the result, an
unknown extends target, a missing unit.

Exit codes:
  0 - Deck compiled cleanly
  1 - Deck defect
  2 - Command error (directory not found, ...)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVet(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runVet(opts *RootOptions, deckDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(deckDir); os.IsNotExist(err) {
		msg := fmt.Sprintf("deck directory not found: %s", deckDir)
		_ = formatter.Error("E_DECK_DIR", msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	d, err := deck.Load(deckDir)
	if err != nil {
		var ce *deck.CompileError
		if errors.As(err, &ce) {
			_ = formatter.Error("E_DECK", ce.Error(), map[string]string{"field": ce.Field})
		} else {
			_ = formatter.Error("E_DECK", err.Error(), nil)
		}
		return NewExitError(ExitFailure, err.Error())
	}

	result := VetResult{
		Deck:       d.Name,
		Contracts:  sortedKeys(d.Contracts),
		Invariants: sortedKeys(d.Invariants),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ deck ok: %d contract(s), %d invariant(s)\n",
		len(result.Contracts), len(result.Invariants))
	for _, name := range result.Contracts {
		formatter.VerboseLog("contract %s (%s)", name, d.Contracts[name].Unit())
	}
	for _, name := range result.Invariants {
		formatter.VerboseLog("invariant %s (%s, %d condition(s))",
			name, d.Invariants[name].Unit(), d.Invariants[name].Len())
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
