// Package cli implements the ironclad command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ironclad/pkg/enforce"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Unchecked bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ironclad CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ironclad",
		Short: "Ironclad runtime contract enforcement",
		Long: `Enforce declared contracts and invariants at runtime.

Vet contract decks, run conformance scenarios against guarded
fixtures, and report journaled enforcement activity.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			// Environment first, --unchecked wins.
			enforce.FromEnv()
			if opts.Unchecked {
				enforce.Set(enforce.Unchecked)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Unchecked, "unchecked", false, "disable all contract and invariant checking")

	// Add subcommands
	cmd.AddCommand(NewVetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
