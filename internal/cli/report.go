package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ironclad/internal/journal"
	"github.com/roach88/ironclad/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Unit string // list raw events for one unit instead of summarizing
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <journal-db>",
		Short: "Summarize journaled enforcement activity",
		Long: `Summarize a journal database written by "ironclad test --journal".

The default view aggregates evaluations, failures, errors, and merge
skips per (unit, phase). With --unit, the raw event stream for one
unit is listed instead.

Exit codes:
  0 - Report rendered
  2 - Command error (journal not found, ...)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Unit, "unit", "", "list events for this unit instead of summarizing")

	return cmd
}

func runReport(opts *ReportOptions, dbPath string, cmd *cobra.Command) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", dbPath))
	}

	j, err := journal.Open(dbPath, "report")
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("open journal: %v", err))
	}
	defer j.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if opts.Unit != "" {
		events, err := j.Events(ctx, opts.Unit)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("read journal: %v", err))
		}
		return report.RenderEvents(w, events, opts.Format)
	}

	sums, err := j.Summarize(ctx)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("summarize journal: %v", err))
	}
	return report.Render(w, sums, opts.Format)
}
