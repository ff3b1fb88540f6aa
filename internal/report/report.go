// Package report renders journaled enforcement activity for the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ironclad/internal/journal"
)

// Render writes unit summaries in the given format ("text" or "json").
//
// Unit and label strings originate in deck files and may arrive in any
// Unicode composition; they are NFC normalized at this boundary so the
// same unit never renders as two rows.
func Render(w io.Writer, sums []journal.UnitSummary, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(normalize(sums))
	}
	return renderText(w, normalize(sums))
}

func normalize(sums []journal.UnitSummary) []journal.UnitSummary {
	out := make([]journal.UnitSummary, len(sums))
	for i, s := range sums {
		s.Unit = norm.NFC.String(s.Unit)
		out[i] = s
	}
	return out
}

func renderText(w io.Writer, sums []journal.UnitSummary) error {
	if len(sums) == 0 {
		_, err := fmt.Fprintln(w, "journal is empty")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tPHASE\tEVALS\tFAIL\tERR\tSKIP")

	var total journal.UnitSummary
	for _, s := range sums {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			s.Unit, s.Phase, s.Evaluations, s.Failures, s.Errors, s.Skips)
		total.Evaluations += s.Evaluations
		total.Failures += s.Failures
		total.Errors += s.Errors
		total.Skips += s.Skips
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d\t%d\t%d\t%d\n",
		total.Evaluations, total.Failures, total.Errors, total.Skips)

	return tw.Flush()
}

// RenderEvents writes journaled events in the given format.
func RenderEvents(w io.Writer, events []journal.Event, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "journal is empty")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tUNIT\tINSTANCE\tPHASE\tIDX\tLABEL\tOUTCOME")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.Seq, norm.NFC.String(ev.Unit), ev.Instance, ev.Phase,
			ev.Index, norm.NFC.String(ev.Label), ev.Outcome)
	}
	return tw.Flush()
}
