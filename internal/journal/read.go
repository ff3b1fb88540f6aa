package journal

import (
	"context"
	"fmt"

	"github.com/roach88/ironclad/pkg/condition"
)

// Events returns journaled events in seq order. Unit filters to one
// unit when non-empty.
func (j *Journal) Events(ctx context.Context, unit string) ([]Event, error) {
	query := `
		SELECT seq, run_id, unit, instance, phase, cond_index, label, outcome, detail
		FROM check_events
	`
	var args []any
	if unit != "" {
		query += " WHERE unit = ?"
		args = append(args, unit)
	}
	query += " ORDER BY seq"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var phase, outcome string
		if err := rows.Scan(&ev.Seq, &ev.RunID, &ev.Unit, &ev.Instance, &phase, &ev.Index, &ev.Label, &outcome, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Phase = condition.Phase(phase)
		ev.Outcome = condition.Outcome(outcome)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UnitSummary aggregates journaled activity for one (unit, phase) pair.
type UnitSummary struct {
	Unit        string          `json:"unit"`
	Phase       condition.Phase `json:"phase"`
	Evaluations int             `json:"evaluations"`
	Failures    int             `json:"failures"`
	Errors      int             `json:"errors"`
	Skips       int             `json:"skips"`
}

// Summarize aggregates the journal per (unit, phase), ordered by unit
// then phase for deterministic reports.
func (j *Journal) Summarize(ctx context.Context) ([]UnitSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT
			unit,
			phase,
			SUM(CASE WHEN outcome IN ('pass', 'fail', 'error') THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'fail' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'skip' THEN 1 ELSE 0 END)
		FROM check_events
		GROUP BY unit, phase
		ORDER BY unit, phase
	`)
	if err != nil {
		return nil, fmt.Errorf("summarize journal: %w", err)
	}
	defer rows.Close()

	var sums []UnitSummary
	for rows.Next() {
		var s UnitSummary
		var phase string
		if err := rows.Scan(&s.Unit, &phase, &s.Evaluations, &s.Failures, &s.Errors, &s.Skips); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Phase = condition.Phase(phase)
		sums = append(sums, s)
	}
	return sums, rows.Err()
}
